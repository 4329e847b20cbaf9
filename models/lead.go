package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LeadStatus string

const (
	LeadNew          LeadStatus = "NEW"
	LeadContacted    LeadStatus = "CONTACTED"
	LeadQualified    LeadStatus = "QUALIFIED"
	LeadProposalSent LeadStatus = "PROPOSAL_SENT"
	LeadNegotiation  LeadStatus = "NEGOTIATION"
	LeadConverted    LeadStatus = "CONVERTED"
	LeadLost         LeadStatus = "LOST"
)

func IsValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadProposalSent, LeadNegotiation, LeadConverted, LeadLost:
		return true
	}
	return false
}

type LeadTemperature string

const (
	LeadHot  LeadTemperature = "HOT"
	LeadWarm LeadTemperature = "WARM"
	LeadCold LeadTemperature = "COLD"
)

type LeadStatusChange struct {
	From LeadStatus `json:"from" bson:"from"`
	To   LeadStatus `json:"to" bson:"to"`
	By   string     `json:"by" bson:"by"`
	At   time.Time  `json:"at" bson:"at"`
}

type Lead struct {
	ID              primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Code            string              `json:"code" bson:"code"`
	Name            string              `json:"name" bson:"name"`
	Company         string              `json:"company,omitempty" bson:"company,omitempty"`
	Email           string              `json:"email,omitempty" bson:"email,omitempty"`
	Phone           string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Source          string              `json:"source,omitempty" bson:"source,omitempty"`
	Notes           string              `json:"notes,omitempty" bson:"notes,omitempty"`
	AssignedTo      string              `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Status          LeadStatus          `json:"status" bson:"status"`
	StatusHistory   []LeadStatusChange  `json:"statusHistory" bson:"statusHistory"`
	FirstResponseAt *time.Time          `json:"firstResponseAt,omitempty" bson:"firstResponseAt,omitempty"`
	LastActivityAt  time.Time           `json:"lastActivityAt" bson:"lastActivityAt"`
	ClientID        *primitive.ObjectID `json:"clientId,omitempty" bson:"clientId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}
