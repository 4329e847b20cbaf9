package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Client struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Code      string              `json:"code" bson:"code"`
	Name      string              `json:"name" bson:"name"`
	Email     string              `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Address   string              `json:"address,omitempty" bson:"address,omitempty"`
	GSTIN     string              `json:"gstin,omitempty" bson:"gstin,omitempty"`
	LeadID    *primitive.ObjectID `json:"leadId,omitempty" bson:"leadId,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt" bson:"updatedAt"`
}
