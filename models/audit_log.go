package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestContext struct {
	RequestID string `json:"requestId,omitempty" bson:"requestId,omitempty"`
	IP        string `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
}

// AuditLog is append-only and written best-effort: a failed audit write must
// never fail the business operation it describes.
type AuditLog struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Action     string             `json:"action" bson:"action"`
	EntityType string             `json:"entityType" bson:"entityType"`
	EntityID   string             `json:"entityId" bson:"entityId"`
	Actor      string             `json:"actor" bson:"actor"`
	Before     interface{}        `json:"before,omitempty" bson:"before,omitempty"`
	After      interface{}        `json:"after,omitempty" bson:"after,omitempty"`
	Metadata   map[string]string  `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Request    RequestContext     `json:"request,omitempty" bson:"request,omitempty"`
	At         time.Time          `json:"at" bson:"at"`
}
