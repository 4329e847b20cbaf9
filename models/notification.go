package models

import "time"

type Notification struct {
	ID                 string            `json:"id" bson:"id"`
	UserID             string            `json:"userId" bson:"userId"`
	Username           string            `json:"username" bson:"username"`
	Type               string            `json:"type" bson:"type"`
	Title              string            `json:"title" bson:"title"`
	Message            string            `json:"message" bson:"message"`
	Payload            map[string]string `json:"payload,omitempty" bson:"payload,omitempty"`
	ActorID            string            `json:"actorId,omitempty" bson:"actorId,omitempty"`
	ShowInLiveActivity bool              `json:"showInLiveActivity" bson:"showInLiveActivity"`
	CreatedAt          time.Time         `json:"createdAt" bson:"createdAt"`
	IsRead             bool              `json:"isRead" bson:"isRead"`
}
