package models

// Counter backs the human-readable ID sequences. One document per sequence
// name, incremented atomically with an upsert.
type Counter struct {
	Name string `json:"name" bson:"_id"`
	Seq  int64  `json:"seq" bson:"seq"`
}
