package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Tag is a unique text label, created lazily the first time it is used.
type Tag struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
}
