package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a reply on a post or on another comment. Nesting is modeled
// as a tree of child references; the UI only renders two levels.
type Comment struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	AuthorID    primitive.ObjectID   `json:"authorId" bson:"authorId"`
	Content     string               `json:"content" bson:"content"`
	Subcomments []primitive.ObjectID `json:"subcomments" bson:"subcomments"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
}
