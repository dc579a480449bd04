package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ballot records one user's vote on one post. A post holds at most one
// ballot per user.
type Ballot struct {
	UserID   primitive.ObjectID `json:"user" bson:"user"`
	VoteType VoteType           `json:"voteType" bson:"voteType"`
}

type Post struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title     string               `json:"title" bson:"title"`
	Content   string               `json:"content" bson:"content"`
	AuthorID  primitive.ObjectID   `json:"authorId" bson:"authorId"`
	Image     string               `json:"image,omitempty" bson:"image"`
	Tags      []primitive.ObjectID `json:"tags" bson:"tags"`
	AITags    []string             `json:"aiTags" bson:"aiTags"`
	Upvotes   int                  `json:"upvotes" bson:"upvotes"`
	Downvotes int                  `json:"downvotes" bson:"downvotes"`
	Voters    []Ballot             `json:"voters" bson:"voters"`
	Comments  []primitive.ObjectID `json:"comments" bson:"comments"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// VoteOf returns the ballot the given user holds on this post, if any.
func (p *Post) VoteOf(userID primitive.ObjectID) (VoteType, bool) {
	for _, b := range p.Voters {
		if b.UserID == userID {
			return b.VoteType, true
		}
	}
	return "", false
}
