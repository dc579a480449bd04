package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role controls what a user is allowed to do.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleUser      Role = "User"
	RoleModerator Role = "Moderator"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleModerator
}

// AvailabilityStatus describes how a user can currently be reached.
type AvailabilityStatus string

const (
	AvailableForCall     AvailabilityStatus = "Up for a call"
	AvailableForMessages AvailabilityStatus = "Available for messages"
	Unavailable          AvailabilityStatus = "Unavailable"
)

type User struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Username       string               `json:"username" bson:"username"`
	HashedPassword string               `json:"-" bson:"hashedPassword"`
	Name           string               `json:"name" bson:"name"`
	Surname        string               `json:"surname" bson:"surname"`
	Age            int                  `json:"age" bson:"age"`
	Gender         string               `json:"gender,omitempty" bson:"gender"`
	Role           Role                 `json:"role" bson:"role"`
	DisabilityType string               `json:"disabilityType,omitempty" bson:"disabilityType"`
	Availability   AvailabilityStatus   `json:"availabilityStatus" bson:"availabilityStatus"`
	Experience     string               `json:"experience,omitempty" bson:"experience"`
	ProfileImage   string               `json:"profileImage,omitempty" bson:"profileImage"`
	Tags           []primitive.ObjectID `json:"tags" bson:"tags"`
	AITags         []string             `json:"aiTags" bson:"aiTags"`
	Posts          []primitive.ObjectID `json:"posts" bson:"posts"`
	Chats          []primitive.ObjectID `json:"chats" bson:"chats"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// FullName is the display name used in matchmaking results.
func (u *User) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}
