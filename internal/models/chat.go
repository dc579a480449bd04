package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat groups an ordered sequence of messages between a fixed set of
// participants. For pairwise chats at most one chat exists per unordered
// participant pair; PairKey gives the canonical identity the uniqueness
// is enforced on.
type Chat struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	Messages     []primitive.ObjectID `json:"messages" bson:"messages"`
	LastUpdated  time.Time            `json:"lastUpdated" bson:"lastUpdated"`
}

// Message belongs to exactly one chat and is immutable once created.
type Message struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ChatID    primitive.ObjectID `json:"chatId" bson:"chatId"`
	SenderID  primitive.ObjectID `json:"senderId" bson:"senderId"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// PairKey canonicalizes an unordered participant pair into a sort-stable
// string, so the same two users always resolve to the same chat no matter
// the argument order.
func PairKey(a, b primitive.ObjectID) string {
	ah, bh := a.Hex(), b.Hex()
	if ah > bh {
		ah, bh = bh, ah
	}
	return ah + ":" + bh
}
