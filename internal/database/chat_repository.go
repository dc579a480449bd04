// internal/database/chat_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// chatDocument is the stored shape of a chat. pairKey exists only in
// storage: it is the canonical unordered-pair identity the unique index
// hangs off.
type chatDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	PairKey      string               `bson:"pairKey,omitempty"`
	Participants []primitive.ObjectID `bson:"participants"`
	Messages     []primitive.ObjectID `bson:"messages"`
	LastUpdated  time.Time            `bson:"lastUpdated"`
}

func (d *chatDocument) toModel() *models.Chat {
	return &models.Chat{
		ID:           d.ID,
		Participants: d.Participants,
		Messages:     d.Messages,
		LastUpdated:  d.LastUpdated,
	}
}

// GetChat retrieves a chat by its ID.
func (m *MongoDB) GetChat(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var doc chatDocument

	err := m.Chats.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "Chat not found", err)
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindOrCreateChatByPair resolves the single chat for an unordered pair of
// participants, creating it with an empty message list on first contact.
// The upsert keyed on pairKey makes concurrent first contact yield one chat.
func (m *MongoDB) FindOrCreateChatByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc chatDocument
	err := m.Chats.FindOneAndUpdate(ctx,
		bson.M{"pairKey": models.PairKey(a, b)},
		bson.M{"$setOnInsert": bson.M{
			"participants": []primitive.ObjectID{a, b},
			"messages":     []primitive.ObjectID{},
			"lastUpdated":  time.Now(),
		}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chat: %v", err)
	}
	return doc.toModel(), nil
}

// CreateMessage inserts an immutable message record.
func (m *MongoDB) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	message.CreatedAt = time.Now()

	if _, err := m.Messages.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}
	return nil
}

// AppendChatMessage links a persisted message into its chat and bumps the
// chat's recency, in a single atomic document update.
func (m *MongoDB) AppendChatMessage(ctx context.Context, chatID, messageID primitive.ObjectID) error {
	result, err := m.Chats.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{
			"$push": bson.M{"messages": messageID},
			"$set":  bson.M{"lastUpdated": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to append message to chat: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "Chat not found", nil)
	}
	return nil
}

// GetChatMessages returns a chat's messages oldest first.
func (m *MongoDB) GetChatMessages(ctx context.Context, chatID primitive.ObjectID) ([]*models.Message, error) {
	cursor, err := m.Messages.Find(ctx,
		bson.M{"chatId": chatID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %v", err)
	}
	return messages, nil
}

// GetUserChats returns every chat the user participates in, most recently
// active first.
func (m *MongoDB) GetUserChats(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	cursor, err := m.Chats.Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user chats: %v", err)
	}
	defer cursor.Close(ctx)

	var chats []*models.Chat
	for cursor.Next(ctx) {
		var doc chatDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode chat: %v", err)
		}
		chats = append(chats, doc.toModel())
	}
	return chats, cursor.Err()
}
