// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Posts    *mongo.Collection
	Comments *mongo.Collection
	Tags     *mongo.Collection
	Chats    *mongo.Collection
	Messages *mongo.Collection
}

func NewMongoDB(uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")

	db := client.Database(dbName)
	return &MongoDB{
		Client:   client,
		Users:    db.Collection("users"),
		Posts:    db.Collection("posts"),
		Comments: db.Collection("comments"),
		Tags:     db.Collection("tags"),
		Chats:    db.Collection("chats"),
		Messages: db.Collection("messages"),
	}, nil
}

// EnsureIndexes creates the indexes the application relies on. The unique
// pairKey index is what makes concurrent first-contact chat creation safe
// across processes.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("failed to create user indexes: %v", err)
	}

	if _, err := m.Tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("failed to create tag indexes: %v", err)
	}

	if _, err := m.Chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pairKey", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}); err != nil {
		return fmt.Errorf("failed to create chat indexes: %v", err)
	}

	if _, err := m.Messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create message indexes: %v", err)
	}

	if _, err := m.Posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create post indexes: %v", err)
	}

	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
