// internal/database/user_repository.go
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

// CreateUser inserts a new user. A duplicate username surfaces as a
// Duplicate error via the unique index.
func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Tags == nil {
		user.Tags = []primitive.ObjectID{}
	}
	if user.Posts == nil {
		user.Posts = []primitive.ObjectID{}
	}
	if user.Chats == nil {
		user.Chats = []primitive.ObjectID{}
	}

	_, err := m.Users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "Username already taken: "+user.Username, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (m *MongoDB) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User

	err := m.Users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by their unique username.
func (m *MongoDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := m.Users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users.
func (m *MongoDB) ListUsers(ctx context.Context) ([]*models.User, error) {
	cursor, err := m.Users.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

// UpdateUserFields applies a partial update to a user document.
func (m *MongoDB) UpdateUserFields(ctx context.Context, userID primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now()

	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "Username already taken", err)
	}
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID.Hex())
	}
	return nil
}

// AddUserTags attaches tag references to a user, skipping any already present.
func (m *MongoDB) AddUserTags(ctx context.Context, userID primitive.ObjectID, tagIDs []primitive.ObjectID) error {
	if len(tagIDs) == 0 {
		return nil
	}

	update := bson.M{
		"$addToSet": bson.M{"tags": bson.M{"$each": tagIDs}},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID.Hex())
	}
	return nil
}

// AddUserAITags records extracted tag names on the user for matchmaking
// prompts, skipping any already present.
func (m *MongoDB) AddUserAITags(ctx context.Context, userID primitive.ObjectID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	update := bson.M{
		"$addToSet": bson.M{"aiTags": bson.M{"$each": tags}},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID.Hex())
	}
	return nil
}

// AddUserPost appends a post reference to the author's post list.
func (m *MongoDB) AddUserPost(ctx context.Context, userID, postID primitive.ObjectID) error {
	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"posts": postID}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID.Hex())
	}
	return nil
}

// AddUserChat attaches a chat reference to a participant.
func (m *MongoDB) AddUserChat(ctx context.Context, userID, chatID primitive.ObjectID) error {
	_, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"chats": chatID}},
	)
	return err
}

// DeleteUser removes a user document. References held elsewhere (posts,
// chats, tags) are left dangling; content outlives the account.
func (m *MongoDB) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	result, err := m.Users.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return utils.NewUserNotFoundError(userID.Hex())
	}
	return nil
}

// ListAvailableUsers returns users whose availability is not Unavailable,
// optionally excluding one user. Used by matchmaking.
func (m *MongoDB) ListAvailableUsers(ctx context.Context, exclude primitive.ObjectID) ([]*models.User, error) {
	filter := bson.M{"availabilityStatus": bson.M{"$ne": models.Unavailable}}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}

	cursor, err := m.Users.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"hashedPassword": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to list available users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}
