// internal/database/comment_repository.go
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
)

// CreateComment inserts a new comment.
func (m *MongoDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt = time.Now()
	if comment.Subcomments == nil {
		comment.Subcomments = []primitive.ObjectID{}
	}

	if _, err := m.Comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to create comment: %v", err)
	}
	return nil
}

// GetComment retrieves a comment by ID.
func (m *MongoDB) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment

	err := m.Comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "Comment not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// AddSubcomment appends a child comment reference to its parent.
func (m *MongoDB) AddSubcomment(ctx context.Context, parentID, childID primitive.ObjectID) error {
	result, err := m.Comments.UpdateOne(ctx,
		bson.M{"_id": parentID},
		bson.M{"$push": bson.M{"subcomments": childID}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "Comment not found", nil)
	}
	return nil
}

// GetCommentsByIDs fetches a set of comments preserving the requested order.
func (m *MongoDB) GetCommentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Comment, error) {
	if len(ids) == 0 {
		return []*models.Comment{}, nil
	}

	cursor, err := m.Comments.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %v", err)
	}
	defer cursor.Close(ctx)

	byID := make(map[primitive.ObjectID]*models.Comment, len(ids))
	for cursor.Next(ctx) {
		var comment models.Comment
		if err := cursor.Decode(&comment); err != nil {
			return nil, fmt.Errorf("failed to decode comment: %v", err)
		}
		byID[comment.ID] = &comment
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*models.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}
