// internal/database/tag_repository.go
package database

import (
	"context"
	"fmt"

	"peerbridge/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindOrCreateTag returns the tag with the given name, creating it on first
// use. The upsert races safely against concurrent callers because of the
// unique name index.
func (m *MongoDB) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var tag models.Tag
	err := m.Tags.FindOneAndUpdate(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name}},
		opts,
	).Decode(&tag)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create tag %q: %v", name, err)
	}
	return &tag, nil
}

// GetTagsByIDs fetches tag documents for the given references.
func (m *MongoDB) GetTagsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Tag, error) {
	if len(ids) == 0 {
		return []*models.Tag{}, nil
	}

	cursor, err := m.Tags.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %v", err)
	}
	defer cursor.Close(ctx)

	var tags []*models.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %v", err)
	}
	return tags, nil
}
