// internal/database/post_repository.go
package database

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatePost inserts a new post with empty vote and comment state.
func (m *MongoDB) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []primitive.ObjectID{}
	}
	if post.AITags == nil {
		post.AITags = []string{}
	}
	post.Voters = []models.Ballot{}
	post.Comments = []primitive.ObjectID{}

	if _, err := m.Posts.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to create post: %v", err)
	}
	return nil
}

// GetPost retrieves a post by its ID.
func (m *MongoDB) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post

	err := m.Posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "Post not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns posts sorted by creation time, newest first.
func (m *MongoDB) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := m.Posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %v", err)
	}
	defer cursor.Close(ctx)

	var posts []*models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %v", err)
	}
	return posts, nil
}

// DeletePost removes a post document.
func (m *MongoDB) DeletePost(ctx context.Context, postID primitive.ObjectID) error {
	result, err := m.Posts.DeleteOne(ctx, bson.M{"_id": postID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "Post not found", nil)
	}
	return nil
}

// CastVote applies one user's vote to a post using conditional updates, so
// the ballot list and the aggregate counters move together atomically:
//
//   - no prior ballot: push the ballot and increment the matching counter
//   - prior ballot of the opposite type: flip it in place, decrement the old
//     counter and increment the new one
//   - prior ballot of the same type: AlreadyVoted, nothing changes
//
// Each branch's filter only matches when the ballot state it assumes still
// holds, which keeps counters equal to ballot tallies and never negative
// even under concurrent votes.
func (m *MongoDB) CastVote(ctx context.Context, postID, userID primitive.ObjectID, voteType models.VoteType) (*models.Post, error) {
	if !voteType.IsValid() {
		return nil, utils.NewValidationError("voteType")
	}

	now := time.Now()

	// Fresh ballot: only matches when the user has no entry in voters yet.
	fresh, err := m.Posts.UpdateOne(ctx,
		bson.M{"_id": postID, "voters.user": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{"voters": models.Ballot{UserID: userID, VoteType: voteType}},
			"$inc":  bson.M{counterField(voteType): 1},
			"$set":  bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cast vote: %v", err)
	}
	if fresh.ModifiedCount == 1 {
		return m.GetPost(ctx, postID)
	}

	// Switch: only matches when the user's existing ballot has the opposite
	// type, so the paired decrement can never drive a counter negative.
	switched, err := m.Posts.UpdateOne(ctx,
		bson.M{
			"_id":    postID,
			"voters": bson.M{"$elemMatch": bson.M{"user": userID, "voteType": voteType.Opposite()}},
		},
		bson.M{
			"$set": bson.M{"voters.$.voteType": voteType, "updatedAt": now},
			"$inc": bson.M{counterField(voteType): 1, counterField(voteType.Opposite()): -1},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to switch vote: %v", err)
	}
	if switched.ModifiedCount == 1 {
		return m.GetPost(ctx, postID)
	}

	// Neither branch matched: either the post does not exist or the user
	// already holds a ballot of this type.
	if _, err := m.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return nil, utils.NewAlreadyVotedError(postID.Hex())
}

func counterField(voteType models.VoteType) string {
	if voteType == models.VoteUp {
		return "upvotes"
	}
	return "downvotes"
}

// AddPostComment appends a comment reference to a post.
func (m *MongoDB) AddPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	result, err := m.Posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{
			"$push": bson.M{"comments": commentID},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "Post not found", nil)
	}
	return nil
}

// SetPostAITags replaces the AI-derived tag list on a post. Best-effort
// callers ignore the error.
func (m *MongoDB) SetPostAITags(ctx context.Context, postID primitive.ObjectID, tags []string) error {
	_, err := m.Posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$set": bson.M{"aiTags": tags, "updatedAt": time.Now()}},
	)
	return err
}

// SearchPosts ranks posts against a free-text query with an aggregation
// pipeline: a title match outweighs a tag match, which outweighs a content
// match. Ties break on recency.
func (m *MongoDB) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	log.Printf("Searching posts for query: %q", query)

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}

	pipeline := []bson.M{
		{"$match": bson.M{"$or": []bson.M{
			{"title": pattern},
			{"aiTags": pattern},
			{"content": pattern},
		}}},
		{"$addFields": bson.M{"searchScore": bson.M{"$add": []bson.M{
			{"$cond": []interface{}{bson.M{"$regexMatch": bson.M{"input": "$title", "regex": pattern}}, 3, 0}},
			{"$cond": []interface{}{bson.M{"$gt": []interface{}{
				bson.M{"$size": bson.M{"$filter": bson.M{
					"input": "$aiTags",
					"as":    "tag",
					"cond":  bson.M{"$regexMatch": bson.M{"input": "$$tag", "regex": pattern}},
				}}}, 0}}, 2, 0}},
			{"$cond": []interface{}{bson.M{"$regexMatch": bson.M{"input": "$content", "regex": pattern}}, 1, 0}},
		}}}},
		{"$sort": bson.D{
			{Key: "searchScore", Value: -1},
			{Key: "createdAt", Value: -1},
		}},
	}

	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}

	cursor, err := m.Posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %v", err)
	}
	defer cursor.Close(ctx)

	var posts []*models.Post
	for cursor.Next(ctx) {
		var post models.Post
		if err := cursor.Decode(&post); err != nil {
			log.Printf("Error decoding post document: %v", err)
			continue
		}
		posts = append(posts, &post)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration failed: %v", err)
	}

	log.Printf("Found %d posts matching %q", len(posts), query)
	return posts, nil
}
