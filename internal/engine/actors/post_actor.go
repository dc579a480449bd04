package actors

import (
	"context"
	"log"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"
)

const storeTimeout = 5 * time.Second

// Message types for Post operations
type (
	CreatePostMsg struct {
		Title    string
		Content  string
		AuthorID primitive.ObjectID
		Image    string
		Tags     []primitive.ObjectID
	}

	GetPostMsg struct {
		PostID primitive.ObjectID
	}

	ListPostsMsg struct {
		Limit int
	}

	VotePostMsg struct {
		PostID primitive.ObjectID
		UserID primitive.ObjectID
		Vote   models.VoteType
	}

	SearchPostsMsg struct {
		Query string
		Limit int
	}

	DeletePostMsg struct {
		PostID primitive.ObjectID
		UserID primitive.ObjectID
		Role   models.Role
	}
)

// PostStore is the persistence surface the actor needs. *database.MongoDB
// satisfies it; tests use an in-memory fake.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	AddUserPost(ctx context.Context, userID, postID primitive.ObjectID) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]*models.Post, error)
	CastVote(ctx context.Context, postID, userID primitive.ObjectID, voteType models.VoteType) (*models.Post, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error)
	DeletePost(ctx context.Context, postID primitive.ObjectID) error
}

// PostActor serializes post mutations. Routing every vote through one
// mailbox, on top of the conditional updates in the store, keeps tallies
// consistent under concurrent voting.
type PostActor struct {
	store   PostStore
	metrics *utils.MetricsCollector
}

// NewPostActor creates a new PostActor instance
func NewPostActor(store PostStore, metrics *utils.MetricsCollector) actor.Actor {
	return &PostActor{
		store:   store,
		metrics: metrics,
	}
}

// Receive handles incoming messages
func (a *PostActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("PostActor started")

	case *actor.Stopping:
		log.Printf("PostActor stopping")

	case *actor.Stopped:
		log.Printf("PostActor stopped")

	case *actor.Restarting:
		log.Printf("PostActor restarting")
	case *CreatePostMsg:
		a.handleCreatePost(context, msg)
	case *GetPostMsg:
		a.handleGetPost(context, msg)
	case *ListPostsMsg:
		a.handleListPosts(context, msg)
	case *VotePostMsg:
		log.Printf("PostActor: Processing %s for post: %s from user: %s", msg.Vote, msg.PostID.Hex(), msg.UserID.Hex())
		a.handleVote(context, msg)
	case *SearchPostsMsg:
		a.handleSearchPosts(context, msg)
	case *DeletePostMsg:
		a.handleDeletePost(context, msg)
	default:
		log.Printf("PostActor: Unknown message type: %T", msg)
	}
}

func (a *PostActor) handleCreatePost(context actor.Context, msg *CreatePostMsg) {
	startTime := time.Now()
	ctx, cancel := storeContext()
	defer cancel()

	newPost := &models.Post{
		Title:    msg.Title,
		Content:  msg.Content,
		AuthorID: msg.AuthorID,
		Image:    msg.Image,
		Tags:     msg.Tags,
	}

	if err := a.store.CreatePost(ctx, newPost); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to create post", err))
		return
	}
	if err := a.store.AddUserPost(ctx, msg.AuthorID, newPost.ID); err != nil {
		log.Printf("PostActor: Failed to link post %s to author %s: %v", newPost.ID.Hex(), msg.AuthorID.Hex(), err)
	}

	log.Printf("PostActor: Created post %s by user %s", newPost.ID.Hex(), msg.AuthorID.Hex())
	a.metrics.AddOperationLatency("create_post", time.Since(startTime))
	context.Respond(newPost)
}

func (a *PostActor) handleGetPost(context actor.Context, msg *GetPostMsg) {
	ctx, cancel := storeContext()
	defer cancel()

	post, err := a.store.GetPost(ctx, msg.PostID)
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(post)
}

func (a *PostActor) handleListPosts(context actor.Context, msg *ListPostsMsg) {
	ctx, cancel := storeContext()
	defer cancel()

	posts, err := a.store.ListPosts(ctx, msg.Limit)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to list posts", err))
		return
	}
	context.Respond(posts)
}

func (a *PostActor) handleVote(context actor.Context, msg *VotePostMsg) {
	startTime := time.Now()

	if !msg.Vote.IsValid() {
		context.Respond(utils.NewValidationError("vote must be upvote or downvote"))
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	post, err := a.store.CastVote(ctx, msg.PostID, msg.UserID, msg.Vote)
	if err != nil {
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("vote_post", time.Since(startTime))
	context.Respond(post)
}

func (a *PostActor) handleSearchPosts(context actor.Context, msg *SearchPostsMsg) {
	startTime := time.Now()
	ctx, cancel := storeContext()
	defer cancel()

	posts, err := a.store.SearchPosts(ctx, msg.Query, msg.Limit)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Search failed", err))
		return
	}

	a.metrics.AddOperationLatency("search_posts", time.Since(startTime))
	context.Respond(posts)
}

func (a *PostActor) handleDeletePost(context actor.Context, msg *DeletePostMsg) {
	ctx, cancel := storeContext()
	defer cancel()

	post, err := a.store.GetPost(ctx, msg.PostID)
	if err != nil {
		context.Respond(err)
		return
	}

	// Only the author, an admin, or a moderator may remove a post.
	if post.AuthorID != msg.UserID && msg.Role != models.RoleAdmin && msg.Role != models.RoleModerator {
		context.Respond(utils.NewAppError(utils.ErrForbidden, "Not allowed to delete this post", nil))
		return
	}

	if err := a.store.DeletePost(ctx, msg.PostID); err != nil {
		context.Respond(err)
		return
	}
	context.Respond(true)
}

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}
