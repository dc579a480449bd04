package actors

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"
)

// fakePostStore mirrors the vote semantics of the real store: first vote
// records a ballot, repeating the same vote fails, the opposite vote flips
// the ballot and moves both counters.
type fakePostStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*models.Post
	owned map[primitive.ObjectID][]primitive.ObjectID
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{
		posts: make(map[primitive.ObjectID]*models.Post),
		owned: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (s *fakePostStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	s.posts[post.ID] = post
	return nil
}

func (s *fakePostStore) AddUserPost(_ context.Context, userID, postID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned[userID] = append(s.owned[userID], postID)
	return nil
}

func (s *fakePostStore) GetPost(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post, ok := s.posts[id]; ok {
		return post, nil
	}
	return nil, utils.NewAppError(utils.ErrNotFound, "Post not found", nil)
}

func (s *fakePostStore) ListPosts(_ context.Context, _ int) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Post
	for _, post := range s.posts {
		out = append(out, post)
	}
	return out, nil
}

func (s *fakePostStore) CastVote(_ context.Context, postID, userID primitive.ObjectID, voteType models.VoteType) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "Post not found", nil)
	}

	for i, ballot := range post.Voters {
		if ballot.UserID != userID {
			continue
		}
		if ballot.VoteType == voteType {
			return nil, utils.NewAlreadyVotedError(postID.Hex())
		}
		post.Voters[i].VoteType = voteType
		if voteType == models.VoteUp {
			post.Upvotes++
			post.Downvotes--
		} else {
			post.Downvotes++
			post.Upvotes--
		}
		return post, nil
	}

	post.Voters = append(post.Voters, models.Ballot{UserID: userID, VoteType: voteType})
	if voteType == models.VoteUp {
		post.Upvotes++
	} else {
		post.Downvotes++
	}
	return post, nil
}

func (s *fakePostStore) SearchPosts(_ context.Context, query string, _ int) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Post
	for _, post := range s.posts {
		if strings.Contains(strings.ToLower(post.Title), strings.ToLower(query)) {
			out = append(out, post)
		}
	}
	return out, nil
}

func (s *fakePostStore) DeletePost(_ context.Context, postID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return utils.NewAppError(utils.ErrNotFound, "Post not found", nil)
	}
	delete(s.posts, postID)
	return nil
}

func spawnPostActor(t *testing.T, store PostStore) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(store, utils.NewMetricsCollector())
	})
	return system, system.Root.Spawn(props)
}

func createPost(t *testing.T, system *actor.ActorSystem, pid *actor.PID, author primitive.ObjectID) *models.Post {
	t.Helper()
	result, err := system.Root.RequestFuture(pid, &CreatePostMsg{
		Title:    "Finding a support group",
		Content:  "Looking for others who went through the same diagnosis",
		AuthorID: author,
	}, 5*time.Second).Result()
	require.NoError(t, err)
	post, ok := result.(*models.Post)
	require.True(t, ok, "expected a post, got %T", result)
	return post
}

func TestVoteLifecycle(t *testing.T) {
	store := newFakePostStore()
	system, pid := spawnPostActor(t, store)

	author := primitive.NewObjectID()
	voter := primitive.NewObjectID()
	post := createPost(t, system, pid, author)

	vote := func(v models.VoteType) interface{} {
		result, err := system.Root.RequestFuture(pid, &VotePostMsg{
			PostID: post.ID,
			UserID: voter,
			Vote:   v,
		}, 5*time.Second).Result()
		require.NoError(t, err)
		return result
	}

	// Fresh upvote.
	updated, ok := vote(models.VoteUp).(*models.Post)
	require.True(t, ok)
	assert.Equal(t, 1, updated.Upvotes)
	assert.Equal(t, 0, updated.Downvotes)

	// Repeating the same vote is rejected and changes nothing.
	appErr, ok := vote(models.VoteUp).(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrAlreadyVoted, appErr.Code)

	current, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Upvotes)
	assert.Equal(t, 0, current.Downvotes)

	// Switching sides moves both counters.
	updated, ok = vote(models.VoteDown).(*models.Post)
	require.True(t, ok)
	assert.Equal(t, 0, updated.Upvotes)
	assert.Equal(t, 1, updated.Downvotes)
	got, voted := updated.VoteOf(voter)
	assert.True(t, voted)
	assert.Equal(t, models.VoteDown, got)
}

func TestVoteCountersNeverGoNegative(t *testing.T) {
	store := newFakePostStore()
	system, pid := spawnPostActor(t, store)

	post := createPost(t, system, pid, primitive.NewObjectID())

	// Many voters flipping back and forth; counters must always equal the
	// ballot tallies.
	voters := make([]primitive.ObjectID, 5)
	for i := range voters {
		voters[i] = primitive.NewObjectID()
	}
	sequence := []models.VoteType{models.VoteDown, models.VoteUp, models.VoteDown}
	for _, v := range sequence {
		for _, voter := range voters {
			_, err := system.Root.RequestFuture(pid, &VotePostMsg{
				PostID: post.ID,
				UserID: voter,
				Vote:   v,
			}, 5*time.Second).Result()
			require.NoError(t, err)
		}
	}

	current, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, ballot := range current.Voters {
		if ballot.VoteType == models.VoteUp {
			ups++
		} else {
			downs++
		}
	}
	assert.Equal(t, ups, current.Upvotes)
	assert.Equal(t, downs, current.Downvotes)
	assert.GreaterOrEqual(t, current.Upvotes, 0)
	assert.GreaterOrEqual(t, current.Downvotes, 0)
}

func TestVoteRejectsUnknownPostAndBadVote(t *testing.T) {
	store := newFakePostStore()
	system, pid := spawnPostActor(t, store)

	result, err := system.Root.RequestFuture(pid, &VotePostMsg{
		PostID: primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		Vote:   models.VoteUp,
	}, 5*time.Second).Result()
	require.NoError(t, err)
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrNotFound, appErr.Code)

	post := createPost(t, system, pid, primitive.NewObjectID())
	result, err = system.Root.RequestFuture(pid, &VotePostMsg{
		PostID: post.ID,
		UserID: primitive.NewObjectID(),
		Vote:   models.VoteType("sideways"),
	}, 5*time.Second).Result()
	require.NoError(t, err)
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestDeletePostAuthorization(t *testing.T) {
	store := newFakePostStore()
	system, pid := spawnPostActor(t, store)

	author := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	post := createPost(t, system, pid, author)

	// A stranger with the plain User role cannot delete.
	result, err := system.Root.RequestFuture(pid, &DeletePostMsg{
		PostID: post.ID,
		UserID: stranger,
		Role:   models.RoleUser,
	}, 5*time.Second).Result()
	require.NoError(t, err)
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)

	// A moderator can.
	result, err = system.Root.RequestFuture(pid, &DeletePostMsg{
		PostID: post.ID,
		UserID: stranger,
		Role:   models.RoleModerator,
	}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, true, result)
}
