package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
)

// fakeCompleter returns a canned completion and records the prompts it saw.
type fakeCompleter struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.response, f.err
}

func TestExtractTags(t *testing.T) {
	fake := &fakeCompleter{response: "peer counseling, wheelchair sports, accessibility audits"}
	svc := NewService(fake)

	tags, err := svc.ExtractTags(context.Background(), []string{"I coached wheelchair basketball for five years"})
	require.NoError(t, err)
	assert.Equal(t, []string{"peer counseling", "wheelchair sports", "accessibility audits"}, tags)
	assert.Contains(t, fake.lastUser, "wheelchair basketball")
}

func TestExtractTagsNoExperiences(t *testing.T) {
	fake := &fakeCompleter{response: "should never be called"}
	svc := NewService(fake)

	tags, err := svc.ExtractTags(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Empty(t, fake.lastUser)
}

func TestMatchUsers(t *testing.T) {
	u1 := &models.User{ID: primitive.NewObjectID(), Experience: "ASL interpreter", Availability: models.AvailableForCall}
	u2 := &models.User{ID: primitive.NewObjectID(), Experience: "guide dog trainer", Availability: models.AvailableForMessages}

	t.Run("Returns ranked IDs from the completion", func(t *testing.T) {
		fake := &fakeCompleter{response: u2.ID.Hex() + ", " + u1.ID.Hex()}
		svc := NewService(fake)

		ids, err := svc.MatchUsers(context.Background(), "learning sign language", "Hearing impairment", []*models.User{u1, u2})
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{u2.ID, u1.ID}, ids)

		// The prompt must carry every candidate so the model can rank them.
		assert.Contains(t, fake.lastUser, u1.ID.Hex())
		assert.Contains(t, fake.lastUser, u2.ID.Hex())
		assert.Contains(t, fake.lastUser, "Hearing impairment")
	})

	t.Run("Empty completion means no matches", func(t *testing.T) {
		svc := NewService(&fakeCompleter{response: ""})
		ids, err := svc.MatchUsers(context.Background(), "anything", "", []*models.User{u1})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("No candidates skips the API call", func(t *testing.T) {
		fake := &fakeCompleter{response: u1.ID.Hex()}
		svc := NewService(fake)
		ids, err := svc.MatchUsers(context.Background(), "anything", "", nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Empty(t, fake.lastUser)
	})

	t.Run("Propagates completer errors", func(t *testing.T) {
		svc := NewService(&fakeCompleter{err: errors.New("rate limited")})
		_, err := svc.MatchUsers(context.Background(), "anything", "", []*models.User{u1})
		assert.Error(t, err)
	})
}

func TestMatchPosts(t *testing.T) {
	p1 := &models.Post{ID: primitive.NewObjectID(), Title: "Applying for disability benefits", AITags: []string{"benefits", "paperwork"}}
	p2 := &models.Post{ID: primitive.NewObjectID(), Title: "Accessible hiking trails"}

	fake := &fakeCompleter{response: p1.ID.Hex()}
	svc := NewService(fake)

	ids, err := svc.MatchPosts(context.Background(), "how do I file benefit paperwork", []*models.Post{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p1.ID}, ids)
	assert.True(t, strings.Contains(fake.lastUser, "benefits, paperwork"))
}

func TestAdvise(t *testing.T) {
	fake := &fakeCompleter{response: "Start by requesting your medical records."}
	svc := NewService(fake)

	answer, err := svc.Advise(context.Background(), "what documents do I need")
	require.NoError(t, err)
	assert.Equal(t, "Start by requesting your medical records.", answer)
	assert.Contains(t, fake.lastUser, "what documents do I need")
}
