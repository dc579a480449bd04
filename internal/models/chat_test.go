package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, a))
}

func TestPairKeyFormat(t *testing.T) {
	a, _ := primitive.ObjectIDFromHex("000000000000000000000001")
	b, _ := primitive.ObjectIDFromHex("000000000000000000000002")

	// Lower hex always comes first.
	assert.Equal(t, a.Hex()+":"+b.Hex(), PairKey(b, a))
}

func TestVoteType(t *testing.T) {
	assert.True(t, VoteUp.IsValid())
	assert.True(t, VoteDown.IsValid())
	assert.False(t, VoteType("sideways").IsValid())

	assert.Equal(t, VoteDown, VoteUp.Opposite())
	assert.Equal(t, VoteUp, VoteDown.Opposite())
}
