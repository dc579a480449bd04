package models

// VoteType represents the direction of a ballot on a post.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// IsValid reports whether v is a well-formed vote type.
func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

// Opposite returns the other vote direction.
func (v VoteType) Opposite() VoteType {
	if v == VoteUp {
		return VoteDown
	}
	return VoteUp
}
