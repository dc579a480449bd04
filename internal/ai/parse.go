package ai

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SplitCommaList splits a comma-delimited completion into trimmed, non-empty
// items, deduplicated case-insensitively while preserving order.
func SplitCommaList(content string) []string {
	seen := make(map[string]bool)
	var items []string
	for _, part := range strings.Split(content, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	return items
}

// ParseObjectIDList extracts valid 24-character hex object IDs from a
// comma-delimited completion, preserving the model's ordering. Anything that
// is not a well-formed ID (prose, apologies, truncated hex) is dropped.
func ParseObjectIDList(content string) []primitive.ObjectID {
	var ids []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, part := range strings.Split(content, ",") {
		token := strings.TrimSpace(part)
		if len(token) != 24 || !isHex(token) {
			continue
		}
		id, err := primitive.ObjectIDFromHex(token)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
