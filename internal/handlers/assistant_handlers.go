package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/cache"
	"peerbridge/internal/models"
)

// Assistant flags select which helper answers the query.
const (
	AssistantFlagUsers = "USERS"
	AssistantFlagPosts = "POSTS"
	AssistantFlagAI    = "AI"
)

// AssistantRequest is a free-form query plus the flag choosing the helper.
type AssistantRequest struct {
	UserInput string `json:"userInput" validate:"required"`
	Flag      string `json:"flag" validate:"required,oneof=USERS POSTS AI"`
}

// MatchedUser is the matchmaking result shape.
type MatchedUser struct {
	ID           primitive.ObjectID        `json:"id"`
	FullName     string                    `json:"fullname"`
	Availability models.AvailabilityStatus `json:"availabilityStatus"`
	ProfileImage string                    `json:"profileImage,omitempty"`
}

// MatchedPost is the post-matching result shape.
type MatchedPost struct {
	ID    primitive.ObjectID `json:"id"`
	Title string             `json:"title"`
	Image string             `json:"image,omitempty"`
}

// HandleAssistant serves matchmaking, post matching, and free-form advice
// behind a single endpoint.
func (s *Server) HandleAssistant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		var req AssistantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.Validate.Struct(&req); err != nil {
			http.Error(w, "Invalid flag value provided.", http.StatusBadRequest)
			return
		}

		// Identical queries are answered from cache while the entry lives.
		cacheKey := cache.AssistantKey(req.Flag, req.UserInput)
		if cached, ok := s.Cache.Get(r.Context(), cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		}

		var (
			response interface{}
			err      error
		)
		switch req.Flag {
		case AssistantFlagUsers:
			response, err = s.assistantMatchUsers(r, callerID, req.UserInput)
		case AssistantFlagPosts:
			response, err = s.assistantMatchPosts(r, req.UserInput)
		case AssistantFlagAI:
			var answer string
			answer, err = s.AI.Advise(r.Context(), req.UserInput)
			response = map[string]string{"answer": answer}
		}

		// The assistant is best effort end to end: a failed completion
		// degrades to the no-matches answer (or a fixed fallback for advice)
		// instead of failing the request. Degraded answers are not cached so
		// a recovered service is consulted again.
		if err != nil {
			log.Printf("HTTP Handler: Assistant %s query failed: %v", req.Flag, err)
			if req.Flag == AssistantFlagAI {
				response = map[string]string{"answer": "An error occurred while fetching the answer."}
			} else {
				response = map[string]string{"message": "No matching results found."}
			}
			respondJSON(w, http.StatusOK, response)
			return
		}

		if encoded, err := json.Marshal(response); err == nil {
			s.Cache.Set(r.Context(), cacheKey, string(encoded))
		}
		respondJSON(w, http.StatusOK, response)
	}
}

func (s *Server) assistantMatchUsers(r *http.Request, callerID primitive.ObjectID, userInput string) (interface{}, error) {
	caller, err := s.MongoDB.GetUser(r.Context(), callerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.MongoDB.ListAvailableUsers(r.Context(), callerID)
	if err != nil {
		return nil, err
	}

	rankedIDs, err := s.AI.MatchUsers(r.Context(), userInput, caller.DisabilityType, candidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]*models.User, len(candidates))
	for _, u := range candidates {
		byID[u.ID] = u
	}

	// IDs the model invented, and the caller, are dropped.
	var matched []MatchedUser
	for _, id := range rankedIDs {
		u, ok := byID[id]
		if !ok || id == callerID {
			continue
		}
		matched = append(matched, MatchedUser{
			ID:           u.ID,
			FullName:     u.FullName(),
			Availability: u.Availability,
			ProfileImage: u.ProfileImage,
		})
	}
	if len(matched) == 0 {
		return map[string]string{"message": "No matching results found."}, nil
	}
	return matched, nil
}

func (s *Server) assistantMatchPosts(r *http.Request, userInput string) (interface{}, error) {
	candidates, err := s.MongoDB.ListPosts(r.Context(), 200)
	if err != nil {
		return nil, err
	}

	rankedIDs, err := s.AI.MatchPosts(r.Context(), userInput, candidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]*models.Post, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	var matched []MatchedPost
	for _, id := range rankedIDs {
		p, ok := byID[id]
		if !ok {
			continue
		}
		matched = append(matched, MatchedPost{
			ID:    p.ID,
			Title: p.Title,
			Image: p.Image,
		})
	}
	if len(matched) == 0 {
		return map[string]string{"message": "No matching results found."}, nil
	}
	return matched, nil
}
