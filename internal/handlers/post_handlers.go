package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/engine/actors"
	"peerbridge/internal/models"
	"peerbridge/internal/storage"
)

// CreatePostRequest represents a request to create a new post
type CreatePostRequest struct {
	Title   string   `json:"title" validate:"required,min=3,max=200"`
	Content string   `json:"content" validate:"required"`
	Image   string   `json:"image"`
	Tags    []string `json:"tags"`
}

// VoteRequest represents a request to vote on a post
type VoteRequest struct {
	PostID string          `json:"postId" validate:"required"`
	Vote   models.VoteType `json:"vote" validate:"required"`
}

// HandlePost handles post creation, retrieval, and deletion.
func (s *Server) HandlePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleCreatePost(w, r)
		case http.MethodGet:
			s.handleGetPosts(w, r)
		case http.MethodDelete:
			s.handleDeletePost(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := s.Validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Named tags are lazily created; unknown names become new tags.
	var tagIDs []primitive.ObjectID
	for _, name := range req.Tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := s.MongoDB.FindOrCreateTag(r.Context(), name)
		if err != nil {
			log.Printf("HTTP Handler: Failed to upsert tag %q: %v", name, err)
			continue
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	result, err := s.askActor(s.Engine.GetPostActor(), &actors.CreatePostMsg{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: callerID,
		Image:    req.Image,
		Tags:     tagIDs,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	post, ok := result.(*models.Post)
	if !ok {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// AI tags for search and matchmaking, extracted after the post exists.
	go s.applyPostAITags(post.ID, req.Title, req.Content)

	respondJSON(w, http.StatusCreated, post)
}

func (s *Server) handleGetPosts(w http.ResponseWriter, r *http.Request) {
	if rawID := r.URL.Query().Get("id"); rawID != "" {
		postID, err := primitive.ObjectIDFromHex(rawID)
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}
		result, err := s.askActor(s.Engine.GetPostActor(), &actors.GetPostMsg{PostID: postID})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}

	result, err := s.askActor(s.Engine.GetPostActor(), &actors.ListPostsMsg{Limit: limit})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := objectIDFromQuery(w, r, "id")
	if !ok {
		return
	}
	callerID, callerRole, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	result, err := s.askActor(s.Engine.GetPostActor(), &actors.DeletePostMsg{
		PostID: postID,
		UserID: callerID,
		Role:   callerRole,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": result})
}

// HandleVote handles post voting
func (s *Server) HandleVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		var req VoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.Validate.Struct(&req); err != nil {
			http.Error(w, "Missing required fields", http.StatusBadRequest)
			return
		}

		postID, err := primitive.ObjectIDFromHex(req.PostID)
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		result, err := s.askActor(s.Engine.GetPostActor(), &actors.VotePostMsg{
			PostID: postID,
			UserID: callerID,
			Vote:   req.Vote,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleSearchPosts searches posts by title, tags, and content.
func (s *Server) HandleSearchPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			http.Error(w, "Search query required", http.StatusBadRequest)
			return
		}

		limit := 50
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			fmt.Sscanf(limitStr, "%d", &limit)
		}

		result, err := s.askActor(s.Engine.GetPostActor(), &actors.SearchPostsMsg{Query: query, Limit: limit})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandlePostImageUpload stores a post image and returns its URL for use in a
// subsequent post creation.
func (s *Server) HandlePostImageUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if _, _, ok := callerFromContext(w, r); !ok {
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "image file required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		_, imageURL, err := s.Images.UploadImage(r.Context(), storage.PostImageFolder, header.Filename, file, header.Size)
		if err != nil {
			log.Printf("HTTP Handler: Post image upload failed: %v", err)
			http.Error(w, "Failed to store image", http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"image": imageURL})
	}
}

// applyPostAITags extracts tags from the post text and stores them on the
// post. Best effort only.
func (s *Server) applyPostAITags(postID primitive.ObjectID, title, content string) {
	ctx, cancel := backgroundContext()
	defer cancel()

	tags, err := s.AI.ExtractTags(ctx, []string{title, content})
	if err != nil {
		log.Printf("HTTP Handler: Tag extraction failed for post %s: %v", postID.Hex(), err)
		return
	}
	if len(tags) == 0 {
		return
	}
	if err := s.MongoDB.SetPostAITags(ctx, postID, tags); err != nil {
		log.Printf("HTTP Handler: Failed to store AI tags on post %s: %v", postID.Hex(), err)
	}
}
