package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
)

// CreateCommentRequest creates either a top-level comment on a post or a
// reply to an existing comment.
type CreateCommentRequest struct {
	PostID          string `json:"postId" validate:"required"`
	ParentCommentID string `json:"parentCommentId"`
	Content         string `json:"content" validate:"required"`
}

// HandleComment handles comment creation and retrieval.
func (s *Server) HandleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleCreateComment(w, r)
		case http.MethodGet:
			s.handleGetComments(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := s.Validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	postID, err := primitive.ObjectIDFromHex(req.PostID)
	if err != nil {
		http.Error(w, "Invalid post ID format", http.StatusBadRequest)
		return
	}

	// The post must exist before anything is attached to it.
	if _, err := s.MongoDB.GetPost(r.Context(), postID); err != nil {
		respondError(w, err)
		return
	}

	comment := &models.Comment{
		AuthorID: callerID,
		Content:  req.Content,
	}
	if err := s.MongoDB.CreateComment(r.Context(), comment); err != nil {
		respondError(w, err)
		return
	}

	if req.ParentCommentID != "" {
		parentID, err := primitive.ObjectIDFromHex(req.ParentCommentID)
		if err != nil {
			http.Error(w, "Invalid parent comment ID format", http.StatusBadRequest)
			return
		}
		if err := s.MongoDB.AddSubcomment(r.Context(), parentID, comment.ID); err != nil {
			respondError(w, err)
			return
		}
	} else {
		if err := s.MongoDB.AddPostComment(r.Context(), postID, comment.ID); err != nil {
			respondError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	// Either the direct children of a comment or the top level of a post.
	if rawID := r.URL.Query().Get("commentId"); rawID != "" {
		commentID, err := primitive.ObjectIDFromHex(rawID)
		if err != nil {
			http.Error(w, "Invalid commentId format", http.StatusBadRequest)
			return
		}
		comment, err := s.MongoDB.GetComment(r.Context(), commentID)
		if err != nil {
			respondError(w, err)
			return
		}
		children, err := s.MongoDB.GetCommentsByIDs(r.Context(), comment.Subcomments)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, children)
		return
	}

	postID, ok := objectIDFromQuery(w, r, "postId")
	if !ok {
		return
	}

	post, err := s.MongoDB.GetPost(r.Context(), postID)
	if err != nil {
		respondError(w, err)
		return
	}

	comments, err := s.MongoDB.GetCommentsByIDs(r.Context(), post.Comments)
	if err != nil {
		respondError(w, err)
		return
	}

	thread, err := s.buildCommentThread(r, comments)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, thread)
}

// CommentThread is a top-level comment with its direct replies resolved.
// Deeper replies stay as id references in each reply's subcomments.
type CommentThread struct {
	models.Comment
	Replies []*models.Comment `json:"replies"`
}

// buildCommentThread resolves the first level of replies for a set of
// top-level comments with a single batched lookup.
func (s *Server) buildCommentThread(r *http.Request, comments []*models.Comment) ([]*CommentThread, error) {
	var replyIDs []primitive.ObjectID
	for _, comment := range comments {
		replyIDs = append(replyIDs, comment.Subcomments...)
	}

	var byID map[primitive.ObjectID]*models.Comment
	if len(replyIDs) > 0 {
		replies, err := s.MongoDB.GetCommentsByIDs(r.Context(), replyIDs)
		if err != nil {
			return nil, err
		}
		byID = make(map[primitive.ObjectID]*models.Comment, len(replies))
		for _, reply := range replies {
			byID[reply.ID] = reply
		}
	}

	thread := make([]*CommentThread, 0, len(comments))
	for _, comment := range comments {
		node := &CommentThread{Comment: *comment, Replies: []*models.Comment{}}
		for _, id := range comment.Subcomments {
			if reply, ok := byID[id]; ok {
				node.Replies = append(node.Replies, reply)
			}
		}
		thread = append(thread, node)
	}
	return thread, nil
}
