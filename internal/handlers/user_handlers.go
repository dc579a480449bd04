package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"peerbridge/internal/middleware"
	"peerbridge/internal/models"
	"peerbridge/internal/storage"
)

// RegisterUserRequest represents a request to register a new user
type RegisterUserRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=32"`
	Password       string `json:"password" validate:"required,min=8"`
	Name           string `json:"name" validate:"required"`
	Surname        string `json:"surname" validate:"required"`
	Age            int    `json:"age" validate:"gte=0,lte=120"`
	Gender         string `json:"gender"`
	DisabilityType string `json:"disabilityType"`
	Experience     string `json:"experience"`
}

// LoginRequest represents a request to log in a user
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a response to a login request
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// UpdateUserRequest carries the fields a user may change after registration.
// Pointers distinguish "leave alone" from "set to zero value".
type UpdateUserRequest struct {
	Password       *string                    `json:"password,omitempty" validate:"omitempty,min=8"`
	Name           *string                    `json:"name,omitempty"`
	Surname        *string                    `json:"surname,omitempty"`
	Age            *int                       `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
	Gender         *string                    `json:"gender,omitempty"`
	DisabilityType *string                    `json:"disabilityType,omitempty"`
	Experience     *string                    `json:"experience,omitempty"`
	Availability   *models.AvailabilityStatus `json:"availabilityStatus,omitempty"`
	Role           *models.Role               `json:"role,omitempty"`
}

// HandleUserRegistration handles requests to register a new user
func (s *Server) HandleUserRegistration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req RegisterUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.Validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to process password", http.StatusInternalServerError)
			return
		}

		user := &models.User{
			Username:       req.Username,
			HashedPassword: string(hashed),
			Name:           req.Name,
			Surname:        req.Surname,
			Age:            req.Age,
			Gender:         req.Gender,
			Role:           models.RoleUser,
			DisabilityType: req.DisabilityType,
			Availability:   models.AvailableForMessages,
			Experience:     req.Experience,
		}

		if err := s.MongoDB.CreateUser(r.Context(), user); err != nil {
			respondError(w, err)
			return
		}

		// Tag extraction is best effort; registration already succeeded.
		if req.Experience != "" {
			s.applyExperienceTags(r, user.ID, req.Experience)
		}

		respondJSON(w, http.StatusCreated, user)
	}
}

// HandleUserLogin handles requests to log in a user
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		log.Printf("HTTP Handler: Received login request for username: %s", req.Username)

		user, err := s.MongoDB.GetUserByUsername(r.Context(), req.Username)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, &LoginResponse{Success: false, Error: "Invalid credentials"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
			respondJSON(w, http.StatusUnauthorized, &LoginResponse{Success: false, Error: "Invalid credentials"})
			return
		}

		token, err := s.Auth.GenerateToken(user.ID, user.Role)
		if err != nil {
			log.Printf("HTTP Handler: Failed to generate token: %v", err)
			http.Error(w, "Failed to generate auth token", http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusOK, &LoginResponse{
			Success: true,
			Token:   token,
			UserID:  user.ID.Hex(),
		})
	}
}

// HandleUserProfile handles requests to get a user's profile
func (s *Server) HandleUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := objectIDFromQuery(w, r, "userId")
		if !ok {
			return
		}

		user, err := s.MongoDB.GetUser(r.Context(), userID)
		if err != nil {
			respondError(w, err)
			return
		}

		tags, err := s.MongoDB.GetTagsByIDs(r.Context(), user.Tags)
		if err != nil {
			log.Printf("HTTP Handler: Failed to resolve tags for user %s: %v", userID.Hex(), err)
		}

		respondJSON(w, http.StatusOK, struct {
			*models.User
			ResolvedTags []*models.Tag `json:"resolvedTags"`
		}{user, tags})
	}
}

// HandleGetAllUsers handles requests to get all users
func (s *Server) HandleGetAllUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		users, err := s.MongoDB.ListUsers(r.Context())
		if err != nil {
			http.Error(w, "Failed to fetch users", http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusOK, users)
	}
}

// HandleUserUpdate handles partial profile updates. Callers can change their
// own profile; admins can change anyone's, including the role.
func (s *Server) HandleUserUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut && r.Method != http.MethodPatch {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		targetID, ok := objectIDFromQuery(w, r, "userId")
		if !ok {
			return
		}
		callerID, callerRole, ok := callerFromContext(w, r)
		if !ok {
			return
		}
		if callerID != targetID && callerRole != models.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var req UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.Validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fields := bson.M{}
		if req.Password != nil {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				http.Error(w, "Failed to process password", http.StatusInternalServerError)
				return
			}
			fields["hashedPassword"] = string(hashed)
		}
		if req.Name != nil {
			fields["name"] = *req.Name
		}
		if req.Surname != nil {
			fields["surname"] = *req.Surname
		}
		if req.Age != nil {
			fields["age"] = *req.Age
		}
		if req.Gender != nil {
			fields["gender"] = *req.Gender
		}
		if req.DisabilityType != nil {
			fields["disabilityType"] = *req.DisabilityType
		}
		if req.Experience != nil {
			fields["experience"] = *req.Experience
		}
		if req.Availability != nil {
			switch *req.Availability {
			case models.AvailableForCall, models.AvailableForMessages, models.Unavailable:
				fields["availabilityStatus"] = *req.Availability
			default:
				http.Error(w, "Invalid availability status", http.StatusBadRequest)
				return
			}
		}
		if req.Role != nil {
			if callerRole != models.RoleAdmin {
				http.Error(w, "Only admins may change roles", http.StatusForbidden)
				return
			}
			if !req.Role.IsValid() {
				http.Error(w, "Invalid role", http.StatusBadRequest)
				return
			}
			fields["role"] = *req.Role
		}

		if len(fields) > 0 {
			if err := s.MongoDB.UpdateUserFields(r.Context(), targetID, fields); err != nil {
				respondError(w, err)
				return
			}
		}

		if req.Experience != nil && *req.Experience != "" {
			s.applyExperienceTags(r, targetID, *req.Experience)
		}

		user, err := s.MongoDB.GetUser(r.Context(), targetID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

// HandleProfileImageUpload accepts a multipart upload and replaces the user's
// profile image.
func (s *Server) HandleProfileImageUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("profileImage")
		if err != nil {
			http.Error(w, "profileImage file required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		user, err := s.MongoDB.GetUser(r.Context(), callerID)
		if err != nil {
			respondError(w, err)
			return
		}

		_, imageURL, err := s.Images.UploadImage(r.Context(), storage.ProfileImageFolder, header.Filename, file, header.Size)
		if err != nil {
			log.Printf("HTTP Handler: Profile image upload failed for user %s: %v", callerID.Hex(), err)
			http.Error(w, "Failed to store image", http.StatusInternalServerError)
			return
		}

		if err := s.MongoDB.UpdateUserFields(r.Context(), callerID, bson.M{"profileImage": imageURL}); err != nil {
			respondError(w, err)
			return
		}

		// Drop the old object once the new URL is saved.
		if user.ProfileImage != "" {
			s.deleteStoredImage(r, user.ProfileImage)
		}

		respondJSON(w, http.StatusOK, map[string]string{"profileImage": imageURL})
	}
}

// HandleDeleteUser removes an account. Callers can delete themselves; admins
// can delete anyone.
func (s *Server) HandleDeleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		targetID, ok := objectIDFromQuery(w, r, "userId")
		if !ok {
			return
		}
		callerID, callerRole, ok := callerFromContext(w, r)
		if !ok {
			return
		}
		if callerID != targetID && callerRole != models.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		user, err := s.MongoDB.GetUser(r.Context(), targetID)
		if err != nil {
			respondError(w, err)
			return
		}

		if err := s.MongoDB.DeleteUser(r.Context(), targetID); err != nil {
			respondError(w, err)
			return
		}
		if user.ProfileImage != "" {
			s.deleteStoredImage(r, user.ProfileImage)
		}

		respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// applyExperienceTags runs AI tag extraction over the experience text and
// attaches the resulting tags to the user. Failures are logged, never
// propagated.
func (s *Server) applyExperienceTags(r *http.Request, userID primitive.ObjectID, experience string) {
	tags, err := s.AI.ExtractTags(r.Context(), []string{experience})
	if err != nil {
		log.Printf("HTTP Handler: Tag extraction failed for user %s: %v", userID.Hex(), err)
		return
	}

	var tagIDs []primitive.ObjectID
	for _, name := range tags {
		tag, err := s.MongoDB.FindOrCreateTag(r.Context(), name)
		if err != nil {
			log.Printf("HTTP Handler: Failed to upsert tag %q: %v", name, err)
			continue
		}
		tagIDs = append(tagIDs, tag.ID)
	}
	if len(tagIDs) == 0 {
		return
	}
	if err := s.MongoDB.AddUserTags(r.Context(), userID, tagIDs); err != nil {
		log.Printf("HTTP Handler: Failed to attach tags to user %s: %v", userID.Hex(), err)
	}

	// The raw tag names also live on the user so matchmaking prompts can
	// quote them without a join.
	if err := s.MongoDB.AddUserAITags(r.Context(), userID, tags); err != nil {
		log.Printf("HTTP Handler: Failed to record tag names on user %s: %v", userID.Hex(), err)
	}
}

func (s *Server) deleteStoredImage(r *http.Request, imageURL string) {
	objectName := storage.ObjectNameFromURL(imageURL, s.ImageBucket)
	if objectName == "" {
		return
	}
	if err := s.Images.DeleteImage(r.Context(), objectName); err != nil {
		log.Printf("HTTP Handler: Failed to delete old image %s: %v", objectName, err)
	}
}

// objectIDFromQuery parses a required hex ID query parameter, writing the
// error response itself on failure.
func objectIDFromQuery(w http.ResponseWriter, r *http.Request, key string) (primitive.ObjectID, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		http.Error(w, key+" required", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		http.Error(w, "Invalid "+key+" format", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

// callerFromContext pulls the authenticated user out of the request context.
func callerFromContext(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, models.Role, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, "", false
	}
	role, _ := middleware.GetRoleFromContext(r.Context())
	return userID, role, true
}
