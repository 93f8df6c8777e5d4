package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/identity"
	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/store"
)

// maxLabelIDs bounds one batched label lookup.
const maxLabelIDs = 200

// UserHandlers provides HTTP handlers for user labels and profiles.
type UserHandlers struct {
	store  store.Store
	labels inbox.LabelResolver
	log    *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, labels inbox.LabelResolver, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:  st,
		labels: labels,
		log:    logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Label    string `json:"label"`
}

// LabelsResponse maps user ids to display labels. Unknown ids are absent.
type LabelsResponse struct {
	Labels map[string]string `json:"labels"`
}

// UpdateProfileRequest represents the profile update request body.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"max=80"`
}

// Labels resolves display labels for a batch of user ids.
// GET /api/labels?ids=a,b,c
func (h *UserHandlers) Labels(c *gin.Context) {
	var ids []string
	for _, raw := range c.QueryArray("ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) > maxLabelIDs {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "too many ids"})
		return
	}

	labels, err := h.labels.ResolveLabels(c.Request.Context(), ids)
	if err != nil {
		h.log.Error().Err(err).Int("count", len(ids)).Msg("failed to resolve labels")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if labels == nil {
		labels = map[string]string{}
	}
	c.JSON(http.StatusOK, LabelsResponse{Labels: labels})
}

// Profile returns one user's public profile.
// GET /api/profiles/:id
func (h *UserHandlers) Profile(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("profile_id", c.Param("id")).Msg("failed to load profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateProfile changes the viewer's display name.
// PATCH /api/profile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.UpdateFullName(ctx, uid, strings.TrimSpace(req.FullName)); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to update profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if cache, ok := h.labels.(*identity.Cache); ok {
		cache.Invalidate(uid)
	}

	user, err := h.store.GetUserByID(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to reload profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}
