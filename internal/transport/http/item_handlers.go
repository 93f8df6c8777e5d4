package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/store"
)

// ItemHandlers provides HTTP handlers for lost and found listings.
type ItemHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewItemHandlers creates a new item handlers instance.
func NewItemHandlers(st store.Store, logger *zerolog.Logger) *ItemHandlers {
	return &ItemHandlers{
		store: st,
		log:   logger,
	}
}

// CreateItemRequest represents the create item request body.
type CreateItemRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=lost found"`
	Title       string `json:"title" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"max=2000"`
	Location    string `json:"location" binding:"max=200"`
}

// ItemResponse represents a listing in API responses.
type ItemResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CreateItem handles listing creation.
// POST /api/items
func (h *ItemHandlers) CreateItem(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create item request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title is required"})
		return
	}

	item, err := h.store.CreateItem(c.Request.Context(), &store.Item{
		OwnerID:     uid,
		Kind:        store.ItemKind(req.Kind),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
	})
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", uid).Msg("failed to create item")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("item_id", item.ID).Str("owner_id", uid).Str("kind", string(item.Kind)).Msg("item created successfully")
	c.JSON(http.StatusCreated, toItemResponse(item))
}

// ListItems handles listing the newest listings.
// GET /api/items?kind=lost|found&limit=n
func (h *ItemHandlers) ListItems(c *gin.Context) {
	var kind *store.ItemKind
	if raw := c.Query("kind"); raw != "" {
		k := store.ItemKind(raw)
		if !k.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "kind must be lost or found"})
			return
		}
		kind = &k
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive number"})
			return
		}
		limit = n
	}

	items, err := h.store.ListItems(c.Request.Context(), kind, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list items")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toItemResponse(item))
	}
	c.JSON(http.StatusOK, response)
}
