package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/proto"
	"github.com/vovakirdan/lostfound/internal/service/messages"
)

// MessageHandlers provides HTTP handlers for direct messages.
type MessageHandlers struct {
	service *messages.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(service *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: service,
		log:     logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	ItemID      string `json:"item_id"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
}

// ConversationResponse is one thread of the viewer.
type ConversationResponse struct {
	Key              string              `json:"key"`
	CounterpartID    string              `json:"counterpart_id"`
	CounterpartLabel string              `json:"counterpart_label"`
	ItemID           string              `json:"item_id,omitempty"`
	Messages         []proto.MessageData `json:"messages"`
}

// MarkReadResponse reports how many messages were marked read.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// ListMessages returns every message the viewer sent or received, newest first.
// GET /api/messages
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	msgs, err := h.service.List(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.MessageData, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, messageDataFromStore(m))
	}
	c.JSON(http.StatusOK, response)
}

// SendMessage stores a message from the viewer and pushes it to both participants.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	stored, err := h.service.Send(c.Request.Context(), uid, req.ItemID, req.RecipientID, req.Body)
	if err != nil {
		status, code := sendErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("sender_id", uid).Msg("failed to send message")
			c.JSON(status, ErrorResponse{Error: "internal server error"})
			return
		}
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	c.JSON(http.StatusCreated, messageDataFromStore(stored))
}

// ListConversations returns the viewer's threads, most recent first.
// GET /api/conversations
func (h *MessageHandlers) ListConversations(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	convs, err := h.service.Conversations(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		response = append(response, toConversationResponse(conv))
	}
	c.JSON(http.StatusOK, response)
}

// MarkRead stamps the counterpart's unread messages to the viewer as read.
// POST /api/conversations/:counterpart_id/read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	n, err := h.service.MarkRead(c.Request.Context(), uid, c.Param("counterpart_id"))
	if err != nil {
		if errors.Is(err, messages.ErrMissingRecipient) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: core.ErrCodeBadRequest})
			return
		}
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to mark messages read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MarkReadResponse{Updated: n})
}

func sendErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, messages.ErrMissingItem), errors.Is(err, messages.ErrMissingRecipient):
		return http.StatusBadRequest, core.ErrCodeBadRequest
	case errors.Is(err, messages.ErrEmptyBody):
		return http.StatusBadRequest, core.ErrCodeEmptyBody
	case errors.Is(err, messages.ErrBodyTooLong):
		return http.StatusBadRequest, core.ErrCodeBodyTooLong
	case errors.Is(err, messages.ErrSelfMessage):
		return http.StatusBadRequest, core.ErrCodeSelfMessage
	case errors.Is(err, messages.ErrRecipientUnknown):
		return http.StatusNotFound, core.ErrCodeUnknownRecipient
	case errors.Is(err, messages.ErrItemNotFound):
		return http.StatusNotFound, core.ErrCodeItemNotFound
	default:
		return http.StatusInternalServerError, ""
	}
}
