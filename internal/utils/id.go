package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks identifiers minted on the client before the store assigns one.
const LocalIDPrefix = "local-"

// NewID returns a random unique identifier.
func NewID() string {
	return uuid.NewString()
}

// NewOrderedID returns a time-ordered identifier (UUIDv7), so lexical order follows creation order.
func NewOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if the entropy source is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}

// NewLocalID returns a placeholder identifier for an unconfirmed message.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}
