package core

// Client is one live push connection of a user as seen by the core layer.
type Client struct {
	ID     string
	UserID string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Events: make(chan *Event, 16),
	}
}
