package core

// Mailbox groups the live clients of one user.
type Mailbox struct {
	UserID  string
	clients map[*Client]struct{}
}

// NewMailbox constructs a mailbox with no clients.
func NewMailbox(userID string) *Mailbox {
	return &Mailbox{
		UserID:  userID,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client. Returns true if newly added.
func (m *Mailbox) AddClient(c *Client) bool {
	if _, exists := m.clients[c]; exists {
		return false
	}
	m.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client. Returns true if removed.
func (m *Mailbox) RemoveClient(c *Client) bool {
	if _, exists := m.clients[c]; !exists {
		return false
	}
	delete(m.clients, c)
	return true
}

// Deliver sends an event to every client of the user and returns how many got it.
func (m *Mailbox) Deliver(event *Event) int {
	delivered := 0
	for client := range m.clients {
		select {
		case client.Events <- event:
			delivered++
		default:
			// Drop if slow consumer; the client's next poll picks the message up.
		}
	}
	return delivered
}

// Empty returns true if the user has no live clients.
func (m *Mailbox) Empty() bool {
	return len(m.clients) == 0
}
