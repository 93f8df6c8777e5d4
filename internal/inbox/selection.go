package inbox

// Selection tracks which counterpart's thread is open. It stores only the id and
// looks the thread up again on every read, so replaced Conversation values never
// leave the open view pointing at stale data.
type Selection struct {
	active string
}

// Select opens the thread with counterpartID. It reports false when that thread
// was already open.
func (s *Selection) Select(counterpartID string) bool {
	if counterpartID == "" || s.active == counterpartID {
		return false
	}
	s.active = counterpartID
	return true
}

// Clear closes the open thread.
func (s *Selection) Clear() {
	s.active = ""
}

// Active returns the open counterpart id.
func (s *Selection) Active() (string, bool) {
	return s.active, s.active != ""
}

// Current finds the open thread in conversations, or nil when nothing is open
// or the counterpart has no thread.
func (s *Selection) Current(conversations []*Conversation) *Conversation {
	if s.active == "" {
		return nil
	}
	for _, c := range conversations {
		if c != nil && c.CounterpartID == s.active {
			return c
		}
	}
	return nil
}
