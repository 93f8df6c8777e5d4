package inbox

// PairKey returns the canonical key of the unordered pair {a, b}.
// Every grouping and lookup of a two-party thread goes through it.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}

// Counterpart returns the participant of m that is not viewerID.
// ok is false when m does not involve the viewer or is addressed to its own sender.
func Counterpart(m Message, viewerID string) (string, bool) {
	if m.SenderID == "" || m.RecipientID == "" || m.SenderID == m.RecipientID {
		return "", false
	}
	switch viewerID {
	case m.SenderID:
		return m.RecipientID, true
	case m.RecipientID:
		return m.SenderID, true
	default:
		return "", false
	}
}
