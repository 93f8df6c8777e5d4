package inbox

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// UnknownLabel is shown for a counterpart whose identity cannot be resolved.
const UnknownLabel = "Unknown"

// LabelResolver maps user ids to display labels in one batched call.
// Ids it cannot resolve are simply absent from the result.
type LabelResolver interface {
	ResolveLabels(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Projector groups a flat message list into conversations for one viewer.
type Projector struct {
	resolver LabelResolver
	log      zerolog.Logger
}

// NewProjector builds a projector. A nil resolver labels everyone as Unknown.
func NewProjector(resolver LabelResolver, logger zerolog.Logger) *Projector {
	return &Projector{resolver: resolver, log: logger}
}

// Group partitions messages into threads keyed by counterpart id, without labels.
// Messages that do not involve the viewer, or that a user addressed to themselves,
// are dropped. Duplicate ids collapse to one entry.
func Group(messages []Message, viewerID string) map[string][]Message {
	groups := make(map[string][]Message)
	seen := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		counterpart, ok := Counterpart(m, viewerID)
		if !ok {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		groups[counterpart] = append(groups[counterpart], m)
	}
	return groups
}

// Project builds the ordered conversation list for viewerID.
// known supplies labels to fall back on when the resolver fails; it may be nil.
// The result is ordered by most recent message first.
func (p *Projector) Project(ctx context.Context, messages []Message, viewerID string, known map[string]string) []*Conversation {
	groups := Group(messages, viewerID)
	if skipped := countSkipped(messages, viewerID); skipped > 0 {
		p.log.Debug().Int("skipped", skipped).Str("viewer_id", viewerID).Msg("messages outside viewer threads ignored")
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	labels := p.resolve(ctx, ids, known)

	convs := make([]*Conversation, 0, len(groups))
	for id, msgs := range groups {
		convs = append(convs, buildConversation(id, viewerID, labels[id], msgs))
	}
	sortConversations(convs)
	return convs
}

// resolve returns a label for every id in ids, never failing.
func (p *Projector) resolve(ctx context.Context, ids []string, known map[string]string) map[string]string {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out
	}

	var (
		resolved map[string]string
		failed   bool
	)
	if p.resolver != nil {
		var err error
		resolved, err = p.resolver.ResolveLabels(ctx, ids)
		if err != nil {
			p.log.Warn().Err(err).Int("ids", len(ids)).Msg("label resolution failed")
			resolved, failed = nil, true
		}
	}

	for _, id := range ids {
		switch {
		case resolved[id] != "":
			out[id] = resolved[id]
		case failed && known[id] != "":
			// keep the last good label rather than flashing Unknown
			out[id] = known[id]
		default:
			out[id] = UnknownLabel
		}
	}
	return out
}

// label resolves a single counterpart.
func (p *Projector) label(ctx context.Context, id string, known map[string]string) string {
	return p.resolve(ctx, []string{id}, known)[id]
}

func countSkipped(messages []Message, viewerID string) int {
	n := 0
	for _, m := range messages {
		if _, ok := Counterpart(m, viewerID); !ok {
			n++
		}
	}
	return n
}
