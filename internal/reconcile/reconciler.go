package reconcile

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
	"wingmate/backend/internal/realtime"
)

// Registry is the client-side reconciliation state machine. It merges
// message-insert notifications and presence broadcasts for the matches
// the viewer is watching into one consistent view: a typing snapshot and
// an ordered, deduplicated message list per match, plus the
// activity-ordered conversation list with unread counts.
//
// The registry is the single writer of all of this state; inbound bus
// events and local user actions both funnel through it under one lock.
type Registry struct {
	mu  sync.Mutex
	log *logger.Logger
	bus realtime.Bus

	viewerID string
	matches  []models.MatchSummary
	states   map[string]*matchState
	subs     map[string]realtime.Subscription
}

// matchState is the per-match slice of the registry. It exists only while
// the match's realtime subscription is open.
type matchState struct {
	snapshot models.TypingSnapshot
	messages []models.Message
	seen     map[string]bool
}

func NewRegistry(log *logger.Logger, bus realtime.Bus, viewerID string) *Registry {
	return &Registry{
		log:      log.With("service", "Reconciler", "viewer_id", viewerID),
		bus:      bus,
		viewerID: viewerID,
		states:   make(map[string]*matchState),
		subs:     make(map[string]realtime.Subscription),
	}
}

// SetMatches replaces the conversation list, typically after the initial
// fetch. The list is kept ordered by most recent activity.
func (r *Registry) SetMatches(summaries []models.MatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append([]models.MatchSummary(nil), summaries...)
	r.sortMatchesLocked()
}

// Watch opens the realtime subscription for a match that entered the
// visible set. Watching twice is a no-op.
func (r *Registry) Watch(ctx context.Context, matchID string) error {
	r.mu.Lock()
	if _, ok := r.subs[matchID]; ok {
		r.mu.Unlock()
		return nil
	}
	if r.states[matchID] == nil {
		r.states[matchID] = newMatchState()
	}
	r.mu.Unlock()

	sub, err := r.bus.Subscribe(ctx, models.MatchTopic(matchID), func(ev models.Event) {
		r.apply(matchID, ev)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.subs[matchID] = sub
	r.mu.Unlock()
	return nil
}

// Unwatch tears the subscription down when the match leaves the visible
// set. The ephemeral typing state goes with it.
func (r *Registry) Unwatch(matchID string) {
	r.mu.Lock()
	sub, ok := r.subs[matchID]
	delete(r.subs, matchID)
	delete(r.states, matchID)
	r.mu.Unlock()
	if ok {
		_ = sub.Close()
	}
}

// Reset tears down every open subscription and clears all state
// (sign-out).
func (r *Registry) Reset() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]realtime.Subscription)
	r.states = make(map[string]*matchState)
	r.matches = nil
	r.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
}

// LoadHistory seeds a match's message list from a fetch, deduplicating
// against anything realtime already delivered, and marks the match read.
func (r *Registry) LoadHistory(matchID string, msgs []models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.stateLocked(matchID)
	for _, msg := range msgs {
		if state.seen[msg.ID] {
			continue
		}
		state.seen[msg.ID] = true
		state.messages = append(state.messages, msg)
	}
	sort.SliceStable(state.messages, func(i, j int) bool {
		return state.messages[i].CreatedAt.Before(state.messages[j].CreatedAt)
	})
	r.setUnreadLocked(matchID, 0)
}

// ComposerTyping broadcasts the viewer's manual typing signal. Best
// effort: failures are logged, never surfaced.
func (r *Registry) ComposerTyping(ctx context.Context, matchID string, active bool) {
	event := models.EventTyping
	if !active {
		event = models.EventTypingStop
	}
	payload := models.PresencePayload{MatchID: matchID, SenderID: r.viewerID}
	if err := r.bus.Publish(ctx, models.MatchTopic(matchID), event, payload); err != nil {
		r.log.Warn("typing publish failed", "match_id", matchID, "error", err)
	}
}

// Snapshot returns the current typing snapshot for a match.
func (r *Registry) Snapshot(matchID string) models.TypingSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[matchID]; ok {
		return state.snapshot
	}
	return models.TypingSnapshot{}
}

// Messages returns the ordered message list for a match.
func (r *Registry) Messages(matchID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[matchID]
	if !ok {
		return nil
	}
	return append([]models.Message(nil), state.messages...)
}

// Matches returns the conversation list ordered by most recent activity.
func (r *Registry) Matches() []models.MatchSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MatchSummary(nil), r.matches...)
}

// apply is the single transition function for inbound realtime events.
func (r *Registry) apply(matchID string, ev models.Event) {
	switch ev.Name {
	case models.EventAutopilotDrafting:
		if p, ok := decodePresence(ev.Payload); ok {
			r.setDrafting(matchID, p.SenderID, true)
		}
	case models.EventAutopilotDraftingDone:
		if p, ok := decodePresence(ev.Payload); ok {
			r.setDrafting(matchID, p.SenderID, false)
		}
	case models.EventTyping:
		if p, ok := decodePresence(ev.Payload); ok {
			r.setManualTyping(matchID, p.SenderID, true)
		}
	case models.EventTypingStop:
		if p, ok := decodePresence(ev.Payload); ok {
			r.setManualTyping(matchID, p.SenderID, false)
		}
	case models.EventMessageInserted:
		var msg models.Message
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			r.log.Warn("bad insert payload", "match_id", matchID, "error", err)
			return
		}
		r.applyInsert(matchID, msg)
	}
}

func (r *Registry) setDrafting(matchID, senderID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[matchID]
	if !ok {
		return
	}
	if senderID == r.viewerID {
		// The viewer's own autopilot locks the composer.
		state.snapshot.SelfDrafting = active
		return
	}
	// Counterpart drafting is advisory; it also shows the plain typing
	// indicator.
	state.snapshot.CounterpartDrafting = active
	state.snapshot.CounterpartTyping = active
}

func (r *Registry) setManualTyping(matchID, senderID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[matchID]
	if !ok || senderID == r.viewerID {
		return
	}
	state.snapshot.CounterpartTyping = active
}

// applyInsert merges one message-insert notification: dedupe, append,
// clear the presence flags for the side that just spoke, and update the
// conversation list.
func (r *Registry) applyInsert(matchID string, msg models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.stateLocked(matchID)
	if !state.seen[msg.ID] {
		state.seen[msg.ID] = true
		state.messages = append(state.messages, msg)
		if n := len(state.messages); n > 1 && msg.CreatedAt.Before(state.messages[n-2].CreatedAt) {
			sort.SliceStable(state.messages, func(i, j int) bool {
				return state.messages[i].CreatedAt.Before(state.messages[j].CreatedAt)
			})
		}
	}

	fromSelf := msg.SenderID != nil && *msg.SenderID == r.viewerID
	if fromSelf {
		// The viewer's message landed: unlock the composer, nothing
		// unread.
		state.snapshot.SelfDrafting = false
	} else {
		// Counterpart (human or persona sentinel) spoke: their
		// indicators are stale now.
		state.snapshot.CounterpartTyping = false
		state.snapshot.CounterpartDrafting = false
	}

	for i := range r.matches {
		if r.matches[i].ID != msg.MatchID {
			continue
		}
		created := msg.CreatedAt
		text := msg.Text
		r.matches[i].LastMessageAt = &created
		r.matches[i].LastMessageText = &text
		r.matches[i].LastMessageSenderID = msg.SenderID
		r.matches[i].LastMessageIsSeed = msg.IsSeed
		if fromSelf {
			r.matches[i].UnreadCount = 0
		} else {
			r.matches[i].UnreadCount++
		}
		break
	}
	r.sortMatchesLocked()
}

func (r *Registry) stateLocked(matchID string) *matchState {
	state, ok := r.states[matchID]
	if !ok {
		state = newMatchState()
		r.states[matchID] = state
	}
	return state
}

func (r *Registry) setUnreadLocked(matchID string, n int) {
	for i := range r.matches {
		if r.matches[i].ID == matchID {
			r.matches[i].UnreadCount = n
			return
		}
	}
}

func (r *Registry) sortMatchesLocked() {
	sort.SliceStable(r.matches, func(i, j int) bool {
		return r.matches[i].ActivityTime().After(r.matches[j].ActivityTime())
	})
}

func newMatchState() *matchState {
	return &matchState{seen: make(map[string]bool)}
}

func decodePresence(raw json.RawMessage) (models.PresencePayload, bool) {
	var p models.PresencePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SenderID == "" {
		return models.PresencePayload{}, false
	}
	return p, true
}
