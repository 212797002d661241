package autopilot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wingmate/backend/internal/models"
	"wingmate/backend/internal/storage"
)

// fakeStore is an in-memory storage.Storage double. Message timestamps
// advance by one second per insert so ordering and cooldown checks behave
// like the real table.
type fakeStore struct {
	mu       sync.Mutex
	matches  map[string]*models.Match
	profiles map[string]*models.Profile
	seeds    map[string]*models.SeedProfile
	messages []models.Message

	clock time.Time

	// saveFailAt makes the n-th SaveMessage call fail (1-based).
	saveFailAt int
	saveCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches:  make(map[string]*models.Match),
		profiles: make(map[string]*models.Profile),
		seeds:    make(map[string]*models.SeedProfile),
		clock:    time.Now().Add(-time.Hour),
	}
}

func (f *fakeStore) GetMatchByID(matchID string) (*models.Match, error) {
	if m, ok := f.matches[matchID]; ok {
		return m, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) CreateMatch(match *models.Match) error {
	f.matches[match.ID] = match
	return nil
}

func (f *fakeStore) FindSeedMatch(userID, seedID string) (*models.Match, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStore) FindUserMatch(userID, targetID string) (*models.Match, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStore) ListMatchSummaries(viewerID string) ([]models.MatchSummary, error) {
	return nil, nil
}

func (f *fakeStore) SetAutopilot(matchID string, enabled bool) error {
	if m, ok := f.matches[matchID]; ok {
		m.AutopilotEnabled = enabled
		return nil
	}
	return storage.ErrNotFound
}

func (f *fakeStore) GetMessages(matchID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if m.MatchID == matchID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveMessage(msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveFailAt > 0 && f.saveCalls >= f.saveFailAt {
		return errors.New("insert failed")
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", len(f.messages)+1)
	}
	f.clock = f.clock.Add(time.Second)
	msg.CreatedAt = f.clock
	f.messages = append(f.messages, *msg)
	return nil
}

// seedMessage appends a pre-existing row without going through the save
// counter, for arranging history.
func (f *fakeStore) seedMessage(matchID string, senderID *string, isSeed bool, text string) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	msg := models.Message{
		ID:        fmt.Sprintf("msg-%d", len(f.messages)+1),
		MatchID:   matchID,
		SenderID:  senderID,
		IsSeed:    isSeed,
		Text:      text,
		CreatedAt: f.clock,
	}
	f.messages = append(f.messages, msg)
	return msg
}

func (f *fakeStore) allMessages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.messages...)
}

func (f *fakeStore) GetProfileByID(id string) (*models.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetSeedProfileByID(seedID string) (*models.SeedProfile, error) {
	if s, ok := f.seeds[seedID]; ok {
		return s, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) MarkRead(matchID, userID string) error { return nil }

// stubGenerator returns a fixed reply and can be armed to fail from a
// given call onward.
type stubGenerator struct {
	reply  string
	failAt int
	calls  int
}

func (g *stubGenerator) Reply(ctx context.Context, req Request) (string, error) {
	g.calls++
	if g.failAt > 0 && g.calls >= g.failAt {
		return "", errors.New("backend unavailable")
	}
	return g.reply, nil
}

func strptr(s string) *string { return &s }

func seedMatch(store *fakeStore, humanPro bool) *models.Match {
	seedID := "seed-1"
	match := &models.Match{
		ID:               "match-1",
		UserA:            "user-a",
		SeedID:           &seedID,
		AutopilotEnabled: true,
		Status:           "active",
	}
	store.matches[match.ID] = match
	store.profiles["user-a"] = &models.Profile{
		ID: "user-a", DisplayName: "Ana", IsPro: humanPro,
		PersonaSeed: "Direct and playful.",
	}
	store.seeds[seedID] = &models.SeedProfile{
		SeedID: seedID, DisplayName: "Jules",
		PersonaSeed: "Warm, curious, and upbeat.",
	}
	return match
}

func humanMatch(store *fakeStore, aPro, bPro bool) *models.Match {
	userB := "user-b"
	match := &models.Match{
		ID:               "match-2",
		UserA:            "user-a",
		UserB:            &userB,
		AutopilotEnabled: true,
		Status:           "active",
	}
	store.matches[match.ID] = match
	store.profiles["user-a"] = &models.Profile{ID: "user-a", DisplayName: "Ana", IsPro: aPro}
	store.profiles["user-b"] = &models.Profile{ID: "user-b", DisplayName: "Ben", IsPro: bPro}
	return match
}
