package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wingmate/backend/internal/autopilot"
	"wingmate/backend/internal/models"
)

// MockStorage is a testify mock implementing storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetMatchByID(matchID string) (*models.Match, error) {
	args := m.Called(matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockStorage) CreateMatch(match *models.Match) error {
	args := m.Called(match)
	return args.Error(0)
}

func (m *MockStorage) FindSeedMatch(userID, seedID string) (*models.Match, error) {
	args := m.Called(userID, seedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockStorage) FindUserMatch(userID, targetID string) (*models.Match, error) {
	args := m.Called(userID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockStorage) ListMatchSummaries(viewerID string) ([]models.MatchSummary, error) {
	args := m.Called(viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchSummary), args.Error(1)
}

func (m *MockStorage) SetAutopilot(matchID string, enabled bool) error {
	args := m.Called(matchID, enabled)
	return args.Error(0)
}

func (m *MockStorage) GetMessages(matchID string) ([]models.Message, error) {
	args := m.Called(matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetProfileByID(id string) (*models.Profile, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockStorage) GetSeedProfileByID(seedID string) (*models.SeedProfile, error) {
	args := m.Called(seedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedProfile), args.Error(1)
}

func (m *MockStorage) MarkRead(matchID, userID string) error {
	args := m.Called(matchID, userID)
	return args.Error(0)
}

// stubGenerator records the last synthesis request and returns a canned
// reply or error.
type stubGenerator struct {
	reply string
	err   error
	got   *autopilot.Request
}

func (g *stubGenerator) Reply(ctx context.Context, req autopilot.Request) (string, error) {
	g.got = &req
	return g.reply, g.err
}
