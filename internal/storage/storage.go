package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wingmate/backend/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Matches
	GetMatchByID(matchID string) (*models.Match, error)
	CreateMatch(match *models.Match) error
	FindSeedMatch(userID, seedID string) (*models.Match, error)
	FindUserMatch(userID, targetID string) (*models.Match, error)
	ListMatchSummaries(viewerID string) ([]models.MatchSummary, error)
	SetAutopilot(matchID string, enabled bool) error

	// Messages
	GetMessages(matchID string) ([]models.Message, error)
	SaveMessage(msg *models.Message) error

	// Profiles
	GetProfileByID(id string) (*models.Profile, error)
	GetSeedProfileByID(seedID string) (*models.SeedProfile, error)

	// Read receipts
	MarkRead(matchID, userID string) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (s *Service) GetMatchByID(matchID string) (*models.Match, error) {
	var match models.Match
	err := s.DB.Where("id = ?", matchID).First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Service) CreateMatch(match *models.Match) error {
	return s.DB.Create(match).Error
}

// FindSeedMatch returns an existing match between the user and a seed
// profile, or ErrNotFound.
func (s *Service) FindSeedMatch(userID, seedID string) (*models.Match, error) {
	var match models.Match
	err := s.DB.Where("user_a = ? AND seed_id = ?", userID, seedID).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// FindUserMatch returns an existing human-to-human match regardless of
// which slot each user occupies, or ErrNotFound.
func (s *Service) FindUserMatch(userID, targetID string) (*models.Match, error) {
	var match models.Match
	err := s.DB.Where("seed_id IS NULL").
		Where("(user_a = ? AND user_b = ?) OR (user_a = ? AND user_b = ?)",
			userID, targetID, targetID, userID).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Service) SetAutopilot(matchID string, enabled bool) error {
	res := s.DB.Model(&models.Match{}).
		Where("id = ?", matchID).
		Update("autopilot_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMessages loads the full message history of a match in creation order.
func (s *Service) GetMessages(matchID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.Where("match_id = ?", matchID).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveMessage inserts the message and bumps the match's activity time.
// The inserted row is immutable; callers see the generated id and
// timestamp on the passed struct.
func (s *Service) SaveMessage(msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Match{}).
			Where("id = ?", msg.MatchID).
			Update("last_message_at", msg.CreatedAt).Error
	})
}

func (s *Service) GetProfileByID(id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

const seedProfileCacheTTL = 10 * time.Minute

// GetSeedProfileByID loads a seed profile through a redis read-through
// cache. Seed profiles are scripted and effectively immutable, and the
// autopilot loop reads them once per turn.
func (s *Service) GetSeedProfileByID(seedID string) (*models.SeedProfile, error) {
	key := "seed_profile:" + seedID
	if raw, err := s.Redis.Get(s.Ctx, key).Result(); err == nil {
		var cached models.SeedProfile
		if json.Unmarshal([]byte(raw), &cached) == nil {
			return &cached, nil
		}
	}

	var seed models.SeedProfile
	err := s.DB.Where("seed_id = ?", seedID).First(&seed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(&seed); err == nil {
		s.Redis.Set(s.Ctx, key, data, seedProfileCacheTTL)
	}
	return &seed, nil
}

// MarkRead upserts the viewer's read receipt for a match.
func (s *Service) MarkRead(matchID, userID string) error {
	receipt := models.ReadReceipt{
		MatchID:    matchID,
		UserID:     userID,
		LastReadAt: time.Now().UnixMilli(),
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_at"}),
	}).Create(&receipt).Error
}
