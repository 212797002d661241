package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// Prompt is one answered profile prompt.
type Prompt struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PromptList stores answered prompts as a jsonb column.
type PromptList []Prompt

func (p PromptList) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *PromptList) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported prompt list source type")
	}
}

// Profile is a human participant's dating profile.
type Profile struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	DisplayName      string         `gorm:"type:text" json:"display_name"`
	Age              *int           `json:"age,omitempty"`
	Gender           string         `gorm:"type:text" json:"gender"`
	GenderPreference string         `gorm:"type:text" json:"gender_preference"`
	Bio              string         `gorm:"type:text" json:"bio"`
	// PersonaSeed is the voice the autopilot writes in for this user.
	PersonaSeed string         `gorm:"type:text" json:"persona_seed"`
	Prompts     PromptList     `gorm:"type:jsonb" json:"prompts"`
	Hobbies     pq.StringArray `gorm:"type:text[]" json:"hobbies"`
	PhotoURLs   pq.StringArray `gorm:"type:text[]" json:"photo_urls"`
	HeightCm    *int           `json:"height_cm,omitempty"`
	Ethnicity   string         `gorm:"type:text" json:"ethnicity"`
	// IsPro gates the autopilot capability for this user.
	IsPro bool `json:"is_pro"`
}

// SeedProfile is a scripted persona that can occupy a match slot.
// Personas are always autopilot-capable.
type SeedProfile struct {
	SeedID           string         `gorm:"primaryKey" json:"seed_id"`
	DisplayName      string         `gorm:"type:text" json:"display_name"`
	Age              *int           `json:"age,omitempty"`
	Gender           string         `gorm:"type:text" json:"gender"`
	GenderPreference string         `gorm:"type:text" json:"gender_preference"`
	Bio              string         `gorm:"type:text" json:"bio"`
	PersonaSeed      string         `gorm:"type:text" json:"persona_seed"`
	Prompts          PromptList     `gorm:"type:jsonb" json:"prompts"`
	Hobbies          pq.StringArray `gorm:"type:text[]" json:"hobbies"`
	PhotoURLs        pq.StringArray `gorm:"type:text[]" json:"photo_urls"`
	HeightCm         *int           `json:"height_cm,omitempty"`
	Ethnicity        string         `gorm:"type:text" json:"ethnicity"`
}

// ReadReceipt remembers how far a user has read into a match.
type ReadReceipt struct {
	MatchID    string `gorm:"primaryKey;type:uuid"`
	UserID     string `gorm:"primaryKey;type:text"`
	LastReadAt int64  `gorm:"autoUpdateTime:milli"`
}

// ProfileSummary is the normalized read-only projection handed to the
// synthesizer. Loosely shaped profile rows are mapped into this once, at
// the storage boundary, and never passed deeper as raw rows.
type ProfileSummary struct {
	Name             string
	Age              *int
	Gender           string
	GenderPreference string
	Bio              string
	PersonaSeed      string
	Prompts          []Prompt
	Hobbies          []string
	HeightCm         *int
	Ethnicity        string
}

// Summary projects a human profile into its synthesizer view.
func (p *Profile) Summary() ProfileSummary {
	if p == nil {
		return ProfileSummary{}
	}
	return ProfileSummary{
		Name:             p.DisplayName,
		Age:              p.Age,
		Gender:           p.Gender,
		GenderPreference: p.GenderPreference,
		Bio:              p.Bio,
		PersonaSeed:      p.PersonaSeed,
		Prompts:          p.Prompts,
		Hobbies:          p.Hobbies,
		HeightCm:         p.HeightCm,
		Ethnicity:        p.Ethnicity,
	}
}

// Summary projects a seed profile into its synthesizer view.
func (s *SeedProfile) Summary() ProfileSummary {
	if s == nil {
		return ProfileSummary{}
	}
	return ProfileSummary{
		Name:             s.DisplayName,
		Age:              s.Age,
		Gender:           s.Gender,
		GenderPreference: s.GenderPreference,
		Bio:              s.Bio,
		PersonaSeed:      s.PersonaSeed,
		Prompts:          s.Prompts,
		Hobbies:          s.Hobbies,
		HeightCm:         s.HeightCm,
		Ethnicity:        s.Ethnicity,
	}
}
