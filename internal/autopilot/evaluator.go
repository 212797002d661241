package autopilot

import (
	"errors"
	"fmt"
	"time"

	"wingmate/backend/internal/config"
	"wingmate/backend/internal/models"
	"wingmate/backend/internal/storage"
)

// Side identifies one responding side of a match: either the persona or a
// human participant.
type Side struct {
	IsSeed bool
	UserID *string
}

// Identity returns the side's realtime identity: the human id or the seed
// sentinel.
func (s Side) Identity() string {
	if s.IsSeed || s.UserID == nil {
		return models.SeedSender
	}
	return *s.UserID
}

// Reason explains why a reply is not currently due. These are benign
// no-ops, not errors.
type Reason string

const (
	ReasonNoRecipient Reason = "no-recipient"
	ReasonDisabled    Reason = "disabled"
	ReasonCooldown    Reason = "cooldown"
	ReasonWrongTurn   Reason = "wrong-turn"
)

// Verdict is the evaluator's answer for one trigger: the responding side
// and whether its reply is currently due.
type Verdict struct {
	Eligible  bool
	Reason    Reason
	Responder Side
}

// Trigger describes the message insert that started the cycle.
type Trigger struct {
	MessageID string `json:"message_id"`
	MatchID   string `json:"match_id"`
	SenderID  string `json:"sender_id"`
	IsSeed    bool   `json:"is_seed"`
}

// Evaluator decides which side replies and whether a reply is due.
// Its cooldown and wrong-turn checks are advisory guards against
// duplicate webhook deliveries, not atomic locks; see the concurrency
// notes in DESIGN.md.
type Evaluator struct {
	storage  storage.Storage
	cooldown time.Duration

	// now is a test hook.
	now func() time.Time
}

func NewEvaluator(s storage.Storage) *Evaluator {
	return &Evaluator{
		storage:  s,
		cooldown: config.ReplyCooldown,
		now:      time.Now,
	}
}

// ResolveResponder determines which side did not just speak. Returns a
// nil verdict responder with ReasonNoRecipient when the match has no
// counterpart slot to answer from.
func (e *Evaluator) ResolveResponder(match *models.Match, trig Trigger) (Side, bool) {
	if match.HasSeed() {
		if trig.IsSeed {
			// Persona spoke, the human side answers.
			respID := match.UserA
			if trig.SenderID == match.UserA && match.UserB != nil {
				respID = *match.UserB
			}
			return Side{UserID: &respID}, true
		}
		// Human spoke, the persona answers.
		return Side{IsSeed: true}, true
	}

	// Human to human: the counterpart answers.
	other := match.CounterpartOf(trig.SenderID)
	if other == nil {
		return Side{}, false
	}
	return Side{UserID: other}, true
}

// Evaluate runs the full eligibility check for a trigger against the
// already-loaded, creation-ordered message history. skipCooldown is set
// for chained turn-taking steps, which are serialized by the loop itself
// and cannot be duplicate deliveries.
func (e *Evaluator) Evaluate(match *models.Match, trig Trigger, history []models.Message, skipCooldown bool) (Verdict, error) {
	responder, ok := e.ResolveResponder(match, trig)
	if !ok {
		return Verdict{Reason: ReasonNoRecipient}, nil
	}

	capable, err := e.sideCapable(match, responder)
	if err != nil {
		return Verdict{}, err
	}
	if !capable {
		return Verdict{Reason: ReasonDisabled, Responder: responder}, nil
	}

	if !skipCooldown {
		if last := lastFromSide(history, responder); last != nil {
			if e.now().Sub(last.CreatedAt) < e.cooldown {
				return Verdict{Reason: ReasonCooldown, Responder: responder}, nil
			}
		}
	}

	// The most recent message must belong to the other side; if the
	// responder already has the last word, its turn is complete.
	if len(history) == 0 {
		return Verdict{Reason: ReasonWrongTurn, Responder: responder}, nil
	}
	last := history[len(history)-1]
	if last.AuthoredBySide(responder.IsSeed, responder.UserID) {
		return Verdict{Reason: ReasonWrongTurn, Responder: responder}, nil
	}

	return Verdict{Eligible: true, Responder: responder}, nil
}

// sideCapable reports whether the side may auto-reply: personas always
// can; a human needs both their own autopilot capability and the match
// flag.
func (e *Evaluator) sideCapable(match *models.Match, side Side) (bool, error) {
	if side.IsSeed {
		return true, nil
	}
	if side.UserID == nil {
		return false, nil
	}
	profile, err := e.storage.GetProfileByID(*side.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load responder profile: %w", err)
	}
	return profile.IsPro && match.AutopilotEnabled, nil
}

func lastFromSide(history []models.Message, side Side) *models.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].AuthoredBySide(side.IsSeed, side.UserID) {
			return &history[i]
		}
	}
	return nil
}
