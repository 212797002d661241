package autopilot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wingmate/backend/internal/config"
	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
	"wingmate/backend/internal/storage"
)

// Orchestrator drives the full autopilot cycle for one message insert:
// eligibility, synthesis, human-paced persistence, presence broadcasts,
// and the bounded back-and-forth between the two sides. One invocation is
// strictly sequential; there is no cancellation of a started loop.
type Orchestrator struct {
	storage   storage.Storage
	evaluator *Evaluator
	gen       Generator
	bc        *Broadcaster
	log       *logger.Logger

	maxTurnsPerSide int

	// sleep is a test hook.
	sleep func(time.Duration)
}

func NewOrchestrator(log *logger.Logger, s storage.Storage, gen Generator, bc *Broadcaster, maxTurnsPerSide int) *Orchestrator {
	if maxTurnsPerSide < 1 {
		maxTurnsPerSide = config.DefaultMaxTurnsPerSide
	}
	return &Orchestrator{
		storage:         s,
		evaluator:       NewEvaluator(s),
		gen:             gen,
		bc:              bc,
		log:             log.With("service", "Autopilot"),
		maxTurnsPerSide: maxTurnsPerSide,
		sleep:           time.Sleep,
	}
}

// Process handles one trigger end to end, synchronously, and returns a
// benign human-readable note describing the outcome. Ineligibility is a
// no-op, not an error; errors are reserved for missing matches and
// storage failures before any side effect.
func (o *Orchestrator) Process(ctx context.Context, trig Trigger) (string, error) {
	match, history, verdict, err := o.prepare(trig)
	if err != nil {
		return "", err
	}
	if !verdict.Eligible {
		return benignNote(verdict.Reason), nil
	}

	turns := o.runLoop(ctx, match, history, verdict.Responder)
	return fmt.Sprintf("autopilot engaged (%d turns)", turns), nil
}

// Trigger evaluates eligibility synchronously and, when a reply is due,
// runs the turn-taking loop in the background. The returned note reports
// the evaluation outcome; the loop itself cannot be awaited or aborted.
func (o *Orchestrator) Trigger(trig Trigger) (string, error) {
	match, history, verdict, err := o.prepare(trig)
	if err != nil {
		return "", err
	}
	if !verdict.Eligible {
		return benignNote(verdict.Reason), nil
	}

	go func() {
		turns := o.runLoop(context.Background(), match, history, verdict.Responder)
		o.log.Info("autopilot cycle finished", "match_id", match.ID, "turns", turns)
	}()
	return "autopilot engaged", nil
}

func (o *Orchestrator) prepare(trig Trigger) (*models.Match, []models.Message, Verdict, error) {
	match, err := o.storage.GetMatchByID(trig.MatchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, Verdict{}, fmt.Errorf("match %s not found", trig.MatchID)
	}
	if err != nil {
		return nil, nil, Verdict{}, fmt.Errorf("load match: %w", err)
	}

	history, err := o.storage.GetMessages(trig.MatchID)
	if err != nil {
		return nil, nil, Verdict{}, fmt.Errorf("load messages: %w", err)
	}

	verdict, err := o.evaluator.Evaluate(match, trig, history, false)
	if err != nil {
		return nil, nil, Verdict{}, err
	}
	if !verdict.Eligible {
		o.log.Debug("trigger ineligible",
			"match_id", trig.MatchID, "reason", string(verdict.Reason))
	}
	return match, history, verdict, nil
}

// runLoop produces the first reply and then alternates sides while each
// next side stays eligible, up to the per-side bound. Partial progress on
// failure is intentional; persisted turns are never rolled back.
func (o *Orchestrator) runLoop(ctx context.Context, match *models.Match, history []models.Message, responder Side) int {
	counts := make(map[string]int)
	total := 0

	for {
		if counts[responder.Identity()] >= o.maxTurnsPerSide {
			break
		}

		msg, ok := o.runTurn(ctx, match, history, responder)
		if !ok {
			break
		}
		history = append(history, *msg)
		counts[responder.Identity()]++
		total++

		// The reply just persisted plays the role of the next trigger,
		// swapping sides. The cooldown guard is skipped: steps inside
		// one loop are serialized, so they cannot be duplicates.
		next := Trigger{
			MatchID:  match.ID,
			SenderID: senderOrEmpty(msg),
			IsSeed:   msg.IsSeed,
		}
		verdict, err := o.evaluator.Evaluate(match, next, history, true)
		if err != nil {
			o.log.Error("turn evaluation failed", "match_id", match.ID, "error", err)
			break
		}
		if !verdict.Eligible {
			o.log.Debug("loop stopped",
				"match_id", match.ID, "reason", string(verdict.Reason), "turns", total)
			break
		}
		responder = verdict.Responder
	}

	return total
}

// runTurn executes one synthesize-persist-broadcast cycle for the given
// side. Returns the persisted message, or ok=false when the turn produced
// nothing and the loop must stop.
func (o *Orchestrator) runTurn(ctx context.Context, match *models.Match, history []models.Message, responder Side) (*models.Message, bool) {
	identity := responder.Identity()

	o.bc.DraftingStarted(ctx, match.ID, identity)
	defer o.bc.DraftingDone(ctx, match.ID, identity)

	req, err := o.buildRequest(match, responder, history)
	if err != nil {
		o.log.Error("request build failed", "match_id", match.ID, "error", err)
		return nil, false
	}

	reply, err := o.gen.Reply(ctx, req)
	if err != nil {
		o.log.Warn("synthesis failed", "match_id", match.ID, "error", err)
		return nil, false
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, false
	}

	// Human-ish pacing: pretend to read and type before the row lands.
	o.sleep(TypingDelay(len(reply)))

	msg := &models.Message{
		MatchID:  match.ID,
		SenderID: responder.UserID,
		IsSeed:   responder.IsSeed,
		Text:     reply,
	}
	if err := o.storage.SaveMessage(msg); err != nil {
		o.log.Error("persist failed", "match_id", match.ID, "error", err)
		return nil, false
	}

	o.bc.MessageInserted(ctx, msg)
	return msg, true
}

// buildRequest normalizes both sides' profiles into summaries for the
// synthesizer. Missing profiles degrade to empty summaries; the persona
// defaults fill the gaps downstream.
func (o *Orchestrator) buildRequest(match *models.Match, responder Side, history []models.Message) (Request, error) {
	var seedSummary models.ProfileSummary
	if match.HasSeed() {
		seed, err := o.storage.GetSeedProfileByID(*match.SeedID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return Request{}, fmt.Errorf("load seed profile: %w", err)
		}
		if seed != nil {
			seedSummary = seed.Summary()
		}
	}

	req := Request{
		ResponderIsSeed: responder.IsSeed,
		ResponderID:     responder.UserID,
		History:         history,
		PreferDatePlan:  len(history) >= 6,
	}

	if responder.IsSeed {
		req.Responder = seedSummary
		counterpart, err := o.profileSummary(match.UserA)
		if err != nil {
			return Request{}, err
		}
		req.Counterpart = counterpart
		return req, nil
	}

	own, err := o.profileSummary(*responder.UserID)
	if err != nil {
		return Request{}, err
	}
	req.Responder = own

	if match.HasSeed() {
		req.Counterpart = seedSummary
		return req, nil
	}
	other := match.CounterpartOf(*responder.UserID)
	if other != nil {
		counterpart, err := o.profileSummary(*other)
		if err != nil {
			return Request{}, err
		}
		req.Counterpart = counterpart
	}
	return req, nil
}

func (o *Orchestrator) profileSummary(userID string) (models.ProfileSummary, error) {
	profile, err := o.storage.GetProfileByID(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ProfileSummary{}, nil
	}
	if err != nil {
		return models.ProfileSummary{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return profile.Summary(), nil
}

// TypingDelay emulates reading plus typing time as a capped affine
// function of the reply length.
func TypingDelay(replyLen int) time.Duration {
	d := config.TypingDelayBase + time.Duration(replyLen)*config.TypingDelayPerChar
	if d > config.TypingDelayCap {
		return config.TypingDelayCap
	}
	return d
}

func benignNote(reason Reason) string {
	switch reason {
	case ReasonNoRecipient:
		return "No recipient for autopilot"
	case ReasonDisabled:
		return "Recipient autopilot disabled"
	case ReasonCooldown:
		return "Autopilot cooldown active"
	case ReasonWrongTurn:
		return "Autopilot already replied"
	default:
		return "No action taken"
	}
}

func senderOrEmpty(msg *models.Message) string {
	if msg.SenderID != nil {
		return *msg.SenderID
	}
	return ""
}
