package autopilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"wingmate/backend/internal/config"
	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
)

// Generator produces one reply for a synthesis request. The production
// implementation is Synthesizer; tests substitute doubles.
type Generator interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// Request carries everything the synthesizer needs to impersonate one
// side of a match.
type Request struct {
	// Responder is the side being impersonated.
	Responder models.ProfileSummary
	// Counterpart is the other side of the match.
	Counterpart models.ProfileSummary
	// ResponderIsSeed selects the persona voice default.
	ResponderIsSeed bool
	// ResponderID is the human responder id; nil for the persona side.
	// Used to map history onto conversational roles.
	ResponderID *string
	// History is the prior conversation; only the trailing window is
	// sent to the backend.
	History []models.Message
	// PreferDatePlan asks for a light concrete plan suggestion.
	PreferDatePlan bool
	// Instructions is optional free text from the draft-on-demand
	// endpoint, appended as the final user turn.
	Instructions string
}

// Synthesizer builds a role-conditioned prompt and calls the generative
// backend. Backend failures and empty output degrade to a fixed neutral
// fallback; synthesis never surfaces an error to the conversation.
type Synthesizer struct {
	llm llms.Model
	log *logger.Logger
}

func NewSynthesizer(log *logger.Logger, apiKey, model string) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return &Synthesizer{llm: llm, log: log.With("service", "Synthesizer")}, nil
}

// Reply returns one short utterance for the request. A nil error with an
// empty string means there was nothing to reply to.
func (s *Synthesizer) Reply(ctx context.Context, req Request) (string, error) {
	conversation := mapConversation(req)
	if len(conversation) == 0 {
		return "", nil
	}

	messages := make([]llms.MessageContent, 0, len(conversation)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, buildPrompt(req)))
	messages = append(messages, conversation...)

	callCtx, cancel := context.WithTimeout(ctx, config.SynthesisTimeout)
	defer cancel()

	resp, err := s.llm.GenerateContent(callCtx, messages,
		llms.WithTemperature(config.ReplyTemperature),
		llms.WithMaxTokens(config.ReplyMaxTokens),
	)
	if err != nil {
		s.log.Warn("generation failed, using fallback", "error", err)
		return config.FallbackReply, nil
	}
	if len(resp.Choices) == 0 {
		return config.FallbackReply, nil
	}

	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return config.FallbackReply, nil
	}
	return reply, nil
}

// buildPrompt renders the system instruction: persona voice, both profile
// digests, and the tone/safety rules.
func buildPrompt(req Request) string {
	persona := req.Responder.PersonaSeed
	name := req.Responder.Name
	if req.ResponderIsSeed {
		if persona == "" {
			persona = config.DefaultSeedVoice
		}
		if name == "" {
			name = "Match"
		}
	} else {
		if persona == "" {
			persona = config.DefaultHumanVoice
		}
		if name == "" {
			name = "Wingmate user"
		}
	}

	lines := []string{
		fmt.Sprintf("You are %s, drafting a natural dating app reply to send as yourself.", name),
		fmt.Sprintf("PERSONA: %s", persona),
		describeSummary("Your profile", req.Responder),
		describeSummary("Their profile", req.Counterpart),
		"GOALS:",
		"- Warm, confident, concise (1-2 short sentences).",
		"- Ask light questions to keep chat going.",
		"- Stay consistent with your profile facts above.",
	}
	if req.PreferDatePlan {
		lines = append(lines, "If meeting is hinted, propose a simple coffee/walk plan with day/time.")
	}
	lines = append(lines,
		"STYLE: Casual texting; avoid over-formality or external links.",
		"SAFETY: Do not request sensitive info.",
	)
	return strings.Join(lines, "\n")
}

func describeSummary(label string, p models.ProfileSummary) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "name: "+p.Name)
	}
	if p.Age != nil {
		parts = append(parts, fmt.Sprintf("age: %d", *p.Age))
	}
	if p.Gender != "" {
		parts = append(parts, "gender: "+p.Gender)
	}
	if p.GenderPreference != "" {
		parts = append(parts, "interested in: "+p.GenderPreference)
	}
	if p.Bio != "" {
		parts = append(parts, "bio: "+p.Bio)
	}
	if len(p.Hobbies) > 0 {
		parts = append(parts, "hobbies: "+strings.Join(p.Hobbies, ", "))
	}
	if len(p.Prompts) > 0 {
		prompts := p.Prompts
		if len(prompts) > 4 {
			prompts = prompts[:4]
		}
		var ps []string
		for _, prompt := range prompts {
			ps = append(ps, prompt.Question+": "+prompt.Answer)
		}
		parts = append(parts, "prompts: "+strings.Join(ps, " | "))
	}
	if p.HeightCm != nil {
		parts = append(parts, fmt.Sprintf("height: %dcm", *p.HeightCm))
	}
	if p.Ethnicity != "" {
		parts = append(parts, "ethnicity: "+p.Ethnicity)
	}
	if len(parts) == 0 {
		return label + ": (none provided)"
	}
	return label + ": " + strings.Join(parts, "; ")
}

// mapConversation maps the trailing history window onto alternating chat
// roles: messages authored by the impersonated side become assistant
// turns, everything else a user turn. Free-text instructions are appended
// as a final user turn.
func mapConversation(req Request) []llms.MessageContent {
	history := req.History
	if len(history) > config.HistoryWindow {
		history = history[len(history)-config.HistoryWindow:]
	}

	var out []llms.MessageContent
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.AuthoredBySide(req.ResponderIsSeed, req.ResponderID) {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Text))
	}
	if instr := strings.TrimSpace(req.Instructions); instr != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, instr))
	}
	return out
}
