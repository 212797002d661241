package autopilot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"

	"wingmate/backend/internal/config"
	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
)

// fakeLLM captures the prompt and returns a canned completion.
type fakeLLM struct {
	resp string
	err  error
	got  []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.resp}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

func newTestSynthesizer(llm llms.Model) *Synthesizer {
	return &Synthesizer{llm: llm, log: logger.NewNop()}
}

func seedRequest(history []models.Message) Request {
	return Request{
		Responder:       models.ProfileSummary{Name: "Jules", PersonaSeed: "Warm and upbeat."},
		Counterpart:     models.ProfileSummary{Name: "Ana", Bio: "Climber, coffee snob."},
		ResponderIsSeed: true,
		History:         history,
	}
}

func TestReplyTrimsCompletion(t *testing.T) {
	llm := &fakeLLM{resp: "  Sounds great, how about Saturday?  "}
	s := newTestSynthesizer(llm)

	reply, err := s.Reply(context.Background(), seedRequest([]models.Message{
		{SenderID: strptr("user-a"), Text: "want to grab coffee?"},
	}))
	assert.NoError(t, err)
	assert.Equal(t, "Sounds great, how about Saturday?", reply)
}

func TestReplyFallsBackOnBackendError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	s := newTestSynthesizer(llm)

	reply, err := s.Reply(context.Background(), seedRequest([]models.Message{
		{SenderID: strptr("user-a"), Text: "hey"},
	}))
	assert.NoError(t, err)
	assert.Equal(t, config.FallbackReply, reply)
}

func TestReplyFallsBackOnBlankCompletion(t *testing.T) {
	llm := &fakeLLM{resp: "   "}
	s := newTestSynthesizer(llm)

	reply, err := s.Reply(context.Background(), seedRequest([]models.Message{
		{SenderID: strptr("user-a"), Text: "hey"},
	}))
	assert.NoError(t, err)
	assert.Equal(t, config.FallbackReply, reply)
}

func TestReplyNothingToAnswer(t *testing.T) {
	llm := &fakeLLM{resp: "unused"}
	s := newTestSynthesizer(llm)

	reply, err := s.Reply(context.Background(), seedRequest(nil))
	assert.NoError(t, err)
	assert.Empty(t, reply)
	assert.Nil(t, llm.got)
}

func TestReplyRoleMapping(t *testing.T) {
	llm := &fakeLLM{resp: "ok"}
	s := newTestSynthesizer(llm)

	history := []models.Message{
		{SenderID: strptr("user-a"), Text: "hi there"},
		{IsSeed: true, Text: "Hey! How's it going?"},
		{SenderID: strptr("user-a"), Text: "good, you?"},
	}
	_, err := s.Reply(context.Background(), seedRequest(history))
	assert.NoError(t, err)

	// System prompt plus one role-mapped turn per message.
	assert.Len(t, llm.got, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, llm.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, llm.got[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.got[3].Role)
}

func TestMapConversationWindowAndInstructions(t *testing.T) {
	var history []models.Message
	for i := 0; i < 12; i++ {
		history = append(history, models.Message{SenderID: strptr("user-a"), Text: "m"})
	}
	req := seedRequest(history)
	req.Instructions = "keep it short"

	out := mapConversation(req)
	// Trailing window plus the appended instruction turn.
	assert.Len(t, out, config.HistoryWindow+1)
	assert.Equal(t, llms.ChatMessageTypeHuman, out[len(out)-1].Role)
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt := buildPrompt(Request{ResponderIsSeed: true})
	assert.Contains(t, prompt, config.DefaultSeedVoice)
	assert.Contains(t, prompt, "PERSONA:")
	assert.Contains(t, prompt, "SAFETY:")
	assert.NotContains(t, prompt, "coffee/walk plan")

	prompt = buildPrompt(Request{ResponderIsSeed: false, PreferDatePlan: true})
	assert.Contains(t, prompt, config.DefaultHumanVoice)
	assert.Contains(t, prompt, "coffee/walk plan")
}

func TestBuildPromptUsesProfiles(t *testing.T) {
	age := 29
	prompt := buildPrompt(Request{
		Responder: models.ProfileSummary{
			Name:        "Jules",
			PersonaSeed: "Dry humor, kind.",
			Hobbies:     []string{"bouldering", "vinyl"},
		},
		Counterpart: models.ProfileSummary{
			Name: "Ana",
			Age:  &age,
			Prompts: []models.Prompt{
				{Question: "Perfect Sunday", Answer: "farmers market"},
			},
		},
	})
	assert.True(t, strings.HasPrefix(prompt, "You are Jules,"))
	assert.Contains(t, prompt, "PERSONA: Dry humor, kind.")
	assert.Contains(t, prompt, "hobbies: bouldering, vinyl")
	assert.Contains(t, prompt, "age: 29")
	assert.Contains(t, prompt, "Perfect Sunday: farmers market")
}

func TestDescribeSummaryEmpty(t *testing.T) {
	assert.Equal(t, "Their profile: (none provided)",
		describeSummary("Their profile", models.ProfileSummary{}))
}

func TestNewSynthesizerRequiresKey(t *testing.T) {
	_, err := NewSynthesizer(logger.NewNop(), "", "gpt-4o-mini")
	assert.Error(t, err)
}
