package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wingmate/backend/internal/autopilot"
	"wingmate/backend/internal/config"
	"wingmate/backend/internal/models"
)

type draftProfile struct {
	Name    string          `json:"name"`
	Bio     string          `json:"bio"`
	Prompts []models.Prompt `json:"prompts"`
	Hobbies []string        `json:"hobbies"`
}

type draftMessage struct {
	From string `json:"from"` // "user" or "seed"
	Text string `json:"text"`
}

type draftRequest struct {
	SeedName           string         `json:"seed_name"`
	PersonaSeed        string         `json:"persona_seed"`
	Instructions       string         `json:"instructions"`
	PreferDateSetup    bool           `json:"prefer_date_setup"`
	Messages           []draftMessage `json:"messages"`
	UserProfile        *draftProfile  `json:"user_profile"`
	CounterpartProfile *draftProfile  `json:"counterpart_profile"`
}

// HandleDraft is the compose-one-draft-on-demand endpoint. Authorization
// failures reject synchronously; every other failure degrades to the
// fixed fallback under HTTP 200, so the client chat surface never sees a
// transport error.
func (h *Handler) HandleDraft(c *gin.Context) {
	if _, ok := h.bearerUser(c); !ok {
		return
	}

	var body draftRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if body.SeedName == "" || body.PersonaSeed == "" || strings.TrimSpace(body.Instructions) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	req := autopilot.Request{
		Responder:       summaryFromPayload(body.UserProfile, body.SeedName, body.PersonaSeed),
		Counterpart:     summaryFromPayload(body.CounterpartProfile, "", ""),
		ResponderIsSeed: true,
		History:         mapDraftHistory(body.Messages),
		PreferDatePlan:  body.PreferDateSetup,
		Instructions:    body.Instructions,
	}

	reply, err := h.Generator.Reply(c.Request.Context(), req)
	if err != nil {
		h.Log.Warn("draft generation failed", "error", err)
		reply = config.FallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		reply = config.FallbackReply
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func summaryFromPayload(p *draftProfile, name, personaSeed string) models.ProfileSummary {
	summary := models.ProfileSummary{Name: name, PersonaSeed: personaSeed}
	if p == nil {
		return summary
	}
	if p.Name != "" {
		summary.Name = p.Name
	}
	summary.Bio = p.Bio
	summary.Prompts = p.Prompts
	summary.Hobbies = p.Hobbies
	return summary
}

// mapDraftHistory converts the wire history into message rows so the
// synthesizer's role mapping treats "seed" entries as the impersonated
// side.
func mapDraftHistory(msgs []draftMessage) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, models.Message{
			IsSeed: m.From == "seed",
			Text:   m.Text,
		})
	}
	return out
}
