package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wingmate/backend/internal/models"
	"wingmate/backend/internal/storage"
)

type likeSeedRequest struct {
	SeedID string `json:"seed_id"`
}

type likeUserRequest struct {
	TargetUserID string `json:"target_user_id"`
}

type autopilotRequest struct {
	Enabled bool `json:"enabled"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// LikeSeed creates (or returns) the viewer's match with a seed profile.
// Autopilot is on by default for fresh matches.
func (h *Handler) LikeSeed(c *gin.Context) {
	userID, ok := h.bearerUser(c)
	if !ok {
		return
	}

	var body likeSeedRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.SeedID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed_id is required"})
		return
	}

	existing, err := h.Storage.FindSeedMatch(userID, body.SeedID)
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up match"})
		return
	}

	seedID := body.SeedID
	match := &models.Match{
		UserA:            userID,
		SeedID:           &seedID,
		AutopilotEnabled: true,
		Status:           "active",
	}
	if err := h.Storage.CreateMatch(match); err != nil {
		h.Log.Error("match create failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match"})
		return
	}
	c.JSON(http.StatusCreated, match)
}

// LikeUser creates (or returns) a human-to-human match regardless of who
// liked first.
func (h *Handler) LikeUser(c *gin.Context) {
	userID, ok := h.bearerUser(c)
	if !ok {
		return
	}

	var body likeUserRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.TargetUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_user_id is required"})
		return
	}

	existing, err := h.Storage.FindUserMatch(userID, body.TargetUserID)
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up match"})
		return
	}

	targetID := body.TargetUserID
	match := &models.Match{
		UserA:            userID,
		UserB:            &targetID,
		AutopilotEnabled: true,
		Status:           "active",
	}
	if err := h.Storage.CreateMatch(match); err != nil {
		h.Log.Error("match create failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match"})
		return
	}
	c.JSON(http.StatusCreated, match)
}

// ListMatches returns the viewer's conversation list ordered by most
// recent activity.
func (h *Handler) ListMatches(c *gin.Context) {
	userID, ok := h.bearerUser(c)
	if !ok {
		return
	}

	summaries, err := h.Storage.ListMatchSummaries(userID)
	if err != nil {
		h.Log.Error("summaries failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": summaries})
}

// SetAutopilot flips the per-match autopilot flag.
func (h *Handler) SetAutopilot(c *gin.Context) {
	userID, ok := h.bearerUser(c)
	if !ok {
		return
	}
	match, ok := h.participantMatch(c, userID)
	if !ok {
		return
	}

	var body autopilotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.Storage.SetAutopilot(match.ID, body.Enabled); err != nil {
		h.Log.Error("autopilot update failed", "match_id", match.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update autopilot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_id": match.ID, "autopilot_enabled": body.Enabled})
}

// GetMessages returns the match history in creation order and marks the
// match read for the viewer.
func (h *Handler) GetMessages(c *gin.Context) {
	userID, ok := h.bearerUser(c)
	if !ok {
		return
	}
	match, ok := h.participantMatch(c, userID)
	if !ok {
		return
	}

	msgs, err := h.Storage.GetMessages(match.ID)
	if err != nil {
		h.Log.Error("history load failed", "match_id", match.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	if err := h.Storage.MarkRead(match.ID, userID); err != nil {
		h.Log.Warn("read receipt failed", "match_id", match.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage persists one trimmed human message, emits the insert
// notification on the match channel, and resets the sender's unread
// count.
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := h.bearerUser(c)
	if !ok {
		return
	}
	match, ok := h.participantMatch(c, userID)
	if !ok {
		return
	}

	var body sendMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	msg := &models.Message{
		MatchID:  match.ID,
		SenderID: &userID,
		Text:     text,
	}
	if err := h.Storage.SaveMessage(msg); err != nil {
		h.Log.Error("message save failed", "match_id", match.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	h.Broadcaster.MessageInserted(c.Request.Context(), msg)
	if err := h.Storage.MarkRead(match.ID, userID); err != nil {
		h.Log.Warn("read receipt failed", "match_id", match.ID, "error", err)
	}
	c.JSON(http.StatusCreated, msg)
}

// participantMatch loads the :matchId route param and enforces that the
// viewer is one of the match participants.
func (h *Handler) participantMatch(c *gin.Context, userID string) (*models.Match, bool) {
	matchID := c.Param("matchId")
	match, err := h.Storage.GetMatchByID(matchID)
	if errors.Is(err, storage.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return nil, false
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load match"})
		return nil, false
	}
	if !match.Involves(userID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not a match participant"})
		return nil, false
	}
	return match, true
}
