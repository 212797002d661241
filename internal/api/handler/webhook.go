package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wingmate/backend/internal/autopilot"
)

// HandleMessageWebhook is the row-insert trigger: the storage layer calls
// it once per persisted message. Eligibility is checked synchronously so
// the response describes the outcome; the reply loop itself runs detached
// and cannot be awaited or aborted by the caller.
func (h *Handler) HandleMessageWebhook(c *gin.Context) {
	var trig autopilot.Trigger
	if err := c.ShouldBindJSON(&trig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or misconfigured request"})
		return
	}
	if trig.MessageID == "" || trig.MatchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or misconfigured request"})
		return
	}

	note, err := h.Orchestrator.Trigger(trig)
	if err != nil {
		h.Log.Error("autopilot trigger failed", "match_id", trig.MatchID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": note})
}
