package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TriggerIngestion runs the mail manager for all active accounts.
func (h *Handler) TriggerIngestion(c *gin.Context) {
	results, err := h.mailManager.ProcessAllAccounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]gin.H, 0, len(results))
	for _, r := range results {
		item := gin.H{
			"account_id":   r.AccountID,
			"account_name": r.AccountName,
			"status":       r.Status,
			"new_messages": r.NewMessages,
			"total_seen":   r.TotalSeen,
			"duration_ms":  r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			item["error"] = r.Err.Error()
		}
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, gin.H{"results": resp})
}

// TriggerScoring scores all pending messages.
func (h *Handler) TriggerScoring(c *gin.Context) {
	scored, err := h.summaries.ScorePendingMessages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scored": scored})
}

type digestRequest struct {
	AccountID   string `json:"account_id"`
	WindowHours int    `json:"window_hours"`
}

// TriggerDigest generates a digest for one account over the requested window.
func (h *Handler) TriggerDigest(c *gin.Context) {
	var req digestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.WindowHours <= 0 {
		req.WindowHours = 24
	}

	end := time.Now()
	start := end.Add(-time.Duration(req.WindowHours) * time.Hour)

	digest, err := h.summaries.GenerateDigest(c.Request.Context(), req.AccountID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if digest == nil {
		// Quiet window: nothing relevant, no digest row
		c.JSON(http.StatusOK, gin.H{"digest": nil, "message": "no relevant messages in window"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"digest": digest})
}

// TriggerFeedbackProcessing runs one optimizer pass.
func (h *Handler) TriggerFeedbackProcessing(c *gin.Context) {
	if err := h.optimizer.ProcessFeedback(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
