package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Trigger routes: every pipeline stage is independently callable
		// out-of-band; dedup and at-most-once scoring make duplicate
		// triggering waste work at worst
		trigger := api.Group("/trigger")
		{
			trigger.POST("/ingestion", h.TriggerIngestion)
			trigger.POST("/scoring", h.TriggerScoring)
			trigger.POST("/digest", h.TriggerDigest)
			trigger.POST("/feedback", h.TriggerFeedbackProcessing)
		}

		// Account routes
		accounts := api.Group("/accounts")
		{
			accounts.GET("", h.ListAccounts)
			accounts.POST("", h.CreateAccount)
			accounts.GET("/health", h.AccountHealth)
			accounts.POST("/:id/force-sync", h.ForceSync)
			accounts.GET("/:id/logs", h.AccountLogs)
		}

		// Job routes
		jobs := api.Group("/jobs")
		{
			jobs.GET("", h.ListJobs)
			jobs.POST("", h.CreateJob)
			jobs.PATCH("/:id", h.UpdateJob)
		}

		// Prompt routes (read-only; mutation is owned by the optimizer)
		api.GET("/prompts", h.ListPrompts)

		// Digest routes
		api.GET("/digests", h.ListDigests)

		// Feedback routes
		feedback := api.Group("/feedback")
		{
			feedback.POST("/digest", h.CreateDigestFeedback)
			feedback.POST("/relevance", h.CreateRelevanceFeedback)
		}
	}
}
