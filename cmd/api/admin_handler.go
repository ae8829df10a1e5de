package api

import (
	"net/http"
	"time"

	accountdomain "maildigest/internal/account/domain"
	feedbackdomain "maildigest/internal/feedback/domain"
	jobdomain "maildigest/internal/job/domain"

	"github.com/gin-gonic/gin"
)

type createAccountRequest struct {
	Name     string `json:"name" binding:"required"`
	Host     string `json:"host" binding:"required"`
	Port     int    `json:"port"`
	UseTLS   *bool  `json:"use_tls"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Priority int    `json:"priority"`
}

// CreateAccount registers a new mailbox account. The password is encrypted
// before it touches the database and never leaves it again.
func (h *Handler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encrypted, err := h.keeper.Encrypt(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encrypt credentials"})
		return
	}

	useTLS := true
	if req.UseTLS != nil {
		useTLS = *req.UseTLS
	}
	port := req.Port
	if port == 0 {
		port = 993
	}
	priority := req.Priority
	if priority == 0 {
		priority = 1
	}

	account := &accountdomain.AccountConfig{
		Name:              req.Name,
		Host:              req.Host,
		Port:              port,
		UseTLS:            useTLS,
		Username:          req.Username,
		EncryptedPassword: encrypted,
		Priority:          priority,
		Active:            true,
	}
	if err := h.accounts.Create(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, account)
}

// ListAccounts returns all configured accounts.
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// AccountHealth surfaces accounts with repeated failures or without a recent
// successful check as a degraded-health signal for operators. A failing
// account is degraded, not an outage.
func (h *Handler) AccountHealth(c *gin.Context) {
	degraded, err := h.accounts.GetDegraded(3)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	staleCutoff := time.Now().Add(-3 * h.config.IngestionWindow)
	stale, err := h.accounts.GetStale(staleCutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"degraded": degraded,
		"stale":    stale,
		"healthy":  len(degraded) == 0 && len(stale) == 0,
	})
}

// ForceSync resets an account's error state and runs ingestion for it
// immediately.
func (h *Handler) ForceSync(c *gin.Context) {
	id := c.Param("id")
	account, err := h.accounts.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	if err := h.accounts.ResetErrors(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := h.mailManager.ProcessAccount(c.Request.Context(), account)
	resp := gin.H{
		"status":       result.Status,
		"new_messages": result.NewMessages,
		"total_seen":   result.TotalSeen,
	}
	if result.Err != nil {
		resp["error"] = result.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// AccountLogs returns the recent processing log entries for an account.
func (h *Handler) AccountLogs(c *gin.Context) {
	entries, err := h.logs.ListRecent(c.Param("id"), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

type createJobRequest struct {
	Name        string `json:"name"`
	JobType     string `json:"job_type" binding:"required"`
	Schedule    string `json:"schedule" binding:"required"`
	AccountID   string `json:"account_id"`
	WindowHours int    `json:"window_hours"`
}

// CreateJob creates a job config and schedules it.
func (h *Handler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !jobdomain.ValidJobType(req.JobType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job type"})
		return
	}

	job := &jobdomain.JobConfig{
		Name:        req.Name,
		JobType:     req.JobType,
		Schedule:    req.Schedule,
		AccountID:   req.AccountID,
		WindowHours: req.WindowHours,
		Active:      true,
	}
	if err := h.jobs.Create(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.scheduler.Schedule(job)
	c.JSON(http.StatusCreated, job)
}

// ListJobs returns all job configs.
func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

type updateJobRequest struct {
	Schedule *string `json:"schedule"`
	Active   *bool   `json:"active"`
}

// UpdateJob updates schedule or active flag and reschedules or unschedules
// accordingly.
func (h *Handler) UpdateJob(c *gin.Context) {
	id := c.Param("id")
	job, err := h.jobs.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Schedule != nil {
		job.Schedule = *req.Schedule
	}
	if req.Active != nil {
		job.Active = *req.Active
	}
	if err := h.jobs.Save(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if job.Active {
		h.scheduler.Schedule(job)
	} else {
		h.scheduler.Unschedule(job.ID)
	}
	c.JSON(http.StatusOK, job)
}

// ListPrompts returns all prompt versions with their stats.
func (h *Handler) ListPrompts(c *gin.Context) {
	prompts, err := h.prompts.List(c.Query("agent_type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompts": prompts})
}

// ListDigests returns recent digests, optionally filtered by account.
func (h *Handler) ListDigests(c *gin.Context) {
	digests, err := h.digests.ListRecent(c.Query("account_id"), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"digests": digests})
}

type digestFeedbackRequest struct {
	DigestID string `json:"digest_id" binding:"required"`
	Rating   int    `json:"rating" binding:"required"`
	Comment  string `json:"comment"`
}

// CreateDigestFeedback records a digest quality rating (1 best, 6 worst).
func (h *Handler) CreateDigestFeedback(c *gin.Context) {
	var req digestFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rating < 1 || req.Rating > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 6"})
		return
	}

	digest, err := h.digests.GetByID(req.DigestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if digest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "digest not found"})
		return
	}

	fb := &feedbackdomain.DigestFeedback{
		DigestID: req.DigestID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}
	if err := h.feedback.CreateDigestFeedback(fb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, fb)
}

type relevanceFeedbackRequest struct {
	MessageID   string `json:"message_id" binding:"required"`
	ManualScore int    `json:"manual_score" binding:"required"`
	Comment     string `json:"comment"`
}

// CreateRelevanceFeedback records a user correction of an AI relevance score.
func (h *Handler) CreateRelevanceFeedback(c *gin.Context) {
	var req relevanceFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ManualScore < 1 || req.ManualScore > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "manual_score must be between 1 and 10"})
		return
	}

	msg, err := h.messages.GetByID(req.MessageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msg == nil || !msg.Processed || msg.RelevanceScore == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scored message not found"})
		return
	}

	fb := &feedbackdomain.RelevanceFeedback{
		MessageID:   req.MessageID,
		AIScore:     *msg.RelevanceScore,
		ManualScore: req.ManualScore,
		Comment:     req.Comment,
	}
	if err := h.feedback.CreateRelevanceFeedback(fb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, fb)
}
