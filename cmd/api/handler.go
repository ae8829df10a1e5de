package api

import (
	accountrepo "maildigest/internal/account/repository"
	feedbackrepo "maildigest/internal/feedback/repository"
	jobrepo "maildigest/internal/job/repository"
	mailrepo "maildigest/internal/mail/repository"
	mailusecase "maildigest/internal/mail/usecase"
	optimizerusecase "maildigest/internal/optimizer/usecase"
	promptrepo "maildigest/internal/prompt/repository"
	"maildigest/internal/scheduler"
	summaryrepo "maildigest/internal/summary/repository"
	summaryusecase "maildigest/internal/summary/usecase"
	"maildigest/pkg/config"
	"maildigest/pkg/secrets"

	"github.com/gin-gonic/gin"
)

// Handler wires the pipeline agents and repositories into the HTTP API.
type Handler struct {
	config    *config.Config
	keeper    *secrets.Keeper
	scheduler *scheduler.Scheduler

	mailManager *mailusecase.MailManager
	summaries   *summaryusecase.SummaryGenerator
	optimizer   *optimizerusecase.Optimizer

	accounts accountrepo.AccountRepository
	jobs     jobrepo.JobConfigRepository
	prompts  promptrepo.PromptRepository
	feedback feedbackrepo.FeedbackRepository
	digests  summaryrepo.DigestRepository
	logs     mailrepo.ProcessingLogRepository
	messages mailrepo.MessageRepository
}

// NewHandler creates the HTTP handler (dependency injection)
func NewHandler(
	cfg *config.Config,
	keeper *secrets.Keeper,
	sched *scheduler.Scheduler,
	mailManager *mailusecase.MailManager,
	summaries *summaryusecase.SummaryGenerator,
	optimizer *optimizerusecase.Optimizer,
	accounts accountrepo.AccountRepository,
	jobs jobrepo.JobConfigRepository,
	prompts promptrepo.PromptRepository,
	feedback feedbackrepo.FeedbackRepository,
	digests summaryrepo.DigestRepository,
	logs mailrepo.ProcessingLogRepository,
	messages mailrepo.MessageRepository,
) *Handler {
	return &Handler{
		config:      cfg,
		keeper:      keeper,
		scheduler:   sched,
		mailManager: mailManager,
		summaries:   summaries,
		optimizer:   optimizer,
		accounts:    accounts,
		jobs:        jobs,
		prompts:     prompts,
		feedback:    feedback,
		digests:     digests,
		logs:        logs,
		messages:    messages,
	}
}

// Start runs the HTTP server.
func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	SetupRoutes(r, h)

	return r.Run(addr)
}
