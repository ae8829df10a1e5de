package main

import (
	"log"

	api "maildigest/cmd/api"
	accountdomain "maildigest/internal/account/domain"
	accountrepo "maildigest/internal/account/repository"
	feedbackdomain "maildigest/internal/feedback/domain"
	feedbackrepo "maildigest/internal/feedback/repository"
	jobdomain "maildigest/internal/job/domain"
	jobrepo "maildigest/internal/job/repository"
	maildomain "maildigest/internal/mail/domain"
	mailrepo "maildigest/internal/mail/repository"
	mailusecase "maildigest/internal/mail/usecase"
	optimizerusecase "maildigest/internal/optimizer/usecase"
	promptdomain "maildigest/internal/prompt/domain"
	promptrepo "maildigest/internal/prompt/repository"
	"maildigest/internal/scheduler"
	summarydomain "maildigest/internal/summary/domain"
	summaryrepo "maildigest/internal/summary/repository"
	summaryusecase "maildigest/internal/summary/usecase"
	"maildigest/pkg/ai"
	"maildigest/pkg/config"
	"maildigest/pkg/database"
	"maildigest/pkg/mailbox"
	"maildigest/pkg/secrets"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&accountdomain.AccountConfig{},
		&maildomain.Message{},
		&maildomain.ProcessingLog{},
		&summarydomain.DigestSummary{},
		&promptdomain.PromptVersion{},
		&feedbackdomain.DigestFeedback{},
		&feedbackdomain.RelevanceFeedback{},
		&jobdomain.JobConfig{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Secret keeper for account passwords
	keeper, err := secrets.NewKeeper(cfg.SecretKey)
	if err != nil {
		log.Fatal("Failed to initialize secret keeper (set SECRET_KEY):", err)
	}

	// Initialize repositories (dependency injection)
	accounts := accountrepo.NewAccountRepository(db)
	messages := mailrepo.NewMessageRepository(db)
	logs := mailrepo.NewProcessingLogRepository(db)
	digests := summaryrepo.NewDigestRepository(db)
	prompts := promptrepo.NewPromptRepository(db)
	feedback := feedbackrepo.NewFeedbackRepository(db)
	jobs := jobrepo.NewJobConfigRepository(db)

	// Seed built-in prompts
	if err := promptrepo.Seed(prompts); err != nil {
		log.Fatal("Failed to seed prompts:", err)
	}

	// Initialize AI provider
	llm, err := ai.NewClient(ai.Config{
		Provider:     ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI provider:", err)
	}
	log.Printf("AI provider initialized: %s (%s)", cfg.AIProvider, llm.Model())

	// Initialize agents (dependency injection)
	mailManager := mailusecase.NewMailManager(accounts, messages, logs,
		mailbox.NewIMAPClient(), keeper, cfg.IngestionWindow, cfg.RetentionDays)
	summaries := summaryusecase.NewSummaryGenerator(messages, digests, prompts,
		llm, cfg.LLMTimeout, cfg.RelevanceThreshold)
	optimizer := optimizerusecase.NewOptimizer(prompts, feedback, digests)

	// Initialize scheduler
	runner := scheduler.NewAgentRunner(mailManager, summaries, optimizer, accounts)
	sched := scheduler.New(jobs, runner, cfg.TickInterval, cfg.ConcurrencyLimit)
	if cfg.SchedulerEnabled {
		sched.Start()
	} else {
		log.Println("Scheduler disabled by configuration")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(cfg, keeper, sched, mailManager, summaries, optimizer,
		accounts, jobs, prompts, feedback, digests, logs, messages)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
