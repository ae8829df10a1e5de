package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	accountrepo "maildigest/internal/account/repository"
	jobdomain "maildigest/internal/job/domain"
	mailusecase "maildigest/internal/mail/usecase"
	summarydomain "maildigest/internal/summary/domain"
)

// IngestionAgent is the slice of the mail manager the runner needs.
type IngestionAgent interface {
	ProcessAllAccounts(ctx context.Context) ([]mailusecase.AccountResult, error)
	PruneOldMessages(ctx context.Context) (int64, error)
}

// ScoringAgent is the slice of the summary generator the runner needs.
type ScoringAgent interface {
	ScorePendingMessages(ctx context.Context) (int, error)
	GenerateDigest(ctx context.Context, accountID string, windowStart, windowEnd time.Time) (*summarydomain.DigestSummary, error)
}

// OptimizerAgent is the slice of the optimizer the runner needs.
type OptimizerAgent interface {
	ProcessFeedback(ctx context.Context) error
}

// AgentRunner dispatches scheduled jobs to the pipeline agents.
type AgentRunner struct {
	mail      IngestionAgent
	summaries ScoringAgent
	optimizer OptimizerAgent
	accounts  accountrepo.AccountRepository
}

// NewAgentRunner creates a new agent runner
func NewAgentRunner(mail IngestionAgent, summaries ScoringAgent, optimizer OptimizerAgent, accounts accountrepo.AccountRepository) *AgentRunner {
	return &AgentRunner{
		mail:      mail,
		summaries: summaries,
		optimizer: optimizer,
		accounts:  accounts,
	}
}

// Run implements JobRunner.
func (r *AgentRunner) Run(ctx context.Context, job jobdomain.JobConfig) error {
	switch job.JobType {
	case jobdomain.JobTypeIngestion:
		results, err := r.mail.ProcessAllAccounts(ctx)
		if err != nil {
			return err
		}
		// New mail feeds straight into scoring so digests never lag a tick
		newMessages := 0
		for _, res := range results {
			newMessages += res.NewMessages
		}
		if newMessages > 0 {
			if _, err := r.summaries.ScorePendingMessages(ctx); err != nil {
				return err
			}
		}
		_, err = r.mail.PruneOldMessages(ctx)
		return err

	case jobdomain.JobTypeScoring:
		_, err := r.summaries.ScorePendingMessages(ctx)
		return err

	case jobdomain.JobTypeDigest:
		return r.runDigest(ctx, job)

	case jobdomain.JobTypeOptimizer:
		return r.optimizer.ProcessFeedback(ctx)

	default:
		return fmt.Errorf("unknown job type %q", job.JobType)
	}
}

// runDigest generates a digest for the job's account, or for every active
// account when the job is unscoped.
func (r *AgentRunner) runDigest(ctx context.Context, job jobdomain.JobConfig) error {
	windowHours := job.WindowHours
	if windowHours <= 0 {
		windowHours = 24
	}
	end := time.Now()
	start := end.Add(-time.Duration(windowHours) * time.Hour)

	if job.AccountID != "" {
		_, err := r.summaries.GenerateDigest(ctx, job.AccountID, start, end)
		return err
	}

	accounts, err := r.accounts.GetActive()
	if err != nil {
		return err
	}
	// Every account gets its attempt; one account's failure never aborts the
	// rest of the run.
	var errs []error
	for _, account := range accounts {
		if _, err := r.summaries.GenerateDigest(ctx, account.ID, start, end); err != nil {
			log.Printf("[Scheduler] Digest for account %s failed: %v", account.Name, err)
			errs = append(errs, fmt.Errorf("digest for account %s: %w", account.Name, err))
		}
	}
	return errors.Join(errs...)
}
