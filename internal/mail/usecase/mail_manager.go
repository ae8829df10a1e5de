package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	accountdomain "maildigest/internal/account/domain"
	accountrepo "maildigest/internal/account/repository"
	maildomain "maildigest/internal/mail/domain"
	mailrepo "maildigest/internal/mail/repository"
	"maildigest/pkg/mailbox"
	"maildigest/pkg/secrets"
)

// AccountResult is the settled outcome of one account's ingestion run. A
// failed account never aborts its siblings; the failure lands here instead.
type AccountResult struct {
	AccountID   string
	AccountName string
	Status      string
	NewMessages int
	TotalSeen   int
	Duration    time.Duration
	Err         error
}

// MailManager fetches new mail for every active account and persists each
// message exactly once.
type MailManager struct {
	accounts      accountrepo.AccountRepository
	messages      mailrepo.MessageRepository
	logs          mailrepo.ProcessingLogRepository
	fetcher       mailbox.Fetcher
	keeper        *secrets.Keeper
	window        time.Duration
	retentionDays int
}

// NewMailManager creates a new mail manager
func NewMailManager(
	accounts accountrepo.AccountRepository,
	messages mailrepo.MessageRepository,
	logs mailrepo.ProcessingLogRepository,
	fetcher mailbox.Fetcher,
	keeper *secrets.Keeper,
	window time.Duration,
	retentionDays int,
) *MailManager {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &MailManager{
		accounts:      accounts,
		messages:      messages,
		logs:          logs,
		fetcher:       fetcher,
		keeper:        keeper,
		window:        window,
		retentionDays: retentionDays,
	}
}

// ProcessAllAccounts runs ingestion for every active account in parallel and
// returns one result per account. Results settle individually; a transport
// error in one account is reported in its slot and nowhere else.
func (m *MailManager) ProcessAllAccounts(ctx context.Context) ([]AccountResult, error) {
	accounts, err := m.accounts.GetActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load active accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	results := make([]AccountResult, len(accounts))
	var wg sync.WaitGroup
	for i := range accounts {
		wg.Add(1)
		go func(idx int, account accountdomain.AccountConfig) {
			defer wg.Done()
			results[idx] = m.ProcessAccount(ctx, &account)
		}(i, accounts[i])
	}
	wg.Wait()

	newTotal := 0
	for _, r := range results {
		newTotal += r.NewMessages
	}
	log.Printf("[MailManager] Processed %d accounts, %d new messages", len(accounts), newTotal)

	return results, nil
}

// ProcessAccount fetches and persists new mail for one account. It always
// returns a settled result and writes a processing log entry; it never panics
// out of a batch.
func (m *MailManager) ProcessAccount(ctx context.Context, account *accountdomain.AccountConfig) AccountResult {
	started := time.Now()
	result := AccountResult{
		AccountID:   account.ID,
		AccountName: account.Name,
	}

	password, err := m.keeper.Decrypt(account.EncryptedPassword)
	if err != nil {
		result.Status = maildomain.RunStatusError
		result.Err = fmt.Errorf("failed to decrypt credentials: %w", err)
		m.finishRun(account, &result, started)
		return result
	}

	since := time.Now().Add(-m.window)
	fetched, err := m.fetcher.FetchSince(ctx, mailbox.ConnectConfig{
		Address:  account.Address(),
		Username: account.Username,
		Password: password,
		UseTLS:   account.UseTLS,
	}, since)
	if err != nil {
		result.Status = maildomain.RunStatusError
		result.Err = err
		m.finishRun(account, &result, started)
		return result
	}

	parseFailures := 0
	for _, fm := range fetched {
		result.TotalSeen++

		if fm.ProviderMessageID == "" {
			// Without a message id we cannot dedup; skip rather than risk
			// storing the same message on every run.
			parseFailures++
			log.Printf("[MailManager] Skipping message without message-id for account %s", account.Name)
			continue
		}
		if fm.ParseError != nil {
			log.Printf("[MailManager] Body parse error for %s on account %s: %v", fm.ProviderMessageID, account.Name, fm.ParseError)
		}

		msg := &maildomain.Message{
			AccountID:         account.ID,
			ProviderMessageID: fm.ProviderMessageID,
			Sender:            fm.Sender,
			Subject:           fm.Subject,
			Body:              fm.Body,
			ReceivedAt:        fm.ReceivedAt,
		}
		created, err := m.messages.EnsureMessage(msg)
		if err != nil {
			parseFailures++
			log.Printf("[MailManager] Failed to store message %s for account %s: %v", fm.ProviderMessageID, account.Name, err)
			continue
		}
		if created {
			result.NewMessages++
		}
		// A duplicate is not an error, it just contributes 0 to the count
	}

	if parseFailures > 0 {
		result.Status = maildomain.RunStatusPartial
	} else {
		result.Status = maildomain.RunStatusSuccess
	}

	m.finishRun(account, &result, started)
	return result
}

// finishRun updates the account health counters and writes the processing log
// entry for this run.
func (m *MailManager) finishRun(account *accountdomain.AccountConfig, result *AccountResult, started time.Time) {
	result.Duration = time.Since(started)
	now := time.Now()

	if result.Status == maildomain.RunStatusError {
		if err := m.accounts.MarkFailure(account.ID, now); err != nil {
			log.Printf("[MailManager] Failed to record failure for account %s: %v", account.Name, err)
		}
		log.Printf("[MailManager] Account %s failed: %v", account.Name, result.Err)
	} else {
		if err := m.accounts.MarkSuccess(account.ID, now); err != nil {
			log.Printf("[MailManager] Failed to record success for account %s: %v", account.Name, err)
		}
	}

	entry := &maildomain.ProcessingLog{
		AccountID:   account.ID,
		Status:      result.Status,
		NewMessages: result.NewMessages,
		TotalSeen:   result.TotalSeen,
		DurationMs:  result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	if err := m.logs.Create(entry); err != nil {
		log.Printf("[MailManager] Failed to write processing log for account %s: %v", account.Name, err)
	}
}

// PruneOldMessages deletes messages older than the retention period.
func (m *MailManager) PruneOldMessages(ctx context.Context) (int64, error) {
	if m.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -m.retentionDays)
	deleted, err := m.messages.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep failed: %w", err)
	}
	if deleted > 0 {
		log.Printf("[MailManager] Retention sweep deleted %d messages older than %s", deleted, cutoff.Format("2006-01-02"))
	}
	return deleted, nil
}
