package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	accountdomain "maildigest/internal/account/domain"
	accountrepo "maildigest/internal/account/repository"
	maildomain "maildigest/internal/mail/domain"
	mailrepo "maildigest/internal/mail/repository"
	"maildigest/pkg/mailbox"
	"maildigest/pkg/secrets"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&accountdomain.AccountConfig{},
		&maildomain.Message{},
		&maildomain.ProcessingLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// fakeFetcher serves canned messages (or an error) per username.
type fakeFetcher struct {
	messages map[string][]mailbox.FetchedMessage
	errors   map[string]error
	calls    int
}

func (f *fakeFetcher) FetchSince(ctx context.Context, cfg mailbox.ConnectConfig, since time.Time) ([]mailbox.FetchedMessage, error) {
	f.calls++
	if err := f.errors[cfg.Username]; err != nil {
		return nil, err
	}
	return f.messages[cfg.Username], nil
}

func testKeeper(t *testing.T) *secrets.Keeper {
	t.Helper()
	keeper, err := secrets.NewKeeper("test-secret")
	if err != nil {
		t.Fatalf("failed to create keeper: %v", err)
	}
	return keeper
}

func createAccount(t *testing.T, repo accountrepo.AccountRepository, keeper *secrets.Keeper, name, username string) *accountdomain.AccountConfig {
	t.Helper()
	encrypted, err := keeper.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("failed to encrypt password: %v", err)
	}
	account := &accountdomain.AccountConfig{
		Name:              name,
		Host:              "imap.example.com",
		Port:              993,
		UseTLS:            true,
		Username:          username,
		EncryptedPassword: encrypted,
		Priority:          1,
		Active:            true,
	}
	if err := repo.Create(account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func fetchedMessage(id, subject string) mailbox.FetchedMessage {
	return mailbox.FetchedMessage{
		ProviderMessageID: id,
		Sender:            "Alice <alice@example.com>",
		Subject:           subject,
		Body:              "hello",
		ReceivedAt:        time.Now().Add(-time.Hour),
	}
}

func TestProcessAccountDedupsAcrossRuns(t *testing.T) {
	db := newTestDB(t)
	keeper := testKeeper(t)
	accounts := accountrepo.NewAccountRepository(db)
	messages := mailrepo.NewMessageRepository(db)
	logs := mailrepo.NewProcessingLogRepository(db)

	account := createAccount(t, accounts, keeper, "work", "alice@example.com")
	fetcher := &fakeFetcher{
		messages: map[string][]mailbox.FetchedMessage{
			"alice@example.com": {
				fetchedMessage("<msg-1@example.com>", "first"),
				fetchedMessage("<msg-2@example.com>", "second"),
			},
		},
	}
	m := NewMailManager(accounts, messages, logs, fetcher, keeper, 24*time.Hour, 0)

	first := m.ProcessAccount(context.Background(), account)
	if first.Err != nil {
		t.Fatalf("first run failed: %v", first.Err)
	}
	if first.NewMessages != 2 || first.TotalSeen != 2 {
		t.Errorf("first run: new=%d seen=%d, want 2/2", first.NewMessages, first.TotalSeen)
	}
	if first.Status != maildomain.RunStatusSuccess {
		t.Errorf("first run status = %q, want %q", first.Status, maildomain.RunStatusSuccess)
	}

	// Same provider window again: everything deduped, nothing stored twice.
	second := m.ProcessAccount(context.Background(), account)
	if second.Err != nil {
		t.Fatalf("second run failed: %v", second.Err)
	}
	if second.NewMessages != 0 || second.TotalSeen != 2 {
		t.Errorf("second run: new=%d seen=%d, want 0/2", second.NewMessages, second.TotalSeen)
	}

	var count int64
	db.Model(&maildomain.Message{}).Count(&count)
	if count != 2 {
		t.Errorf("stored messages = %d, want 2", count)
	}
}

func TestProcessAccountSkipsMessagesWithoutID(t *testing.T) {
	db := newTestDB(t)
	keeper := testKeeper(t)
	accounts := accountrepo.NewAccountRepository(db)
	messages := mailrepo.NewMessageRepository(db)
	logs := mailrepo.NewProcessingLogRepository(db)

	account := createAccount(t, accounts, keeper, "work", "alice@example.com")
	fetcher := &fakeFetcher{
		messages: map[string][]mailbox.FetchedMessage{
			"alice@example.com": {
				fetchedMessage("<msg-1@example.com>", "ok"),
				fetchedMessage("", "no message id"),
			},
		},
	}
	m := NewMailManager(accounts, messages, logs, fetcher, keeper, 24*time.Hour, 0)

	result := m.ProcessAccount(context.Background(), account)
	if result.NewMessages != 1 || result.TotalSeen != 2 {
		t.Errorf("new=%d seen=%d, want 1/2", result.NewMessages, result.TotalSeen)
	}
	if result.Status != maildomain.RunStatusPartial {
		t.Errorf("status = %q, want %q", result.Status, maildomain.RunStatusPartial)
	}
}

func TestProcessAllAccountsIsolatesFailures(t *testing.T) {
	db := newTestDB(t)
	keeper := testKeeper(t)
	accounts := accountrepo.NewAccountRepository(db)
	messages := mailrepo.NewMessageRepository(db)
	logs := mailrepo.NewProcessingLogRepository(db)

	good := createAccount(t, accounts, keeper, "good", "good@example.com")
	bad := createAccount(t, accounts, keeper, "bad", "bad@example.com")

	fetcher := &fakeFetcher{
		messages: map[string][]mailbox.FetchedMessage{
			"good@example.com": {fetchedMessage("<msg-1@example.com>", "hi")},
		},
		errors: map[string]error{
			"bad@example.com": errors.New("connection refused"),
		},
	}
	m := NewMailManager(accounts, messages, logs, fetcher, keeper, 24*time.Hour, 0)

	results, err := m.ProcessAllAccounts(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllAccounts: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	byID := make(map[string]AccountResult, len(results))
	for _, r := range results {
		byID[r.AccountID] = r
	}

	if r := byID[good.ID]; r.Err != nil || r.NewMessages != 1 {
		t.Errorf("good account: err=%v new=%d, want nil/1", r.Err, r.NewMessages)
	}
	if r := byID[bad.ID]; r.Err == nil || r.Status != maildomain.RunStatusError {
		t.Errorf("bad account: err=%v status=%q, want error/%q", r.Err, r.Status, maildomain.RunStatusError)
	}

	// Error counters: failing account incremented, healthy account reset.
	goodAfter, _ := accounts.GetByID(good.ID)
	badAfter, _ := accounts.GetByID(bad.ID)
	if goodAfter.ConsecutiveErrors != 0 {
		t.Errorf("good account errors = %d, want 0", goodAfter.ConsecutiveErrors)
	}
	if badAfter.ConsecutiveErrors != 1 {
		t.Errorf("bad account errors = %d, want 1", badAfter.ConsecutiveErrors)
	}

	// One processing log entry per account.
	var logCount int64
	db.Model(&maildomain.ProcessingLog{}).Count(&logCount)
	if logCount != 2 {
		t.Errorf("processing log entries = %d, want 2", logCount)
	}
}

func TestMarkSuccessResetsErrorCounter(t *testing.T) {
	db := newTestDB(t)
	keeper := testKeeper(t)
	accounts := accountrepo.NewAccountRepository(db)
	messages := mailrepo.NewMessageRepository(db)
	logs := mailrepo.NewProcessingLogRepository(db)

	account := createAccount(t, accounts, keeper, "flaky", "flaky@example.com")
	fetcher := &fakeFetcher{
		errors: map[string]error{
			"flaky@example.com": errors.New("timeout"),
		},
	}
	m := NewMailManager(accounts, messages, logs, fetcher, keeper, 24*time.Hour, 0)

	m.ProcessAccount(context.Background(), account)
	m.ProcessAccount(context.Background(), account)

	after, _ := accounts.GetByID(account.ID)
	if after.ConsecutiveErrors != 2 {
		t.Fatalf("errors after two failures = %d, want 2", after.ConsecutiveErrors)
	}

	// Recovery clears the streak.
	fetcher.errors = nil
	m.ProcessAccount(context.Background(), account)

	after, _ = accounts.GetByID(account.ID)
	if after.ConsecutiveErrors != 0 {
		t.Errorf("errors after recovery = %d, want 0", after.ConsecutiveErrors)
	}
	if after.LastCheckedAt == nil {
		t.Error("last checked at not set")
	}
}

func TestPruneOldMessages(t *testing.T) {
	db := newTestDB(t)
	keeper := testKeeper(t)
	accounts := accountrepo.NewAccountRepository(db)
	messages := mailrepo.NewMessageRepository(db)
	logs := mailrepo.NewProcessingLogRepository(db)

	m := NewMailManager(accounts, messages, logs, &fakeFetcher{}, keeper, 24*time.Hour, 30)

	old := &maildomain.Message{
		AccountID:         "acc-1",
		ProviderMessageID: "<old@example.com>",
		ReceivedAt:        time.Now().AddDate(0, 0, -60),
	}
	recent := &maildomain.Message{
		AccountID:         "acc-1",
		ProviderMessageID: "<recent@example.com>",
		ReceivedAt:        time.Now().Add(-time.Hour),
	}
	for _, msg := range []*maildomain.Message{old, recent} {
		if _, err := messages.EnsureMessage(msg); err != nil {
			t.Fatalf("failed to store message: %v", err)
		}
	}

	deleted, err := m.PruneOldMessages(context.Background())
	if err != nil {
		t.Fatalf("PruneOldMessages: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	var count int64
	db.Model(&maildomain.Message{}).Count(&count)
	if count != 1 {
		t.Errorf("remaining messages = %d, want 1", count)
	}
}
