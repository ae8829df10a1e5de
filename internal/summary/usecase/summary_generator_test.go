package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	maildomain "maildigest/internal/mail/domain"
	mailrepo "maildigest/internal/mail/repository"
	promptdomain "maildigest/internal/prompt/domain"
	promptrepo "maildigest/internal/prompt/repository"
	summarydomain "maildigest/internal/summary/domain"
	summaryrepo "maildigest/internal/summary/repository"
	"maildigest/pkg/ai"

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
		&maildomain.Message{},
		&summarydomain.DigestSummary{},
		&promptdomain.PromptVersion{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// fakeLLM replays canned responses in order, repeating the last one, and keeps
// every prompt it was sent.
type fakeLLM struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeLLM) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &ai.Response{Text: f.responses[idx], TokensUsed: 42}, nil
}

func (f *fakeLLM) Model() string {
	return "fake-model"
}

func storeMessage(t *testing.T, messages mailrepo.MessageRepository, providerID, subject string, receivedAt time.Time) *maildomain.Message {
	t.Helper()
	msg := &maildomain.Message{
		AccountID:         "acc-1",
		ProviderMessageID: providerID,
		Sender:            "Alice <alice@example.com>",
		Subject:           subject,
		Body:              "body text",
		ReceivedAt:        receivedAt,
	}
	if _, err := messages.EnsureMessage(msg); err != nil {
		t.Fatalf("failed to store message: %v", err)
	}
	return msg
}

func newGenerator(t *testing.T, db *gorm.DB, llm ai.Client) (*SummaryGenerator, mailrepo.MessageRepository, summaryrepo.DigestRepository, promptrepo.PromptRepository) {
	t.Helper()
	messages := mailrepo.NewMessageRepository(db)
	digests := summaryrepo.NewDigestRepository(db)
	prompts := promptrepo.NewPromptRepository(db)
	if err := promptrepo.Seed(prompts); err != nil {
		t.Fatalf("failed to seed prompts: %v", err)
	}
	gen := NewSummaryGenerator(messages, digests, prompts, llm, time.Second, 6)
	return gen, messages, digests, prompts
}

func TestScoreMessageValidResponse(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 8, "confidence": 0.9, "category": "work", "reasoning": "deadline"}`,
	}}
	gen, messages, _, prompts := newGenerator(t, db, llm)

	msg := storeMessage(t, messages, "<m1@example.com>", "urgent", time.Now())

	result, err := gen.ScoreMessage(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("ScoreMessage: %v", err)
	}
	if result.Score != 8 || result.Confidence != 0.9 || result.Category != "work" {
		t.Errorf("result = %+v, want score 8, confidence 0.9, category work", result)
	}
	if result.Fallback {
		t.Error("valid response flagged as fallback")
	}

	stored, _ := messages.GetByID(msg.ID)
	if !stored.Processed {
		t.Error("message not marked processed")
	}
	if stored.RelevanceScore == nil || *stored.RelevanceScore != 8 {
		t.Errorf("stored score = %v, want 8", stored.RelevanceScore)
	}

	active, _ := prompts.GetActive(promptdomain.AgentTypeScoring)
	if active.UsageCount != 1 {
		t.Errorf("prompt usage count = %d, want 1", active.UsageCount)
	}
}

func TestScoreMessageFallbackOnBadOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
		llmErr   error
	}{
		{name: "not json", response: "I think this email is quite important."},
		{name: "score out of range", response: `{"score": 15, "confidence": 0.9, "category": "work"}`},
		{name: "confidence out of range", response: `{"score": 5, "confidence": 1.5, "category": "work"}`},
		{name: "missing score", response: `{"confidence": 0.9, "category": "work"}`},
		{name: "unknown category", response: `{"score": 5, "confidence": 0.9, "category": "gossip"}`},
		{name: "transport error", llmErr: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			llm := &fakeLLM{responses: []string{tt.response}, err: tt.llmErr}
			gen, messages, _, prompts := newGenerator(t, db, llm)

			msg := storeMessage(t, messages, "<m1@example.com>", "whatever", time.Now())

			result, err := gen.ScoreMessage(context.Background(), msg.ID)
			if err != nil {
				t.Fatalf("ScoreMessage: %v", err)
			}
			if result.Score != 5 || result.Confidence != 0.1 || result.Category != "unknown" {
				t.Errorf("fallback = %+v, want score 5, confidence 0.1, category unknown", result)
			}
			if !result.Fallback {
				t.Error("fallback not flagged")
			}

			// Marked processed even on fallback: never retried indefinitely.
			stored, _ := messages.GetByID(msg.ID)
			if !stored.Processed {
				t.Error("fallback message not marked processed")
			}

			// Fallbacks must not count as prompt usage.
			active, _ := prompts.GetActive(promptdomain.AgentTypeScoring)
			if active.UsageCount != 0 {
				t.Errorf("prompt usage count = %d, want 0", active.UsageCount)
			}
		})
	}
}

func TestScoreMessageAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 7, "confidence": 0.8, "category": "personal", "reasoning": "from a friend"}`,
	}}
	gen, messages, _, _ := newGenerator(t, db, llm)

	msg := storeMessage(t, messages, "<m1@example.com>", "hi", time.Now())

	first, err := gen.ScoreMessage(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("first ScoreMessage: %v", err)
	}
	second, err := gen.ScoreMessage(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("second ScoreMessage: %v", err)
	}

	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want 1 (second call must return stored result)", llm.calls)
	}
	if second.Score != first.Score || second.Category != first.Category {
		t.Errorf("second result %+v differs from first %+v", second, first)
	}
}

func TestScoreMessageTruncatesBodyAtRuneBoundary(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 5, "confidence": 0.5, "category": "work"}`,
	}}
	gen, messages, _, _ := newGenerator(t, db, llm)

	// A two-byte rune straddles the truncation limit.
	body := strings.Repeat("a", maxBodyChars-1) + "é plus trailing text that must be cut"
	msg := &maildomain.Message{
		AccountID:         "acc-1",
		ProviderMessageID: "<long@example.com>",
		Sender:            "Alice <alice@example.com>",
		Subject:           "long body",
		Body:              body,
		ReceivedAt:        time.Now(),
	}
	if _, err := messages.EnsureMessage(msg); err != nil {
		t.Fatalf("failed to store message: %v", err)
	}

	if _, err := gen.ScoreMessage(context.Background(), msg.ID); err != nil {
		t.Fatalf("ScoreMessage: %v", err)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("llm calls = %d, want 1", len(llm.prompts))
	}

	prompt := llm.prompts[0]
	if !utf8.ValidString(prompt) {
		t.Error("prompt contains invalid UTF-8 after truncation")
	}
	if strings.Contains(prompt, "trailing text") {
		t.Error("body was not truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("a", maxBodyChars-1)) {
		t.Error("truncation cut more than the straddling rune")
	}
}

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "short untouched", body: "hello", want: "hello"},
		{name: "exact limit untouched", body: strings.Repeat("a", maxBodyChars), want: strings.Repeat("a", maxBodyChars)},
		{name: "ascii cut at limit", body: strings.Repeat("a", maxBodyChars+10), want: strings.Repeat("a", maxBodyChars)},
		{
			name: "rune straddling limit dropped whole",
			body: strings.Repeat("a", maxBodyChars-1) + "éxx",
			want: strings.Repeat("a", maxBodyChars-1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateBody(tt.body)
			if got != tt.want {
				t.Errorf("truncateBody: got %d bytes, want %d", len(got), len(tt.want))
			}
			if !utf8.ValidString(got) {
				t.Error("result is not valid UTF-8")
			}
		})
	}
}

func TestScorePendingMessagesDrainsBacklog(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 8, "confidence": 0.9, "category": "work"}`,
		`{"score": 3, "confidence": 0.7, "category": "newsletter"}`,
	}}
	gen, messages, _, _ := newGenerator(t, db, llm)

	storeMessage(t, messages, "<m1@example.com>", "one", time.Now().Add(-2*time.Hour))
	storeMessage(t, messages, "<m2@example.com>", "two", time.Now().Add(-time.Hour))

	scored, err := gen.ScorePendingMessages(context.Background())
	if err != nil {
		t.Fatalf("ScorePendingMessages: %v", err)
	}
	if scored != 2 {
		t.Errorf("scored = %d, want 2", scored)
	}

	remaining, _ := messages.GetUnscored(0)
	if len(remaining) != 0 {
		t.Errorf("unscored remaining = %d, want 0", len(remaining))
	}
}

func TestGenerateDigestSuppressedWhenNothingRelevant(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 3, "confidence": 0.8, "category": "newsletter"}`,
	}}
	gen, messages, digests, _ := newGenerator(t, db, llm)

	storeMessage(t, messages, "<m1@example.com>", "weekly deals", time.Now().Add(-time.Hour))
	if _, err := gen.ScorePendingMessages(context.Background()); err != nil {
		t.Fatalf("scoring: %v", err)
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	digest, err := gen.GenerateDigest(context.Background(), "acc-1", start, end)
	if err != nil {
		t.Fatalf("GenerateDigest: %v", err)
	}
	if digest != nil {
		t.Fatalf("digest = %+v, want nil for quiet window", digest)
	}

	// No row either: suppression leaves no trace.
	rows, _ := digests.ListRecent("", 10)
	if len(rows) != 0 {
		t.Errorf("digest rows = %d, want 0", len(rows))
	}

	// Only the scoring call reached the model.
	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want 1", llm.calls)
	}
}

func TestGenerateDigestCountsAndMetadata(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 9, "confidence": 0.9, "category": "work", "reasoning": "boss"}`,
		`{"score": 7, "confidence": 0.8, "category": "work"}`,
		`{"score": 3, "confidence": 0.8, "category": "newsletter"}`,
		"Two work items need attention today.",
	}}
	gen, messages, digests, _ := newGenerator(t, db, llm)

	storeMessage(t, messages, "<m1@example.com>", "review", time.Now().Add(-3*time.Hour))
	storeMessage(t, messages, "<m2@example.com>", "standup", time.Now().Add(-2*time.Hour))
	storeMessage(t, messages, "<m3@example.com>", "deals", time.Now().Add(-time.Hour))
	if _, err := gen.ScorePendingMessages(context.Background()); err != nil {
		t.Fatalf("scoring: %v", err)
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	digest, err := gen.GenerateDigest(context.Background(), "acc-1", start, end)
	if err != nil {
		t.Fatalf("GenerateDigest: %v", err)
	}
	if digest == nil {
		t.Fatal("digest = nil, want one")
	}

	if digest.TotalCount != 3 {
		t.Errorf("total count = %d, want 3", digest.TotalCount)
	}
	if digest.RelevantCount != 2 {
		t.Errorf("relevant count = %d, want 2 (threshold 6)", digest.RelevantCount)
	}
	if digest.HighPriorityCount != 1 {
		t.Errorf("high priority count = %d, want 1 (score >= 8)", digest.HighPriorityCount)
	}
	if digest.Summary != "Two work items need attention today." {
		t.Errorf("summary = %q", digest.Summary)
	}
	if digest.PromptVersion != "digest-v1" {
		t.Errorf("prompt version = %q, want digest-v1", digest.PromptVersion)
	}
	if digest.ModelUsed != "fake-model" {
		t.Errorf("model = %q, want fake-model", digest.ModelUsed)
	}
	if digest.TokensUsed != 42 {
		t.Errorf("tokens = %d, want 42", digest.TokensUsed)
	}

	// Persisted row matches the returned digest.
	stored, _ := digests.GetByID(digest.ID)
	if stored == nil || stored.Summary != digest.Summary {
		t.Error("digest row not persisted")
	}
}

func TestGenerateDigestFailsOnModelError(t *testing.T) {
	db := newTestDB(t)
	llm := &fakeLLM{responses: []string{
		`{"score": 9, "confidence": 0.9, "category": "work"}`,
	}}
	gen, messages, digests, _ := newGenerator(t, db, llm)

	storeMessage(t, messages, "<m1@example.com>", "review", time.Now().Add(-time.Hour))
	if _, err := gen.ScorePendingMessages(context.Background()); err != nil {
		t.Fatalf("scoring: %v", err)
	}

	llm.err = errors.New("model overloaded")

	end := time.Now()
	digest, err := gen.GenerateDigest(context.Background(), "acc-1", end.Add(-24*time.Hour), end)
	if err == nil {
		t.Fatal("expected error from failed digest call")
	}
	if digest != nil {
		t.Errorf("digest = %+v, want nil on error", digest)
	}

	rows, _ := digests.ListRecent("", 10)
	if len(rows) != 0 {
		t.Errorf("digest rows = %d, want 0 after failed call", len(rows))
	}
}

func TestParseScoreResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ScoreResult
		ok   bool
	}{
		{
			name: "clean json",
			raw:  `{"score": 7, "confidence": 0.85, "category": "work", "reasoning": "project update"}`,
			want: ScoreResult{Score: 7, Confidence: 0.85, Category: "work", Reasoning: "project update"},
			ok:   true,
		},
		{
			name: "json wrapped in prose",
			raw:  "Sure! Here is the rating:\n```json\n{\"score\": 2, \"confidence\": 0.6, \"category\": \"spam\"}\n```",
			want: ScoreResult{Score: 2, Confidence: 0.6, Category: "spam"},
			ok:   true,
		},
		{
			name: "category normalized",
			raw:  `{"score": 4, "confidence": 0.5, "category": " Newsletter "}`,
			want: ScoreResult{Score: 4, Confidence: 0.5, Category: "newsletter"},
			ok:   true,
		},
		{name: "no braces", raw: "score: 7, confidence: high"},
		{name: "broken json", raw: `{"score": 7, "confidence":`},
		{name: "score zero", raw: `{"score": 0, "confidence": 0.5, "category": "work"}`},
		{name: "score eleven", raw: `{"score": 11, "confidence": 0.5, "category": "work"}`},
		{name: "negative confidence", raw: `{"score": 5, "confidence": -0.1, "category": "work"}`},
		{name: "missing confidence", raw: `{"score": 5, "category": "work"}`},
		{name: "empty category", raw: `{"score": 5, "confidence": 0.5, "category": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseScoreResponse(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("parsed = %+v, want %+v", got, tt.want)
			}
		})
	}
}
