package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	mailrepo "maildigest/internal/mail/repository"
	promptdomain "maildigest/internal/prompt/domain"
	promptrepo "maildigest/internal/prompt/repository"
	summarydomain "maildigest/internal/summary/domain"
	summaryrepo "maildigest/internal/summary/repository"
	"maildigest/pkg/ai"
)

const (
	scoringTemperature = 0.1
	scoringMaxTokens   = 200
	digestTemperature  = 0.3
	digestMaxTokens    = 400
	digestMaxSentences = 8

	// highPriorityScore is the cutoff for the digest's high-priority count.
	highPriorityScore = 8

	maxBodyChars = 4000
)

// validCategories are the only categories accepted from the model; anything
// else routes to the fallback result.
var validCategories = map[string]bool{
	"work":         true,
	"personal":     true,
	"newsletter":   true,
	"notification": true,
	"spam":         true,
	"unknown":      true,
}

// ScoreResult is the parsed outcome of one scoring call.
type ScoreResult struct {
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
	Reasoning  string  `json:"reasoning"`
	// Fallback is true when the model output was unusable and the safe
	// default was applied.
	Fallback bool `json:"-"`
}

// fallbackResult is the safe default applied on malformed or out-of-range
// model output. Low confidence on purpose: downstream must not mistake a
// fallback for a real rating.
func fallbackResult() ScoreResult {
	return ScoreResult{
		Score:      5,
		Confidence: 0.1,
		Category:   "unknown",
		Fallback:   true,
	}
}

// SummaryGenerator scores new messages and synthesizes periodic digests.
type SummaryGenerator struct {
	messages   mailrepo.MessageRepository
	digests    summaryrepo.DigestRepository
	prompts    promptrepo.PromptRepository
	llm        ai.Client
	llmTimeout time.Duration
	threshold  int
}

// NewSummaryGenerator creates a new summary generator
func NewSummaryGenerator(
	messages mailrepo.MessageRepository,
	digests summaryrepo.DigestRepository,
	prompts promptrepo.PromptRepository,
	llm ai.Client,
	llmTimeout time.Duration,
	threshold int,
) *SummaryGenerator {
	if llmTimeout <= 0 {
		llmTimeout = 8 * time.Second
	}
	if threshold <= 0 {
		threshold = 6
	}
	return &SummaryGenerator{
		messages:   messages,
		digests:    digests,
		prompts:    prompts,
		llm:        llm,
		llmTimeout: llmTimeout,
		threshold:  threshold,
	}
}

// ScoreMessage rates one message with the active scoring prompt and persists
// the result. The message is marked processed in every outcome, including the
// fallback path, so it is never retried indefinitely. Only storage errors are
// returned; a bad model response is not an error.
func (s *SummaryGenerator) ScoreMessage(ctx context.Context, messageID string) (ScoreResult, error) {
	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		return ScoreResult{}, err
	}
	if msg == nil {
		return ScoreResult{}, fmt.Errorf("message %s not found", messageID)
	}
	if msg.Processed {
		// At-most-once scoring: the stored result stands.
		result := ScoreResult{Category: msg.Category, Reasoning: msg.Reasoning}
		if msg.RelevanceScore != nil {
			result.Score = *msg.RelevanceScore
		}
		if msg.Confidence != nil {
			result.Confidence = *msg.Confidence
		}
		return result, nil
	}

	prompt, err := s.prompts.GetActive(promptdomain.AgentTypeScoring)
	if err != nil {
		return ScoreResult{}, err
	}
	template := promptdomain.DefaultScoringTemplate
	promptVersionID := ""
	if prompt != nil {
		template = prompt.Template
		promptVersionID = prompt.ID
	}

	body := truncateBody(msg.Body)
	rendered := strings.NewReplacer(
		"{{sender}}", msg.Sender,
		"{{subject}}", msg.Subject,
		"{{body}}", body,
	).Replace(template)

	result := fallbackResult()

	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	resp, err := s.llm.Complete(llmCtx, ai.Request{
		Prompt:      rendered,
		Temperature: scoringTemperature,
		MaxTokens:   scoringMaxTokens,
	})
	cancel()
	if err != nil {
		log.Printf("[SummaryGenerator] Scoring call failed for message %s: %v", messageID, err)
	} else if parsed, ok := parseScoreResponse(resp.Text); ok {
		result = parsed
	} else {
		log.Printf("[SummaryGenerator] Unparseable scoring response for message %s, using fallback", messageID)
	}

	updated, err := s.messages.MarkScored(msg.ID, result.Score, result.Confidence, result.Category, result.Reasoning)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("failed to persist score for %s: %w", msg.ID, err)
	}
	if updated && promptVersionID != "" && !result.Fallback {
		if err := s.prompts.IncrementUsage(promptVersionID); err != nil {
			log.Printf("[SummaryGenerator] Failed to bump usage count: %v", err)
		}
	}

	return result, nil
}

// ScorePendingMessages drains unscored messages. Per-message failures are
// logged and skipped; the batch keeps going.
func (s *SummaryGenerator) ScorePendingMessages(ctx context.Context) (int, error) {
	pending, err := s.messages.GetUnscored(0)
	if err != nil {
		return 0, fmt.Errorf("failed to load unscored messages: %w", err)
	}

	scored := 0
	for _, msg := range pending {
		if ctx.Err() != nil {
			return scored, ctx.Err()
		}
		if _, err := s.ScoreMessage(ctx, msg.ID); err != nil {
			log.Printf("[SummaryGenerator] Failed to score message %s: %v", msg.ID, err)
			continue
		}
		scored++
	}

	if scored > 0 {
		log.Printf("[SummaryGenerator] Scored %d messages", scored)
	}
	return scored, nil
}

// truncateBody caps the body at maxBodyChars without splitting a multi-byte
// rune, so the prompt stays valid UTF-8.
func truncateBody(body string) string {
	if len(body) <= maxBodyChars {
		return body
	}
	cut := maxBodyChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

// parseScoreResponse strictly parses the model output as the expected JSON
// object. Out-of-range values are rejected rather than clamped, so a garbage
// response never turns into a confident-looking rating.
func parseScoreResponse(raw string) (ScoreResult, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ScoreResult{}, false
	}

	var parsed struct {
		Score      *int     `json:"score"`
		Confidence *float64 `json:"confidence"`
		Category   string   `json:"category"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return ScoreResult{}, false
	}
	if parsed.Score == nil || parsed.Confidence == nil {
		return ScoreResult{}, false
	}
	if *parsed.Score < 1 || *parsed.Score > 10 {
		return ScoreResult{}, false
	}
	if *parsed.Confidence < 0 || *parsed.Confidence > 1 {
		return ScoreResult{}, false
	}
	category := strings.ToLower(strings.TrimSpace(parsed.Category))
	if !validCategories[category] {
		return ScoreResult{}, false
	}

	return ScoreResult{
		Score:      *parsed.Score,
		Confidence: *parsed.Confidence,
		Category:   category,
		Reasoning:  parsed.Reasoning,
	}, true
}

// GenerateDigest synthesizes one digest over the scored messages of a window.
// Returns (nil, nil) when no message reaches the relevance threshold; a quiet
// window is not an error and produces no row.
func (s *SummaryGenerator) GenerateDigest(ctx context.Context, accountID string, windowStart, windowEnd time.Time) (*summarydomain.DigestSummary, error) {
	relevant, err := s.messages.GetScoredInWindow(accountID, windowStart, windowEnd, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for digest: %w", err)
	}
	if len(relevant) == 0 {
		return nil, nil
	}

	total, err := s.messages.CountInWindow(accountID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages for digest: %w", err)
	}

	prompt, err := s.prompts.GetActive(promptdomain.AgentTypeDigest)
	if err != nil {
		return nil, err
	}
	template := promptdomain.DefaultDigestTemplate
	promptVersion := "digest-builtin"
	promptVersionID := ""
	if prompt != nil {
		template = prompt.Template
		promptVersion = prompt.Version
		promptVersionID = prompt.ID
	}

	highPriority := 0
	var sb strings.Builder
	for i, msg := range relevant {
		score := 0
		if msg.RelevanceScore != nil {
			score = *msg.RelevanceScore
		}
		if score >= highPriorityScore {
			highPriority++
		}
		fmt.Fprintf(&sb, "%d. [score %d, %s] From %s: %s\n", i+1, score, msg.Category, msg.Sender, msg.Subject)
	}

	rendered := strings.NewReplacer(
		"{{messages}}", sb.String(),
		"{{max_sentences}}", strconv.Itoa(digestMaxSentences),
	).Replace(template)

	started := time.Now()
	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	resp, err := s.llm.Complete(llmCtx, ai.Request{
		Prompt:      rendered,
		Temperature: digestTemperature,
		MaxTokens:   digestMaxTokens,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("digest call failed: %w", err)
	}

	digest := &summarydomain.DigestSummary{
		AccountID:         accountID,
		WindowStart:       windowStart,
		WindowEnd:         windowEnd,
		Summary:           strings.TrimSpace(resp.Text),
		TotalCount:        int(total),
		RelevantCount:     len(relevant),
		HighPriorityCount: highPriority,
		PromptVersion:     promptVersion,
		ModelUsed:         s.llm.Model(),
		TokensUsed:        resp.TokensUsed,
		DurationMs:        time.Since(started).Milliseconds(),
	}
	if err := s.digests.Create(digest); err != nil {
		return nil, fmt.Errorf("failed to persist digest: %w", err)
	}
	if promptVersionID != "" {
		if err := s.prompts.IncrementUsage(promptVersionID); err != nil {
			log.Printf("[SummaryGenerator] Failed to bump usage count: %v", err)
		}
	}

	log.Printf("[SummaryGenerator] Generated digest for window %s - %s: %d relevant of %d messages",
		windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339), digest.RelevantCount, digest.TotalCount)
	return digest, nil
}
