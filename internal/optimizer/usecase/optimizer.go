package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	feedbackrepo "maildigest/internal/feedback/repository"
	promptdomain "maildigest/internal/prompt/domain"
	promptrepo "maildigest/internal/prompt/repository"
	summaryrepo "maildigest/internal/summary/repository"
)

const (
	feedbackLookback = 24 * time.Hour

	// relevanceTolerance is the allowed gap between AI and manual score for a
	// relevance correction to still count as agreement.
	relevanceTolerance = 2

	// lowRatingCutoff marks digest feedback whose free text is mined for
	// prompt issues (school-grade scale, higher is worse).
	lowRatingCutoff = 4

	// A/B promotion gate for inactive candidates.
	abMinUsage = 10
	abMinScore = 0.7
)

// issuePattern maps feedback phrasing to a targeted template amendment. The
// list is ordered so variant generation is deterministic over the same
// feedback corpus.
type issuePattern struct {
	key         string
	keywords    []string
	instruction string
}

var issuePatterns = []issuePattern{
	{
		key:         "shorter",
		keywords:    []string{"too long", "too verbose", "too much text"},
		instruction: "Keep the output noticeably shorter than before; cut anything that is not essential.",
	},
	{
		key:         "longer",
		keywords:    []string{"too short", "not enough detail", "more detail"},
		instruction: "Include more detail per item, especially concrete dates, names and requested actions.",
	},
	{
		key:         "coverage",
		keywords:    []string{"missing important", "missed", "left out"},
		instruction: "Never drop an item that mentions a deadline, a meeting or a direct request to the reader.",
	},
	{
		key:         "clarity",
		keywords:    []string{"unclear", "confusing", "hard to read"},
		instruction: "Use short plain sentences and name the sender of every item explicitly.",
	},
}

// Optimizer closes the feedback loop: it turns user feedback into prompt
// performance scores, spawns targeted prompt variants and promotes winners.
// It is the only component that activates or deactivates prompt versions.
type Optimizer struct {
	prompts  promptrepo.PromptRepository
	feedback feedbackrepo.FeedbackRepository
	digests  summaryrepo.DigestRepository
	now      func() time.Time
}

// NewOptimizer creates a new optimizer
func NewOptimizer(
	prompts promptrepo.PromptRepository,
	feedback feedbackrepo.FeedbackRepository,
	digests summaryrepo.DigestRepository,
) *Optimizer {
	return &Optimizer{
		prompts:  prompts,
		feedback: feedback,
		digests:  digests,
		now:      time.Now,
	}
}

// ProcessFeedback is the optimizer's periodic entry point: aggregate recent
// feedback per prompt version, write performance scores, spawn variants for
// recurring complaints, then run both promotion paths.
func (o *Optimizer) ProcessFeedback(ctx context.Context) error {
	since := o.now().Add(-feedbackLookback)

	if err := o.processDigestFeedback(ctx, since); err != nil {
		return err
	}
	if err := o.processRelevanceFeedback(ctx, since); err != nil {
		return err
	}
	if err := o.EvaluatePromptPerformance(ctx); err != nil {
		return err
	}
	return o.RunABTesting(ctx)
}

func (o *Optimizer) processDigestFeedback(ctx context.Context, since time.Time) error {
	records, err := o.feedback.DigestFeedbackSince(since)
	if err != nil {
		return fmt.Errorf("failed to load digest feedback: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	// Group ratings by the prompt version that produced the rated digest.
	ratings := make(map[string][]int)
	var lowComments []string
	for _, fb := range records {
		digest, err := o.digests.GetByID(fb.DigestID)
		if err != nil {
			return err
		}
		if digest == nil {
			continue
		}
		ratings[digest.PromptVersion] = append(ratings[digest.PromptVersion], fb.Rating)
		if fb.Rating >= lowRatingCutoff && fb.Comment != "" {
			lowComments = append(lowComments, fb.Comment)
		}
	}

	for version, rs := range ratings {
		prompt, err := o.prompts.GetByVersion(version)
		if err != nil {
			return err
		}
		if prompt == nil {
			continue
		}
		score := digestPerformance(rs)
		if err := o.prompts.SetPerformance(prompt.ID, score, len(rs)); err != nil {
			return err
		}
		log.Printf("[Optimizer] Prompt %s: performance %.2f over %d digest ratings", version, score, len(rs))
	}

	if len(lowComments) > 0 {
		created, err := o.GenerateNewPrompts(ctx, promptdomain.AgentTypeDigest, lowComments)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Printf("[Optimizer] Spawned %d digest prompt variants from feedback", created)
		}
	}
	return nil
}

func (o *Optimizer) processRelevanceFeedback(ctx context.Context, since time.Time) error {
	records, err := o.feedback.RelevanceFeedbackSince(since)
	if err != nil {
		return fmt.Errorf("failed to load relevance feedback: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	// Relevance feedback has no stored prompt linkage; it is attributed to
	// the currently active scoring prompt.
	active, err := o.prompts.GetActive(promptdomain.AgentTypeScoring)
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}

	agreed := 0
	var lowComments []string
	for _, fb := range records {
		diff := fb.AIScore - fb.ManualScore
		if diff < 0 {
			diff = -diff
		}
		if diff <= relevanceTolerance {
			agreed++
		} else if fb.Comment != "" {
			lowComments = append(lowComments, fb.Comment)
		}
	}
	score := float64(agreed) / float64(len(records))

	if err := o.prompts.SetPerformance(active.ID, score, len(records)); err != nil {
		return err
	}
	log.Printf("[Optimizer] Prompt %s: agreement %.2f over %d relevance corrections", active.Version, score, len(records))

	if len(lowComments) > 0 {
		created, err := o.GenerateNewPrompts(ctx, promptdomain.AgentTypeScoring, lowComments)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Printf("[Optimizer] Spawned %d scoring prompt variants from feedback", created)
		}
	}
	return nil
}

// digestPerformance maps 1-6 school-grade ratings to [0,1]: mean(7-rating)/6.
func digestPerformance(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += 7 - r
	}
	return float64(sum) / float64(6*len(ratings))
}

// GenerateNewPrompts mines low-rated feedback text for known issue classes and
// creates one inactive variant of the active template per detected class. The
// extraction is keyword matching, not generative rewriting: the same feedback
// corpus always yields the same variants, and re-runs upsert instead of
// duplicating.
func (o *Optimizer) GenerateNewPrompts(ctx context.Context, agentType string, comments []string) (int, error) {
	active, err := o.prompts.GetActive(agentType)
	if err != nil {
		return 0, err
	}
	if active == nil {
		return 0, nil
	}

	detected := detectIssues(comments)
	created := 0
	for _, issue := range detected {
		variant := &promptdomain.PromptVersion{
			Version:   fmt.Sprintf("%s-%s", active.Version, issue.key),
			AgentType: agentType,
			Template:  active.Template + "\n\nADDITIONAL INSTRUCTION:\n" + issue.instruction,
			Active:    false,
		}
		wasCreated, err := o.prompts.EnsureVersion(variant)
		if err != nil {
			return created, err
		}
		if wasCreated {
			created++
			log.Printf("[Optimizer] Created prompt variant %s", variant.Version)
		}
	}
	return created, nil
}

// detectIssues returns the issue patterns whose keywords appear in any
// comment, in the fixed pattern order.
func detectIssues(comments []string) []issuePattern {
	var detected []issuePattern
	for _, pattern := range issuePatterns {
		found := false
		for _, comment := range comments {
			lower := strings.ToLower(comment)
			for _, kw := range pattern.keywords {
				if strings.Contains(lower, kw) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if found {
			detected = append(detected, pattern)
		}
	}
	return detected
}

// EvaluatePromptPerformance promotes, per agent type, the highest-scoring
// evaluated version. Activation is a single transactional
// deactivate-then-activate, so exactly one version per type is active
// afterwards no matter how many callers race.
func (o *Optimizer) EvaluatePromptPerformance(ctx context.Context) error {
	for _, agentType := range promptdomain.AgentTypes {
		best, err := o.prompts.BestScored(agentType)
		if err != nil {
			return err
		}
		if best == nil || best.Active {
			continue
		}
		if err := o.prompts.Activate(best.ID); err != nil {
			return fmt.Errorf("failed to activate prompt %s: %w", best.Version, err)
		}
		log.Printf("[Optimizer] Promoted prompt %s (%s, score %.2f)", best.Version, agentType, deref(best.PerformanceScore))
	}
	return nil
}

// RunABTesting is the opportunistic fast path next to the periodic best-of
// evaluation: an inactive candidate with enough recorded usage and a strong
// score is promoted immediately instead of waiting for the next evaluation.
// Both paths exist on purpose; do not collapse them into one.
func (o *Optimizer) RunABTesting(ctx context.Context) error {
	for _, agentType := range promptdomain.AgentTypes {
		candidates, err := o.prompts.Candidates(agentType, abMinUsage)
		if err != nil {
			return err
		}
		for _, candidate := range candidates {
			if candidate.PerformanceScore == nil || *candidate.PerformanceScore <= abMinScore {
				continue
			}
			if err := o.prompts.Activate(candidate.ID); err != nil {
				return fmt.Errorf("failed to activate candidate %s: %w", candidate.Version, err)
			}
			log.Printf("[Optimizer] A/B promoted prompt %s (%s, score %.2f, %d uses)",
				candidate.Version, agentType, *candidate.PerformanceScore, candidate.UsageCount)
		}
	}
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
