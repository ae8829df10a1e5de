package repository

import (
	"log"

	promptdomain "maildigest/internal/prompt/domain"
)

// Seed inserts the built-in v1 prompts and activates them when no version of
// their agent type is active yet. Safe to call on every startup.
func Seed(repo PromptRepository) error {
	seeds := []promptdomain.PromptVersion{
		{
			Version:   "scoring-v1",
			AgentType: promptdomain.AgentTypeScoring,
			Template:  promptdomain.DefaultScoringTemplate,
		},
		{
			Version:   "digest-v1",
			AgentType: promptdomain.AgentTypeDigest,
			Template:  promptdomain.DefaultDigestTemplate,
		},
	}

	for i := range seeds {
		created, err := repo.EnsureVersion(&seeds[i])
		if err != nil {
			return err
		}
		if created {
			log.Printf("[PromptStore] Seeded prompt %s", seeds[i].Version)
		}

		active, err := repo.GetActive(seeds[i].AgentType)
		if err != nil {
			return err
		}
		if active == nil {
			if err := repo.Activate(seeds[i].ID); err != nil {
				return err
			}
			log.Printf("[PromptStore] Activated prompt %s", seeds[i].Version)
		}
	}
	return nil
}
