// Package conflict proposes merge suggestions for diverged payloads.
// Suggestions are advisory: nothing here ever picks one on the caller's behalf.
package conflict

import (
	"fmt"

	"github.com/iudanet/notesync/internal/models"
)

// Resolver определяет интерфейс для выработки предложений по слиянию
type Resolver interface {
	// Suggest returns ranked suggestions; base is the last common ancestor, if known
	Suggest(local, server string, base *string) []models.MergeSuggestion
}

// RuleBased resolver evaluates a fixed priority chain, first match wins:
// equal payloads, local unchanged since base, server unchanged since base,
// then a full three-way conflict.
type RuleBased struct{}

// NewRuleBased creates the default resolver
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Suggest implements Resolver
func (RuleBased) Suggest(local, server string, base *string) []models.MergeSuggestion {
	if local == server {
		return []models.MergeSuggestion{suggestion(models.StrategyAutoMerge, "No changes detected.", local)}
	}

	if base != nil {
		if local == *base {
			return []models.MergeSuggestion{suggestion(models.StrategyKeepServer, "Local unchanged; prefer server.", server)}
		}
		if server == *base {
			return []models.MergeSuggestion{suggestion(models.StrategyKeepLocal, "Server unchanged; prefer local.", local)}
		}
	}

	// Порядок фиксирован: keepLocal, keepServer, autoMerge
	return []models.MergeSuggestion{
		suggestion(models.StrategyKeepLocal, "Keep local version.", local),
		suggestion(models.StrategyKeepServer, "Keep server version.", server),
		suggestion(models.StrategyAutoMerge, "Manual merge required.", Markers(local, server)),
	}
}

// Markers renders both sides as a conflict-marker block, local first.
func Markers(local, server string) string {
	return fmt.Sprintf("<<<<<<< Local\n%s\n=======\n%s\n>>>>>>> Server", local, server)
}

func suggestion(strategy models.MergeStrategy, preview, payload string) models.MergeSuggestion {
	return models.MergeSuggestion{
		Strategy:      strategy,
		Preview:       preview,
		MergedPayload: &payload,
	}
}
