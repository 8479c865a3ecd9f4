package models

// DiffKind тип операции в текстовом диффе
type DiffKind string

const (
	DiffInsert  DiffKind = "insert"
	DiffDelete  DiffKind = "delete"
	DiffReplace DiffKind = "replace"
	DiffEqual   DiffKind = "equal"
)

// DiffOperation описывает один hunk изменений.
// Start и End индексы в массиве строк base, Replacement строки из updated.
type DiffOperation struct {
	Kind        DiffKind `json:"kind"`
	Replacement []string `json:"replacement"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
}

// TextDiff результат сравнения двух payload, не сохраняется
type TextDiff struct {
	Operations []DiffOperation `json:"operations"`
}

// MergeStrategy стратегия разрешения конфликта
type MergeStrategy string

const (
	StrategyKeepLocal  MergeStrategy = "keepLocal"
	StrategyKeepServer MergeStrategy = "keepServer"
	StrategyAutoMerge  MergeStrategy = "autoMerge"
)

// MergeSuggestion предложение по слиянию. Никогда не применяется автоматически.
type MergeSuggestion struct {
	MergedPayload *string       `json:"merged_payload,omitempty"`
	Strategy      MergeStrategy `json:"strategy"`
	Preview       string        `json:"preview"`
}

// Find returns the first suggestion with the given strategy.
func Find(suggestions []MergeSuggestion, strategy MergeStrategy) (MergeSuggestion, bool) {
	for _, s := range suggestions {
		if s.Strategy == strategy {
			return s, true
		}
	}
	return MergeSuggestion{}, false
}
