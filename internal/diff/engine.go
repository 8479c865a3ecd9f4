// Package diff computes coarse line-grained diffs between note payloads.
package diff

import (
	"strings"

	"github.com/iudanet/notesync/internal/models"
)

// Engine определяет интерфейс для вычисления диффа
type Engine interface {
	// Diff describes how to turn base into updated
	Diff(base, updated string) models.TextDiff
}

// LineEngine single-hunk line diff: common prefix, common suffix and
// one operation for everything in between. Not a minimal edit script.
type LineEngine struct{}

// NewLineEngine creates the default diff engine
func NewLineEngine() *LineEngine {
	return &LineEngine{}
}

// Diff implements Engine
func (LineEngine) Diff(base, updated string) models.TextDiff {
	// Пустая строка даёт одну пустую строку, а не ноль
	baseLines := strings.Split(base, "\n")
	updatedLines := strings.Split(updated, "\n")

	prefix := 0
	for prefix < len(baseLines) && prefix < len(updatedLines) && baseLines[prefix] == updatedLines[prefix] {
		prefix++
	}

	// Суффикс не должен пересекаться с префиксом
	suffix := 0
	for prefix+suffix < len(baseLines) && prefix+suffix < len(updatedLines) {
		if baseLines[len(baseLines)-1-suffix] != updatedLines[len(updatedLines)-1-suffix] {
			break
		}
		suffix++
	}

	baseMiddle := baseLines[prefix : len(baseLines)-suffix]
	updatedMiddle := updatedLines[prefix : len(updatedLines)-suffix]

	if len(baseMiddle) == 0 && len(updatedMiddle) == 0 {
		return models.TextDiff{Operations: []models.DiffOperation{{
			Kind:        models.DiffEqual,
			Start:       0,
			End:         len(baseLines),
			Replacement: baseLines,
		}}}
	}

	kind := models.DiffReplace
	switch {
	case len(baseMiddle) == 0:
		kind = models.DiffInsert
	case len(updatedMiddle) == 0:
		kind = models.DiffDelete
	}

	return models.TextDiff{Operations: []models.DiffOperation{{
		Kind:        kind,
		Start:       prefix,
		End:         prefix + len(baseMiddle),
		Replacement: append([]string{}, updatedMiddle...),
	}}}
}

// Apply reconstructs the updated payload from base and a diff produced by Diff.
func Apply(base string, d models.TextDiff) string {
	lines := strings.Split(base, "\n")
	// Применяем с конца, чтобы индексы ранних операций оставались валидными
	for i := len(d.Operations) - 1; i >= 0; i-- {
		op := d.Operations[i]
		if op.Kind == models.DiffEqual {
			continue
		}
		out := make([]string, 0, len(lines)-(op.End-op.Start)+len(op.Replacement))
		out = append(out, lines[:op.Start]...)
		out = append(out, op.Replacement...)
		out = append(out, lines[op.End:]...)
		lines = out
	}
	return strings.Join(lines, "\n")
}
