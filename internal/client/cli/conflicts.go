package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/notesync/internal/models"
)

func (c *Cli) runConflictsList(ctx context.Context) error {
	conflicts, err := c.notes.Conflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	if len(conflicts) == 0 {
		c.io.Println("No conflicts.")
		return nil
	}

	c.io.Printf("Found %d conflict(s):\n\n", len(conflicts))
	for _, cc := range conflicts {
		c.io.Printf("%s  (note %s, detected %s)\n", cc.Record.ID, cc.OriginalID, cc.DetectedAt.Format(time.RFC3339))
		c.io.Printf("   %s\n", firstLine(cc.Record.Payload))
	}
	c.io.Println()
	c.io.Println("Use 'notesync conflicts show <copy-id>' to compare with the synced note.")
	return nil
}

func (c *Cli) runConflictShow(ctx context.Context, copyID string) error {
	outcome, err := c.notes.Preview(ctx, copyID)
	if err != nil {
		return fmt.Errorf("failed to preview conflict: %w", err)
	}

	server := outcome.Resolved
	c.io.Printf("Conflict copy: %s\n", copyID)
	c.io.Printf("Note:          %s (version %d)\n", server.ID, server.Revision.Version)
	c.io.Println()
	c.io.Println("--- synced")
	c.io.Println("+++ conflict copy")

	baseLines := strings.Split(server.Payload, "\n")
	for _, op := range outcome.Diff.Operations {
		if op.Kind == models.DiffEqual {
			c.io.Println("(no differences)")
			continue
		}
		c.io.Printf("@@ %s lines %d-%d @@\n", op.Kind, op.Start+1, op.End)
		for _, line := range baseLines[op.Start:op.End] {
			c.io.Printf("- %s\n", line)
		}
		for _, line := range op.Replacement {
			c.io.Printf("+ %s\n", line)
		}
	}

	c.io.Println()
	c.io.Println("Suggestions:")
	for _, s := range outcome.Suggestions {
		c.io.Printf("  %-10s %s\n", s.Strategy, s.Preview)
	}
	c.io.Println()
	c.io.Println("Use 'notesync conflicts apply <copy-id> --strategy <name>' or 'notesync conflicts discard <copy-id>'.")
	return nil
}

func (c *Cli) runConflictDiscard(ctx context.Context, copyID string) error {
	if err := c.notes.DiscardConflict(ctx, copyID); err != nil {
		return fmt.Errorf("failed to discard conflict: %w", err)
	}
	c.io.Printf("✓ Conflict %s discarded\n", copyID)
	return nil
}

func (c *Cli) runConflictApply(ctx context.Context, copyID, strategy string) error {
	record, err := c.notes.ApplyConflict(ctx, copyID, models.MergeStrategy(strategy))
	if err != nil {
		return fmt.Errorf("failed to apply conflict: %w", err)
	}
	c.io.Printf("✓ Conflict %s resolved with %s, note %s at version %d\n", copyID, strategy, record.ID, record.Revision.Version)
	c.io.Println("Run 'notesync sync' to push the result.")
	return nil
}
