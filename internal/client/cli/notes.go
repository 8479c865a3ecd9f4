package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/notesync/internal/models"
)

func (c *Cli) runNew(ctx context.Context, id string, args []string) error {
	payload, err := c.readPayload(args)
	if err != nil {
		return fmt.Errorf("failed to read note text: %w", err)
	}

	record, err := c.notes.Create(ctx, id, payload)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	c.io.Printf("✓ Note %s created (version %d)\n", record.ID, record.Revision.Version)
	return nil
}

func (c *Cli) runEdit(ctx context.Context, id string, args []string) error {
	payload, err := c.readPayload(args)
	if err != nil {
		return fmt.Errorf("failed to read note text: %w", err)
	}

	record, err := c.notes.Edit(ctx, id, payload)
	if err != nil {
		return fmt.Errorf("failed to edit note: %w", err)
	}

	c.io.Printf("✓ Note %s updated (version %d)\n", record.ID, record.Revision.Version)
	return nil
}

func (c *Cli) runShow(ctx context.Context, id string) error {
	record, err := c.notes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	c.io.Printf("ID:       %s\n", record.ID)
	c.printRevision(record.Revision)
	c.io.Println()
	c.io.Println(record.Payload)
	return nil
}

func (c *Cli) runList(ctx context.Context) error {
	records, err := c.notes.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	if len(records) == 0 {
		c.io.Println("No notes found.")
		c.io.Println("Use 'notesync new' to add your first note.")
		return nil
	}

	c.io.Printf("Found %d note(s):\n\n", len(records))
	for _, r := range records {
		c.io.Printf("%s  v%d  %s\n", r.ID, r.Revision.Version, firstLine(r.Payload))
	}
	return nil
}

func (c *Cli) runDelete(ctx context.Context, id string, force bool) error {
	if !force {
		ok, err := c.confirm(fmt.Sprintf("Delete note %s?", id))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			c.io.Println("Cancelled.")
			return nil
		}
	}

	if err := c.notes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	c.io.Printf("✓ Note %s deleted\n", id)
	return nil
}

func (c *Cli) runRollback(ctx context.Context, id string, entry int) error {
	record, err := c.notes.Rollback(ctx, id, entry)
	if err != nil {
		return fmt.Errorf("failed to roll back note: %w", err)
	}

	c.io.Printf("✓ Note %s restored as version %d\n", record.ID, record.Revision.Version)
	return nil
}

func (c *Cli) runHistory(ctx context.Context, id string) error {
	entries, err := c.notes.History(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(entries) == 0 {
		c.io.Printf("No history for %s.\n", id)
		return nil
	}

	for i, e := range entries {
		c.io.Printf("[%d] v%d by %s at %s: %s\n",
			i,
			e.Revision.Version,
			e.Revision.Author,
			e.Revision.Timestamp.Format(time.RFC3339),
			firstLine(e.PreviousPayload))
	}
	c.io.Println()
	c.io.Println("Use 'notesync rollback <id> --entry N' to restore an entry.")
	return nil
}

func (c *Cli) printRevision(r models.Revision) {
	c.io.Printf("Version:  %d\n", r.Version)
	c.io.Printf("Author:   %s\n", r.Author)
	c.io.Printf("Modified: %s\n", r.Timestamp.Format(time.RFC3339))
}
