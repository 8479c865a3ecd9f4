package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("Starting synchronization with server...")

	result, err := c.notes.Sync(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println("✓ Synchronization completed")
	c.io.Println()
	c.io.Printf("Pushed to server:   %d operation(s)\n", result.Pushed)
	c.io.Printf("Pulled from server: %d change(s)\n", len(result.AppliedRemoteChanges))
	if result.Rejected > 0 {
		c.io.Printf("Rejected:           %d operation(s), kept for retry\n", result.Rejected)
	}
	if n := len(result.ConflictCopies); n > 0 {
		c.io.Printf("⚠️  %d conflict copy(ies) created. Run 'notesync conflicts list'.\n", n)
	}
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Printf("User: %s\n", c.userID)

	if c.health != nil {
		if err := c.health.Health(ctx); err != nil {
			c.io.Printf("Server: unreachable (%v)\n", err)
		} else {
			c.io.Println("Server: ok")
		}
	}

	pending, err := c.notes.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending operations: %w", err)
	}
	conflicts, err := c.notes.Conflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get conflicts: %w", err)
	}

	c.io.Println()
	if len(pending) > 0 {
		c.io.Printf("⚠️  Pending sync: %d operation(s) waiting to be pushed\n", len(pending))
		c.io.Println("Run 'notesync sync' to synchronize with server.")
	} else {
		c.io.Println("✓ All changes synchronized with server")
	}
	if len(conflicts) > 0 {
		c.io.Printf("⚠️  Unresolved conflicts: %d\n", len(conflicts))
	}
	return nil
}
