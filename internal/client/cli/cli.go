// Package cli implements the notesync client commands.
package cli

import (
	"context"
	"strings"

	"github.com/iudanet/notesync/internal/client/iocli"
	"github.com/iudanet/notesync/internal/client/notes"
)

// HealthChecker проверяет доступность сервера
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Cli выполняет команды клиента
type Cli struct {
	io     iocli.IO
	notes  notes.Service
	health HealthChecker
	userID string
}

// New creates a Cli for userID
func New(io iocli.IO, notesService notes.Service, health HealthChecker, userID string) *Cli {
	return &Cli{
		io:     io,
		notes:  notesService,
		health: health,
		userID: userID,
	}
}

// readPayload берёт текст из аргументов, иначе из stdin
func (c *Cli) readPayload(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return c.io.ReadText("Enter note text, finish with Ctrl-D:")
}

// confirm asks a yes/no question on a terminal; non-interactive input counts as yes
func (c *Cli) confirm(question string) (bool, error) {
	if !c.io.IsTerminal() {
		return true, nil
	}
	answer, err := c.io.ReadInput(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func firstLine(payload string) string {
	line, _, cut := strings.Cut(payload, "\n")
	if cut {
		return line + " ..."
	}
	return line
}
