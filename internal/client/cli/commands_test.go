package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/notesync/internal/client/iocli"
	"github.com/iudanet/notesync/internal/server"
	"github.com/iudanet/notesync/internal/server/jwt"
	"github.com/iudanet/notesync/internal/server/storage/memory"
)

type harness struct {
	url   string
	token string
	db    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tokens := jwt.NewService("secret", time.Hour)
	srv := httptest.NewServer(server.NewRouter(server.Config{
		Store:  memory.New(nil),
		Tokens: tokens,
	}))
	t.Cleanup(srv.Close)

	token, _, err := tokens.GenerateAccessToken(testUser)
	require.NoError(t, err)

	return &harness{url: srv.URL, token: token, db: filepath.Join(t.TempDir(), "data", "notes.db")}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCommand(iocli.NewStreams(strings.NewReader(stdin), &out), "test")
	root.SetArgs(append([]string{"--server", h.url, "--db", h.db, "--user", testUser, "--token", h.token}, args...))
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_EndToEnd(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "new", "--id", "note-1", "hello", "world")
	require.NoError(t, err)
	assert.Contains(t, out, "Note note-1 created")

	out, err = h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Server: ok")
	assert.Contains(t, out, "Pending sync: 1")

	out, err = h.run(t, "", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Pushed to server:   1 operation(s)")

	out, err = h.run(t, "edited from stdin\n", "edit", "note-1")
	require.NoError(t, err)
	assert.Contains(t, out, "version 2")

	_, err = h.run(t, "", "sync")
	require.NoError(t, err)

	out, err = h.run(t, "", "show", "note-1")
	require.NoError(t, err)
	assert.Contains(t, out, "edited from stdin")
	assert.Contains(t, out, "Author:   server")

	out, err = h.run(t, "", "history", "note-1")
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")

	out, err = h.run(t, "", "delete", "note-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Note note-1 deleted")

	out, err = h.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No notes found.")

	out, err = h.run(t, "", "conflicts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No conflicts.")
}

func TestRootCommand_Version(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand(iocli.NewStreams(strings.NewReader(""), &out), "1.0.0")
	root.SetArgs([]string{"version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "notesync 1.0.0\n", out.String())
}

func TestRootCommand_NoUser(t *testing.T) {
	t.Setenv("NOTESYNC_USER_ID", "")

	var out bytes.Buffer
	root := NewRootCommand(iocli.NewStreams(strings.NewReader(""), &out), "test")
	root.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "notes.db"), "list"})

	err := root.ExecuteContext(context.Background())
	assert.True(t, errors.Is(err, ErrNoUser))
}

func TestRootCommand_Unauthorized(t *testing.T) {
	h := newHarness(t)
	h.token = "bogus"

	_, err := h.run(t, "", "new", "--id", "n", "x")
	require.NoError(t, err)

	_, err = h.run(t, "", "sync")
	assert.Error(t, err)
}
