package iocli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStreams(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")

	assert.Equal(t, "hello world\ntest 1 abc", out.String())
}

func TestReadInput(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStreams(strings.NewReader("first line\nsecond\n"), &out)

	first, err := stdio.ReadInput("Prompt: ")
	require.NoError(t, err)
	assert.Equal(t, "first line", first)
	assert.Equal(t, "Prompt: ", out.String())

	// Буфер общий между вызовами
	second, err := stdio.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "second", second)

	_, err = stdio.ReadInput("")
	assert.Error(t, err)
}

func TestReadText(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStreams(strings.NewReader("line 1\nline 2\n"), &out)

	text, err := stdio.ReadText("Enter text:")
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2", text)
	// Для pipe подсказка не выводится
	assert.Empty(t, out.String())
	assert.False(t, stdio.IsTerminal())
}

// Тест ReadInput через os.Pipe вместо os.Stdin
func TestStdio_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		_, _ = w.Write([]byte("user input\n"))
		_ = w.Close()
	}()

	oldStdin := os.Stdin
	defer func() { os.Stdin = oldStdin }()
	os.Stdin = r

	stdio := NewStdio()
	assert.False(t, stdio.IsTerminal())

	result, err := stdio.ReadText("")
	require.NoError(t, err)
	assert.Equal(t, "user input", result)
}
