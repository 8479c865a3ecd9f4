package iocli

//go:generate moq -out io_mock.go . IO

// IO ввод и вывод команд CLI
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	// ReadInput reads one trimmed line
	ReadInput(prompt string) (string, error)
	// ReadText reads everything up to EOF; the prompt is shown only on a terminal
	ReadText(prompt string) (string, error)
	IsTerminal() bool
}
