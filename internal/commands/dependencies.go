package commands

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/diogo/streamchat/internal/api"
	"github.com/diogo/streamchat/internal/chat"
	"github.com/diogo/streamchat/internal/config"
	"github.com/diogo/streamchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctrl *chat.Controller, opts tui.Options) error
}

// StreamerFactory builds the backend used by a command. The returned func
// releases it.
type StreamerFactory func(baseURL string, cfg config.Config, logger *zap.Logger) (api.ChatStreamer, func(), error)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewStreamer creates the chat API backend.
	NewStreamer StreamerFactory

	// TUI is the terminal user interface.
	TUI TUIInterface

	// Clipboard copies text to the system clipboard.
	Clipboard func(string) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTTY reports whether stdout is a terminal.
	IsTTY func() bool
	// StdinIsPipe reports whether stdin carries piped input.
	StdinIsPipe func() bool
	// TerminalWidth returns the width of stdout.
	TerminalWidth func() int
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctrl *chat.Controller, opts tui.Options) error {
	return tui.RunChat(ctrl, opts)
}

// NewClientStreamer is the production StreamerFactory.
func NewClientStreamer(baseURL string, cfg config.Config, logger *zap.Logger) (api.ChatStreamer, func(), error) {
	client, err := api.NewClient(baseURL,
		api.WithTimeout(cfg.TimeoutSeconds),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewStreamer:   NewClientStreamer,
		TUI:           &DefaultTUI{},
		Clipboard:     clipboard.WriteAll,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		IsTTY:         isStdoutTTY,
		StdinIsPipe:   stdinIsPipe,
		TerminalWidth: getTerminalWidth,
	}
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func stdinIsPipe() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
