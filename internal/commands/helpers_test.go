package commands

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/diogo/streamchat/internal/api"
	"github.com/diogo/streamchat/internal/chat"
	"github.com/diogo/streamchat/internal/config"
	"github.com/diogo/streamchat/internal/render"
	"github.com/diogo/streamchat/internal/tui"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeTUI struct {
	called bool
	ctrl   *chat.Controller
	opts   tui.Options
	err    error
}

func (f *fakeTUI) RunChat(ctrl *chat.Controller, opts tui.Options) error {
	f.called = true
	f.ctrl = ctrl
	f.opts = opts
	return f.err
}

type testEnv struct {
	deps     *Dependencies
	stdout   *syncBuffer
	stderr   *syncBuffer
	tui      *fakeTUI
	mock     *api.MockChatClient
	baseURL  string
	released bool
	copied   []string
	tty      bool
}

// newTestEnv isolates config and environment and wires deps to mock.
func newTestEnv(t *testing.T, mock *api.MockChatClient) *testEnv {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvAPIURLLegacy, "")
	t.Setenv(render.EnvStyle, render.StyleNoTTY)

	env := &testEnv{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		tui:    &fakeTUI{},
		mock:   mock,
	}
	env.deps = &Dependencies{
		NewStreamer: func(baseURL string, cfg config.Config, logger *zap.Logger) (api.ChatStreamer, func(), error) {
			env.baseURL = baseURL
			return env.mock, func() { env.released = true }, nil
		},
		TUI: env.tui,
		Clipboard: func(s string) error {
			env.copied = append(env.copied, s)
			return nil
		},
		Stdin:         bytes.NewReader(nil),
		Stdout:        env.stdout,
		Stderr:        env.stderr,
		IsTTY:         func() bool { return env.tty },
		StdinIsPipe:   func() bool { return false },
		TerminalWidth: func() int { return 80 },
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	return cmd.Execute()
}

var errClipboard = errors.New("no clipboard")
