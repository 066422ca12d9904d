package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/streamchat/internal/chat"
	"github.com/diogo/streamchat/internal/config"
	"github.com/diogo/streamchat/internal/logging"
	"github.com/diogo/streamchat/internal/render"
	"github.com/diogo/streamchat/internal/tui"
)

func newChatCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

Each message is sent on its own; the backend keeps no conversation context.
Type /help for the slash commands. Type 'exit', 'quit', or press Esc to end
the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, opts)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *rootOptions) error {
	sess, err := loadSession(cmd, opts)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file.
	logger := zap.NewNop()
	if logPath, err := config.GetLogPath(); err == nil {
		fileLogger, closeLog, err := logging.NewFileLogger(logPath, sess.verbose)
		if err == nil {
			logger = fileLogger
			defer func() { _ = closeLog() }()
		}
	}

	if !render.SetPalette(sess.cfg.TUITheme) {
		logger.Warn("unknown tui theme, using default",
			zap.String("theme", sess.cfg.TUITheme),
			zap.String("default", render.DefaultPaletteName))
	}
	tui.UpdateTheme()

	backend, release, err := deps.NewStreamer(sess.apiURL, sess.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer release()

	ctrl := chat.NewController(backend,
		chat.WithSettings(sess.settings),
		chat.WithLogger(logger),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("chat session started",
		zap.String("api_url", sess.apiURL),
		zap.String("model", sess.settings.Model),
		zap.String("persona", sess.persona))

	return deps.TUI.RunChat(ctrl, tui.Options{
		APIURL:    sess.apiURL,
		Render:    render.OptionsForConfig(sess.cfg, 0),
		Logger:    logger,
		Clipboard: deps.Clipboard,
		Context:   ctx,
	})
}
