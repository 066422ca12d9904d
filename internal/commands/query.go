package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/streamchat/internal/chat"
	apierrors "github.com/diogo/streamchat/internal/errors"
	"github.com/diogo/streamchat/internal/logging"
	"github.com/diogo/streamchat/internal/render"
)

// reportedError marks an error whose message was already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func assistantLabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(render.CurrentPalette().Primary).
		Bold(true)
}

func assistantBubbleStyle() lipgloss.Style {
	p := render.CurrentPalette()
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary).
		Foreground(p.Text).
		Padding(0, 1).
		MarginTop(1).
		MarginBottom(1)
}

// replyWriter prints the part of the growing assistant reply not yet written.
// It stops at the first write error and keeps it in err.
type replyWriter struct {
	out     io.Writer
	printed int
	err     error
}

func (w *replyWriter) update(content string) {
	if w.err != nil || len(content) <= w.printed {
		return
	}
	n, err := io.WriteString(w.out, content[w.printed:])
	w.printed += n
	if err != nil {
		w.err = err
	}
}

// livePreview echoes the reply to the terminal as it arrives and erases it
// again so the rendered markdown can replace it.
type livePreview struct {
	replyWriter
	text  string
	width int
}

func (p *livePreview) update(content string) {
	p.replyWriter.update(content)
	if p.printed <= len(content) {
		p.text = content[:p.printed]
	}
}

// rows counts the terminal rows taken by the printed text.
func (p *livePreview) rows() int {
	if p.printed == 0 {
		return 0
	}
	width := p.width
	if width <= 0 {
		width = 80
	}
	rows := 0
	for _, line := range strings.Split(p.text, "\n") {
		w := lipgloss.Width(line)
		if w == 0 {
			rows++
			continue
		}
		rows += (w + width - 1) / width
	}
	return rows
}

func (p *livePreview) erase() {
	rows := p.rows()
	if rows == 0 || p.err != nil {
		return
	}
	if rows > 1 {
		fmt.Fprintf(p.out, "\033[%dA", rows-1)
	}
	fmt.Fprint(p.out, "\r\033[J")
	p.printed = 0
	p.text = ""
}

// runQuery sends a single prompt and outputs the reply.
// Raw or non-terminal output streams the reply as it arrives. On a terminal
// the reply is previewed as plain text while it streams and then replaced by
// rendered markdown.
func runQuery(cmd *cobra.Command, deps *Dependencies, opts *rootOptions, prompt string) error {
	sess, err := loadSession(cmd, opts)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(deps.Stderr, sess.verbose)
	defer func() { _ = logger.Sync() }()

	backend, release, err := deps.NewStreamer(sess.apiURL, sess.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer release()

	ctrl := chat.NewController(backend,
		chat.WithSettings(sess.settings),
		chat.WithLogger(logger),
	)

	decorated := !opts.raw && deps.IsTTY()
	streaming := !decorated && opts.output == ""

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var spin *spinner
	var preview *livePreview
	if decorated {
		spin = newSpinner(deps.Stderr, "Waiting for the assistant")
		spin.start()
		if opts.output == "" {
			preview = &livePreview{
				replyWriter: replyWriter{out: deps.Stdout},
				width:       deps.TerminalWidth(),
			}
		}
	}

	writer := &replyWriter{out: deps.Stdout}
	onUpdate := func(s chat.State) {
		if s.Phase != chat.PhaseStreaming || len(s.Turns) == 0 {
			return
		}
		last := s.Turns[len(s.Turns)-1]
		if last.Role != chat.RoleAssistant {
			return
		}
		switch {
		case streaming:
			writer.update(last.Content)
			if writer.err != nil {
				cancel()
			}
		case preview != nil:
			if last.Content != "" {
				spin.clear()
			}
			preview.update(last.Content)
		case spin != nil:
			spin.setMessage(fmt.Sprintf("Assistant is typing (%d chars)", len(last.Content)))
		}
	}

	sendErr := ctrl.Send(ctx, prompt, onUpdate)

	if writer.err != nil {
		return fmt.Errorf("failed to write reply: %w", writer.err)
	}
	if streaming && writer.printed > 0 && deps.IsTTY() {
		fmt.Fprintln(deps.Stdout)
	}
	if preview != nil {
		preview.erase()
	}

	if sendErr != nil {
		if spin != nil {
			spin.stopWithError()
		}
		if decorated {
			if partial, ok := ctrl.Snapshot().LastAssistant(); ok {
				printReply(deps, sess, partial)
			}
			fmt.Fprintln(deps.Stderr, formatErrorMessage(sendErr, "Chat request failed"))
			return &reportedError{err: sendErr}
		}
		return fmt.Errorf("chat request failed: %w", sendErr)
	}
	if spin != nil {
		spin.stopWithSuccess("Done")
	}

	text, _ := ctrl.Snapshot().LastAssistant()

	if opts.copy || sess.cfg.CopyToClipboard {
		copyReply(deps, text, decorated)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if decorated {
			successMsg := lipgloss.NewStyle().Foreground(render.CurrentPalette().Secondary).Render(
				fmt.Sprintf("✓ Reply saved to %s", opts.output),
			)
			fmt.Fprintln(deps.Stderr, successMsg)
		}
		return nil
	}

	if decorated {
		fmt.Fprintln(deps.Stderr)
		printReply(deps, sess, text)
	}

	return nil
}

// printReply renders text as markdown inside the assistant bubble.
func printReply(deps *Dependencies, sess session, text string) {
	bubbleWidth := deps.TerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	fmt.Fprintln(deps.Stdout, assistantLabelStyle().Render("✦ Assistant"))

	rendered := render.Reply(text, render.OptionsForConfig(sess.cfg, contentWidth))
	fmt.Fprintln(deps.Stdout, assistantBubbleStyle().Width(bubbleWidth).Render(rendered))
}

// copyReply copies text to the clipboard. Failures only warn.
func copyReply(deps *Dependencies, text string, decorated bool) {
	palette := render.CurrentPalette()
	if err := deps.Clipboard(text); err != nil {
		warnMsg := lipgloss.NewStyle().Foreground(palette.Error).Render(
			fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
		)
		fmt.Fprintln(deps.Stderr, warnMsg)
		return
	}
	if decorated {
		fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(palette.Secondary).Render("✓ Copied to clipboard"))
	}
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	palette := render.CurrentPalette()
	errorStyle := lipgloss.NewStyle().Foreground(palette.Error)
	dimStyle := lipgloss.NewStyle().Foreground(palette.TextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", context, apierrors.UserMessage(err))))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	// Provide helpful hints based on error type
	switch {
	case apierrors.IsValidationError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Pass a prompt as an argument, with -f, or on stdin"))
	case apierrors.IsStreamError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The connection dropped mid-reply; the partial reply is shown above"))
	case apierrors.IsRequestError(err) && apierrors.GetHTTPStatus(err) == 0:
		sb.WriteString(dimStyle.Render("\n  Hint: Check that the chat API is running and reachable (--api-url)"))
	}

	return sb.String()
}
