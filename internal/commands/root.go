// Package commands provides CLI commands for streamchat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diogo/streamchat/internal/config"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootOptions holds the flag values shared by every command.
type rootOptions struct {
	model   string
	system  string
	persona string
	apiURL  string
	verbose bool

	output  string
	file    string
	raw     bool
	copy    bool
	version bool
}

// NewRootCmd builds the command tree around deps.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "streamchat [prompt]",
		Short: "Streaming chat client for a completion API",
		Long: `streamchat sends a prompt and an optional system message to a chat
completion backend and shows the reply as it streams in.

Examples:
  streamchat chat                          Start interactive chat
  streamchat "What is Go?"                 Send a single prompt
  streamchat -f prompt.md                  Read prompt from file
  cat prompt.md | streamchat               Read prompt from stdin
  streamchat -s "Answer in French" "Hi"    Use a custom system message
  streamchat -p coder "Reverse a list"     Use a saved persona
  streamchat "Hello" -o reply.md           Save reply to file
  streamchat --api-url http://host:8000 chat`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.version {
				fmt.Fprintf(deps.Stdout, "streamchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps, opts, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runQuery(cmd, deps, opts, prompt)
		},
	}

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "Model to use (e.g., gpt-4.1-mini)")
	cmd.PersistentFlags().StringVarP(&opts.system, "system", "s", "", "System (developer) message")
	cmd.PersistentFlags().StringVarP(&opts.persona, "persona", "p", "", "Persona whose system message and model to use")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "",
		fmt.Sprintf("Chat API base URL (env %s, default %s)", config.EnvAPIURL, config.DefaultAPIURL))
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save reply to file")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print only the reply text without decoration")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the reply to the clipboard")
	cmd.Flags().BoolVarP(&opts.version, "version", "v", false, "Show version and exit")

	cmd.AddCommand(newChatCmd(deps, opts))
	cmd.AddCommand(newConfigCmd(deps))
	cmd.AddCommand(newModelsCmd(deps, opts))
	cmd.AddCommand(newPersonaCmd(deps))

	return cmd
}

// readPrompt picks the prompt source: file, then argument, then piped stdin.
// ok is false when no source was given.
func readPrompt(deps *Dependencies, opts *rootOptions, args []string) (string, bool, error) {
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	if deps.StdinIsPipe != nil && deps.StdinIsPipe() {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}

	return "", false, nil
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
