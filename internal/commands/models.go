package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/streamchat/internal/config"
)

func newModelsCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered in the chat screen",
		Long: `List the model menu. The current model is marked with '*'.

Any model id can be passed with --model; the menu is not enforced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(cmd, opts)
			if err != nil {
				return err
			}

			current := sess.settings.Model
			listed := false
			for _, m := range config.AvailableModels() {
				marker := " "
				if m == current {
					marker = "*"
					listed = true
				}
				fmt.Fprintf(deps.Stdout, "%s %s\n", marker, m)
			}
			if !listed {
				fmt.Fprintf(deps.Stdout, "* %s (custom)\n", current)
			}
			return nil
		},
	}
}
