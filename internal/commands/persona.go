package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/streamchat/internal/config"
)

func newPersonaCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage system message personas",
		Long: `View and manage personas: named system messages, optionally with a
preferred model. Select one with --persona or /persona in the chat screen.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaList(deps.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show persona details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaShow(deps.Stdout, args[0])
		},
	})

	var add config.Persona
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			add.Name = args[0]
			if err := config.SavePersona(add); err != nil {
				return err
			}
			fmt.Fprintf(deps.Stdout, "Saved persona %q\n", add.Name)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&add.SystemMessage, "system", "s", "", "System message")
	addCmd.Flags().StringVarP(&add.Description, "description", "d", "", "Short description")
	addCmd.Flags().StringVarP(&add.Model, "model", "m", "", "Preferred model")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeletePersona(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(deps.Stdout, "Deleted persona %q\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "default <name>",
		Short: "Set default persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetDefaultPersona(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(deps.Stdout, "Default persona set to %q\n", args[0])
			return nil
		},
	})

	return cmd
}

func runPersonaList(out io.Writer) error {
	set, err := config.LoadPersonas()
	if err != nil {
		return fmt.Errorf("failed to load personas: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tDESCRIPTION\tDEFAULT")
	for _, p := range set.Personas {
		isDefault := ""
		if p.Name == set.Default {
			isDefault = "✓"
		}
		model := p.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, model, p.Description, isDefault)
	}
	return w.Flush()
}

func runPersonaShow(out io.Writer, name string) error {
	p, err := config.GetPersona(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Name:        %s\n", p.Name)
	fmt.Fprintf(out, "Description: %s\n", p.Description)
	if p.Model != "" {
		fmt.Fprintf(out, "Model:       %s\n", p.Model)
	}
	fmt.Fprintln(out, "System message:")
	if p.SystemMessage == "" {
		fmt.Fprintln(out, "  (backend default)")
		return nil
	}
	for _, line := range strings.Split(p.SystemMessage, "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
	return nil
}
