// Package cmd provides the command-line interface for procsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	// Models that the CLI can run.
	_ "github.com/sarchlab/procsim/models/bank"
	_ "github.com/sarchlab/procsim/models/gate"
)

// RootOptions holds the flags shared by all commands.
type RootOptions struct {
	EnvFile string
}

// NewRootCommand creates the procsim command and its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "procsim",
		Short: "procsim runs process-based discrete-event simulations.",
		Long: `procsim runs process-based discrete-event simulations. ` +
			`Flags that are not given on the command line are read from ` +
			`PROCSIM_* environment variables, which may come from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := loadEnv(opts.EnvFile, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}

			return applyEnv(cmd.Flags())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env",
		"file that sets PROCSIM_* variables")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewModelsCommand())

	return cmd
}

// Execute runs the command line and exits after the exit handlers, such as
// the ones that flush recorded data, have run.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
