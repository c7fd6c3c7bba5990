package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/procsim/models"
)

// NewModelsCommand creates the command that lists the models.
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models that can be run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range models.Names() {
				fmt.Fprintf(w, "%s\t%s\n", name, models.Description(name))
			}

			return w.Flush()
		},
	}
}
