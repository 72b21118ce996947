package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organizational/pkg/organizational"
)

const modulePath = "github.com/mesh-intelligence/organizational"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the orgctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "orgctl v%s\nmodule: %s\n", organizational.Version, modulePath)
			return nil
		},
	}
}
