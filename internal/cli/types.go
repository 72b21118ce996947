package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

func newTypesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List enabled object types and their relationship slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				infos := a.svc.Types()
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, infos)
				}
				rows := make([][]string, 0, len(infos))
				for _, info := range infos {
					slots := make([]string, 0, len(info.Slots))
					for _, s := range info.Slots {
						slots = append(slots, s.Name)
					}
					rows = append(rows, []string{info.Type.Slug(), info.Names.Plural, "/" + info.RewriteSlug + "/", strings.Join(slots, ",")})
				}
				printTable(out, []string{"TYPE", "NAME", "PERMALINK", "SLOTS"}, rows)
				fmt.Fprintf(out, "Total: %d type(s)\n", len(infos))
				return nil
			})
		},
	}
}

// parseType resolves a type argument, reporting a usage error.
func parseType(s string) (types.ObjectType, error) {
	t, err := types.ParseType(s)
	if err != nil {
		return t, fmt.Errorf("%w: %w", errUsage, err)
	}
	return t, nil
}
