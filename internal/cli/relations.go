package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organizational/internal/sanitize"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

func newAssignCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <item-id> <slot> [unique-id...]",
		Short: "Replace an item's relationship field",
		Long: `Assign replaces the item's field for the slot with the given unique ids
and updates the reverse field of every added or removed counterpart.
Passing no ids clears the field. Ids may also be given comma-joined.

Example:
  orgctl assign 12 projects 0190d3c1-... 0190d3c2-...
  orgctl assign 12 lead_people 0190d3c1-...
  orgctl assign 12 entities`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			var ids []string
			for _, arg := range args[2:] {
				ids = append(ids, sanitize.Split(arg)...)
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.svc.Assign(ctx, id, args[1], ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, res)
				}
				for name, r := range res.Slots {
					fmt.Fprintf(out, "%s: added %d, removed %d", name, len(r.Added), len(r.Removed))
					if len(r.Skipped) > 0 {
						fmt.Fprintf(out, ", skipped %s", joinIDs(r.Skipped))
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

func joinIDs(ids []types.StableID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ",")
}

func newAssociationsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "associations <item-id> <type|slot>",
		Short: "List the objects associated with an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				dir, ok, err := a.svc.GetSlotObjects(ctx, id, args[1])
				if err != nil {
					return err
				}
				if !ok {
					return usageErrorf("item %d cannot hold %s associations", id, args[1])
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), dir)
				}
				printDirectory(cmd.OutOrStdout(), dir)
				return nil
			})
		},
	}
}

func newDirectoryCmd(flags *rootFlags) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "directory <type>",
		Short: "Show the object directory of a type",
		Long: `Directory lists every published object of the type that has a unique id,
newest first, as served from the object cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if refresh {
					if err := a.svc.InvalidateAll(ctx); err != nil {
						return err
					}
				}
				dir, ok, err := a.svc.GetAllObjectData(ctx, t)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", types.ErrTypeDisabled, t)
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), dir)
				}
				printDirectory(cmd.OutOrStdout(), dir)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild every cached directory first")
	return cmd
}

func newArchiveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <type>",
		Short: "List published items in archive order",
		Long: `Archive lists published items: people by last name, projects and
entities by title, publications newest first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				items, err := a.svc.Archive(ctx, t)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), items)
				}
				printItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every item to a JSONL snapshot",
		Long: `Export writes every item with all of its attributes as one JSON line.
A file name ending in .zst is zstd-compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				st, err := a.svc.Export(ctx, args[0])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d item(s), %d attribute(s) to %s\n", st.Items, st.Attributes, args[0])
				return nil
			})
		},
	}
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSONL snapshot",
		Long: `Import creates one item per snapshot line. Items get new ids; unique ids
and relationship fields are kept, so associations survive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				st, err := a.svc.Import(ctx, args[0])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d item(s), skipped %d line(s)\n", st.Items, st.Skipped)
				return nil
			})
		},
	}
}
