package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organizational/pkg/organizational"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

func newItemCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Create, inspect and remove items",
	}
	cmd.AddCommand(
		newItemCreateCmd(flags),
		newItemGetCmd(flags),
		newItemListCmd(flags),
		newItemUpdateCmd(flags),
		newItemTrashCmd(flags),
		newItemDeleteCmd(flags),
	)
	return cmd
}

// itemEdit collects the flags shared by create and update.
type itemEdit struct {
	title  string
	slug   string
	status string
	fields []string
}

func (e *itemEdit) register(cmd *cobra.Command, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVar(&e.title, "title", "", "item title")
	}
	cmd.Flags().StringVar(&e.slug, "slug", "", "item slug (default: derived from title)")
	cmd.Flags().StringVar(&e.status, "status", "", "status (draft, publish, trash)")
	cmd.Flags().StringArrayVar(&e.fields, "field", nil, "profile field as name=value (repeatable)")
}

// parseFields splits name=value pairs.
func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, usageErrorf("invalid field %q (expected name=value)", p)
		}
		out[strings.TrimSpace(name)] = value
	}
	return out, nil
}

func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, s)
	}
	return id, nil
}

// itemView is an item with its stable id and profile fields.
type itemView struct {
	*types.Item
	UniqueID types.StableID    `json:"unique_id,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func loadView(ctx context.Context, a *app, id int64) (*itemView, error) {
	item, err := a.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	uid, err := a.svc.StableID(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := a.svc.Fields(ctx, id)
	if err != nil {
		return nil, err
	}
	return &itemView{Item: item, UniqueID: uid, Fields: fields}, nil
}

func printView(cmd *cobra.Command, flags *rootFlags, v *itemView) error {
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, v)
	}
	fmt.Fprintf(out, "ID:        %d\n", v.ID)
	fmt.Fprintf(out, "Type:      %s\n", v.Type.Slug())
	fmt.Fprintf(out, "Title:     %s\n", v.Title)
	fmt.Fprintf(out, "Slug:      %s\n", v.Slug)
	fmt.Fprintf(out, "Status:    %s\n", v.Status)
	fmt.Fprintf(out, "Unique ID: %s\n", v.UniqueID)
	fmt.Fprintf(out, "Created:   %s\n", v.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, name := range types.Fields(v.Type) {
		if value, ok := v.Fields[name]; ok {
			fmt.Fprintf(out, "  %s: %s\n", name, value)
		}
	}
	return nil
}

func newItemCreateCmd(flags *rootFlags) *cobra.Command {
	var edit itemEdit
	cmd := &cobra.Command{
		Use:   "create <type> <title>",
		Short: "Create an item",
		Long: `Create an item of the given type. New items are drafts unless --status
says otherwise; only published items appear in directories.

Example:
  orgctl item create person "Ada Lovelace" --status publish --field last_name=Lovelace
  orgctl item create project "Analytical Engine" --status publish`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			fields, err := parseFields(edit.fields)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.svc.Save(ctx, organizational.SaveRequest{
					Item:   types.Item{Type: t, Title: args[1], Slug: edit.slug, Status: edit.status},
					Fields: fields,
				})
				if err != nil {
					return err
				}
				v, err := loadView(ctx, a, res.Item.ID)
				if err != nil {
					return err
				}
				return printView(cmd, flags, v)
			})
		},
	}
	edit.register(cmd, false)
	return cmd
}

func newItemGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				v, err := loadView(ctx, a, id)
				if err != nil {
					return err
				}
				return printView(cmd, flags, v)
			})
		},
	}
}

func newItemListCmd(flags *rootFlags) *cobra.Command {
	var (
		typeName string
		statuses []string
		orderBy  string
		limit    int
		offset   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long: `List items, newest first by default.

Example:
  orgctl item list --type person --status publish
  orgctl item list --order title --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := types.ListQuery{Statuses: statuses, Limit: limit, Offset: offset}
			if typeName != "" {
				t, err := parseType(typeName)
				if err != nil {
					return err
				}
				q.Type = t
			}
			switch orderBy {
			case "", types.OrderDateDesc, types.OrderTitleAsc:
				q.OrderBy = orderBy
			default:
				return usageErrorf("unknown order %q (valid: date, title)", orderBy)
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				items, err := a.svc.List(ctx, q)
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
	cmd.Flags().StringVar(&typeName, "type", "", "filter by type")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().StringVar(&orderBy, "order", "", "order: date (newest first) or title")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = no limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of results to skip")
	return cmd
}

func newItemUpdateCmd(flags *rootFlags) *cobra.Command {
	var edit itemEdit
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an item's title, slug, status or profile fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			fields, err := parseFields(edit.fields)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				item, err := a.svc.Get(ctx, id)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("title") {
					item.Title = edit.title
				}
				if cmd.Flags().Changed("slug") {
					item.Slug = edit.slug
				}
				if cmd.Flags().Changed("status") {
					item.Status = edit.status
				}
				if _, err := a.svc.Save(ctx, organizational.SaveRequest{Item: *item, Fields: fields}); err != nil {
					return err
				}
				v, err := loadView(ctx, a, id)
				if err != nil {
					return err
				}
				return printView(cmd, flags, v)
			})
		},
	}
	edit.register(cmd, true)
	return cmd
}

func newItemTrashCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trash <id>",
		Short: "Move an item to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				item, err := a.svc.Trash(ctx, id)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), item)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Trashed item %d\n", id)
				return nil
			})
		},
	}
}

func newItemDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item and its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.svc.Delete(ctx, id); err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %d\n", id)
				return nil
			})
		},
	}
}
