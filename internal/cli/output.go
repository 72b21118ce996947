package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

// errUsage marks errors caused by bad input rather than the system.
var errUsage = errors.New("usage")

// userErrors are the domain errors that map to exitUserError.
var userErrors = []error{
	errUsage,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrUnknownType,
	types.ErrTypeDisabled,
	types.ErrInvalidStatus,
	types.ErrInvalidTitle,
	types.ErrUnknownSlot,
	types.ErrNotRelated,
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// usageErrorf returns an errUsage error with a message.
func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printTable writes rows under header, trimming trailing padding.
func printTable(w io.Writer, header []string, rows [][]string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printItems(w io.Writer, items []*types.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			fmt.Sprint(it.ID),
			it.Type.Slug(),
			truncate(it.Title, 40),
			it.Slug,
			it.Status,
			it.CreatedAt.Format("2006-01-02"),
		})
	}
	printTable(w, []string{"ID", "TYPE", "TITLE", "SLUG", "STATUS", "CREATED"}, rows)
	fmt.Fprintf(w, "Total: %d item(s)\n", len(items))
}

func printDirectory(w io.Writer, dir *types.Directory) {
	if dir.Len() == 0 {
		fmt.Fprintln(w, "No objects found.")
		return
	}
	rows := make([][]string, 0, dir.Len())
	for _, e := range dir.Entries() {
		rows = append(rows, []string{string(e.ID), fmt.Sprint(e.StorageID), truncate(e.Name, 40), e.URL})
	}
	printTable(w, []string{"UNIQUE ID", "ITEM", "NAME", "URL"}, rows)
}
