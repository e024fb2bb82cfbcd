package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	mcputils "github.com/mvp-joe/neobridge/internal/mcp-utils"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

var (
	queryParams  []string
	queryLimit   int
	queryOffset  int
	queryTotal   bool
	queryJSONOut bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query CYPHER",
	Short: "Run a Cypher query and print the result",
	Long: `Run a Cypher query against the configured database.

Parameters are passed as --param name=value. Values are parsed as JSON when
possible (numbers, booleans, lists, objects) and used as strings otherwise.

With --limit or --offset a single page is fetched, the same way the cursor
API does.

Examples:
  neobridge query "MATCH (p:Person) RETURN p.name AS name"
  neobridge query "MATCH (p:Person {name: $name}) RETURN p" --param name=Alice
  neobridge query "MATCH (p:Person) RETURN p" --limit 10 --offset 20 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "query parameter as name=value (repeatable)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "page size")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "rows to skip")
	queryCmd.Flags().BoolVar(&queryTotal, "total", false, "report the unpaginated row count")
	queryCmd.Flags().BoolVar(&queryJSONOut, "json", false, "print the JSON envelope instead of a table")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	params, err := parseParams(queryParams)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := connect(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeApp(app)

	var result *protocol.Result
	if cmd.Flags().Changed("limit") || cmd.Flags().Changed("offset") || queryTotal {
		opts := protocol.CursorOptions{IncludeTotal: queryTotal}
		if cmd.Flags().Changed("limit") {
			opts.Limit = &queryLimit
		}
		if cmd.Flags().Changed("offset") {
			opts.Offset = &queryOffset
		}
		result, err = app.Executor.ExecutePaginated(ctx, args[0], params, opts)
	} else {
		result, err = app.Executor.Execute(ctx, args[0], params)
	}
	if err != nil {
		return err
	}

	if queryJSONOut {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return renderResult(cmd.OutOrStdout(), result)
}

// parseParams turns name=value pairs into query parameters.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", pair)
		}
		params[name] = parseValue(raw)
	}
	return params, nil
}

func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return mcputils.Numbers(v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderResult prints rows as a table, one column per key, followed by a
// summary line.
func renderResult(w io.Writer, result *protocol.Result) error {
	if len(result.Rows) > 0 {
		keys := []string{}
		for _, row := range result.Rows {
			for k := range row {
				if !slices.Contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
		slices.Sort(keys)

		data := pterm.TableData{keys}
		for _, row := range result.Rows {
			line := make([]string, len(keys))
			for i, k := range keys {
				line[i] = cell(row[k])
			}
			data = append(data, line)
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render(); err != nil {
			return err
		}
	}

	meta := result.Metadata
	summary := fmt.Sprintf("%d row(s) in %dms", meta.RowCount, meta.QueryTimeMs)
	if meta.HasMore {
		summary += ", more available"
	}
	if meta.TotalCount != nil {
		summary += fmt.Sprintf(", %d total", *meta.TotalCount)
	}
	for _, name := range slices.Sorted(maps.Keys(meta.Counters)) {
		summary += fmt.Sprintf(", %s: %d", name, meta.Counters[name])
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

func cell(v any) string {
	switch s := v.(type) {
	case nil:
		return "null"
	case string:
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
