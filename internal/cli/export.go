package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/neobridge/internal/cursor"
)

var (
	exportURL      string
	exportToken    string
	exportOut      string
	exportPageSize int
	exportParams   []string
	exportQuiet    bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export CYPHER",
	Short: "Stream a query result to JSON Lines, page by page",
	Long: `Export every row of a query as one JSON object per line.

Rows are fetched with a cursor, one page at a time, so large results never
have to fit in memory. Against a running server (--url) pages come from the
cursor API; otherwise the configured database is queried directly.

Examples:
  neobridge export "MATCH (p:Person) RETURN p" --out people.jsonl
  neobridge export "MATCH (p:Product) RETURN p" --url http://localhost:5000/api --page-size 500`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportURL, "url", "", "API root of a running server (default: query the database directly)")
	exportCmd.Flags().StringVar(&exportToken, "token", "", "bearer token for --url")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	exportCmd.Flags().IntVar(&exportPageSize, "page-size", 0, "rows per page (default: cursor.page_size)")
	exportCmd.Flags().StringArrayVar(&exportParams, "param", nil, "query parameter as name=value (repeatable)")
	exportCmd.Flags().BoolVarP(&exportQuiet, "quiet", "q", false, "no progress bar")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	params, err := parseParams(exportParams)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	pageSize := exportPageSize
	if pageSize <= 0 {
		pageSize = cfg.Cursor.PageSize
	}

	ctx := cmd.Context()
	var pager cursor.Pager
	if exportURL != "" {
		pager = cursor.NewClient(exportURL).SetAuthToken(exportToken)
	} else {
		app, err := connect(ctx, cfg, slog.Default())
		if err != nil {
			return err
		}
		defer closeApp(app)
		pager = cursor.NewLocalPager(app.Executor)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	c := cursor.New(pager, args[0], params, pageSize, cursor.WithTotal())

	var bar *progressbar.ProgressBar
	if !exportQuiet {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Exporting rows"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rows/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
	}

	start := time.Now()
	n, err := exportRows(ctx, c, w, func(rows int) {
		if bar == nil {
			return
		}
		if total, ok := c.TotalCount(); ok && bar.GetMax() != total {
			bar.ChangeMax(total)
		}
		_ = bar.Add(rows)
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("export failed after %d rows: %w", n, err)
	}

	slog.Info("export complete", "rows", n, "pages", c.Offset()/c.PageSize(), "duration", time.Since(start))
	return nil
}

// exportRows drains c from the start, writing each row as a JSON line to w.
// onPage is called with the size of every page written.
func exportRows(ctx context.Context, c *cursor.Cursor, w io.Writer, onPage func(rows int)) (int, error) {
	enc := json.NewEncoder(w)
	written := 0
	c.Reset()
	for {
		page, done, err := c.Next(ctx)
		if err != nil {
			return written, err
		}
		if done {
			return written, nil
		}
		for _, row := range page {
			if err := enc.Encode(row); err != nil {
				return written, fmt.Errorf("failed to write row: %w", err)
			}
			written++
		}
		if onPage != nil {
			onPage(len(page))
		}
	}
}
