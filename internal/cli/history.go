package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/neobridge/internal/history"
)

var (
	historyLimit   int
	historyJSONOut bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently executed queries",
	Long: `List queries recorded in the local history database, newest first.

Queries are only recorded while history.enabled is true.

Example:
  neobridge history --limit 50`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	historyCmd.Flags().BoolVar(&historyJSONOut, "json", false, "print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		pterm.Warning.Println("Query history is disabled; set history.enabled to record queries.")
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if historyJSONOut {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	return renderHistory(cmd.OutOrStdout(), entries)
}

func renderHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No queries recorded.")
		return err
	}
	data := pterm.TableData{{"ID", "Time", "Duration", "Rows", "Status", "Query"}}
	for _, e := range entries {
		status := "ok"
		if e.Code != "" {
			status = e.Code
		}
		q := strings.Join(strings.Fields(e.Query), " ")
		if e.TransactionID != "" {
			q = "[tx " + shortID(e.TransactionID) + "] " + q
		}
		data = append(data, []string{
			strconv.FormatInt(e.ID, 10),
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Duration.String(),
			strconv.Itoa(e.RowCount),
			status,
			truncate(q, 80),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
