package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/neobridge/internal/schema"
)

var (
	schemaPath    string
	schemaJSONOut bool
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the inferred graph schema",
	Long: `Infer the graph schema by sampling the database and print every label and
relationship type with its property types.

With --path FROM:TO, print the shortest chain of relationship types leading
from one label to another instead.

Examples:
  neobridge schema
  neobridge schema --path Person:Product
  neobridge schema --json`,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaPath, "path", "", "find a label path, as FROM:TO")
	schemaCmd.Flags().BoolVar(&schemaJSONOut, "json", false, "print the JSON envelope instead of tables")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	var from, to string
	if schemaPath != "" {
		var ok bool
		from, to, ok = strings.Cut(schemaPath, ":")
		if !ok || from == "" || to == "" {
			return fmt.Errorf("invalid --path %q: expected FROM:TO", schemaPath)
		}
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

	d, err := app.Inspector.Inspect(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if schemaPath != "" {
		hops, err := schema.Path(d, from, to)
		if err != nil {
			return err
		}
		if schemaJSONOut {
			return writeJSON(out, hops)
		}
		return renderPath(out, hops)
	}
	if schemaJSONOut {
		return writeJSON(out, schema.NewResponse(d, nil))
	}
	return renderSchema(out, d)
}

func renderSchema(w io.Writer, d *schema.Descriptor) error {
	labels := pterm.TableData{{"Label", "Properties"}}
	for _, label := range d.Labels() {
		labels = append(labels, []string{label, formatProperties(d.NodeProperties(label))})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(labels).WithWriter(w).Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	rels := pterm.TableData{{"Type", "From", "To", "Properties"}}
	for _, relType := range d.RelationshipTypes() {
		from, to := d.ConnectedLabels(relType)
		rels = append(rels, []string{
			relType,
			strings.Join(from, ", "),
			strings.Join(to, ", "),
			formatProperties(d.RelationshipProperties(relType)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rels).WithWriter(w).Render()
}

func renderPath(w io.Writer, hops []schema.Hop) error {
	if len(hops) == 0 {
		_, err := fmt.Fprintln(w, "Start and end label are the same.")
		return err
	}
	items := make([]pterm.BulletListItem, 0, len(hops))
	for _, hop := range hops {
		items = append(items, pterm.BulletListItem{
			Level: 0,
			Text:  fmt.Sprintf("(%s)-[:%s]->(%s)", hop.From, strings.Join(hop.Types, "|"), hop.To),
		})
	}
	return pterm.DefaultBulletList.WithItems(items).WithWriter(w).Render()
}

// formatProperties renders name: Type pairs sorted by name.
func formatProperties(props map[string]string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + props[name]
	}
	return strings.Join(parts, ", ")
}
