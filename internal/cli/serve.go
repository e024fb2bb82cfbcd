package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API in front of the configured Neo4j database.

Routes are served under /api: query, cursor/query, schema, transactions and
node/relationship CRUD. /health reports database connectivity.

While serving, idle transactions are rolled back (transactions.idle_timeout)
and edits to the config file re-apply the schema settings.

Example:
  neobridge serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	logger := slog.Default()
	app, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(app)

	srv, err := app.APIServer()
	if err != nil {
		return err
	}
	watcher, err := app.Watcher(loader)
	if err != nil {
		logger.Warn("config file will not be watched", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return app.Registry.Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	return g.Wait()
}

// closeApp releases app with a fresh deadline, since the command context
// is usually cancelled by then.
func closeApp(app *App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		app.Logger.Warn("shutdown incomplete", "error", err)
	}
}
