package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/claude-bar/claude-bar/internal/config"
	"github.com/claude-bar/claude-bar/internal/daemon"
	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/mock"
	"github.com/claude-bar/claude-bar/internal/monitor"
	"github.com/claude-bar/claude-bar/internal/session"
	"github.com/claude-bar/claude-bar/internal/ws"
)

var (
	serveMock    bool
	serveHTTP    string
	serveVerbose bool
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the poll loop and serve the status socket",
		Long: `Poll for sessions every monitor.poll_interval and serve the latest
snapshot on the status socket. Each connection to the socket receives one
JSON array followed by a newline.

With --mock a synthetic fleet of sessions runs in a temporary directory, so
the whole pipeline can be exercised without real processes or terminals.`,
		RunE: runServe,
	}
	serveCmd.Flags().BoolVar(&serveMock, "mock", false, "Serve a synthetic demo fleet")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "Enable the HTTP/WebSocket mirror on this address")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Mirror logs to stderr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveHTTP != "" {
		cfg.HTTP.Enabled = true
		cfg.HTTP.Addr = serveHTTP
	}
	if err := initLogging(cfg, serveVerbose); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore()
	var tasks []daemon.Task

	var (
		inspector   monitor.ProcessInspector
		enumerators []monitor.TerminalEnumerator
	)
	if serveMock {
		root, err := os.MkdirTemp("", "claude-bar-mock")
		if err != nil {
			return fmt.Errorf("create mock root: %w", err)
		}
		defer os.RemoveAll(root)

		cfg.Monitor.Program = mock.Program
		cfg.Paths.ProjectsDir = filepath.Join(root, "projects")
		cfg.Paths.ClaimsDir = filepath.Join(root, "claims")

		gen := mock.NewGenerator(cfg.Paths.ProjectsDir, cfg.Paths.ClaimsDir, cfg.Monitor.PollInterval)
		if err := gen.Setup(); err != nil {
			return fmt.Errorf("mock setup: %w", err)
		}
		inspector = gen.Inspector()
		for _, e := range gen.Enumerators() {
			enumerators = append(enumerators, e)
		}
		tasks = append(tasks, daemon.Optional("mock_fleet", gen.Run))
		fmt.Fprintf(cmd.ErrOrStderr(), "mock fleet running in %s\n", root)
	} else {
		inspector = monitor.NewInspector(cfg)
		enumerators = monitor.NewEnumerators(cfg.Monitor.Terminals, nil, cfg.Monitor.QueryTimeout)
	}

	mon := monitor.NewMonitor(cfg, inspector, enumerators, store)

	if cfg.Monitor.WatchClaims {
		watcher, err := monitor.NewClaimsWatcher(cfg.Paths.ClaimsDir)
		if err != nil {
			// Polling continues at the fixed cadence.
			logging.Logger().Warn("claims_watch_disabled", slog.String("error", err.Error()))
		} else {
			mon.SetTrigger(watcher.C())
			tasks = append(tasks, daemon.Optional("claims_watch", watcher.Run))
		}
	}
	tasks = append(tasks, mon.Run)

	if cfg.HTTP.Enabled {
		tasks = append(tasks, daemon.Optional("http_mirror", httpMirror(cfg, store, mon)))
	}

	return daemon.New(cfg, store).Run(ctx, tasks...)
}

// httpMirror wires the WebSocket broadcaster to the store and serves the
// mirror until the daemon stops.
func httpMirror(cfg *config.Config, store *session.Store, mon *monitor.Monitor) daemon.Task {
	b := ws.NewBroadcaster(store, cfg.HTTP.Throttle, cfg.HTTP.SnapshotInterval, cfg.HTTP.MaxConnections)
	store.SetPublishHook(b.PublishHook(mon.Health))
	srv := ws.NewServer(store, b, mon.Health, cfg.HTTP.AllowedOrigins, cfg.HTTP.Token)

	return func(ctx context.Context) error {
		defer b.Stop()
		return ws.ListenAndServe(ctx, cfg.HTTP.Addr, srv.Handler())
	}
}
