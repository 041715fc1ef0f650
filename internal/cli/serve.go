package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/auxwars/auxwars/internal/api"
	"github.com/auxwars/auxwars/internal/daemon"
	"github.com/auxwars/auxwars/internal/engine"
	"github.com/auxwars/auxwars/internal/identity"
	"github.com/auxwars/auxwars/internal/ratelimit"
	"github.com/auxwars/auxwars/internal/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session server",
	Long: `Start the HTTP server. Session state lives in the configured store
(memory for a single node, sqlite for anything that must survive a
restart); every request handler is stateless against it.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Admin.Token == "" {
		log.Warn("no admin token configured, host routes are disabled")
	}

	st, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	ec, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	eng := engine.New(st, ec)

	srv := api.NewServer(
		eng,
		ratelimit.New(st, cfg.Limits()),
		identity.NewResolver(cfg.Admin.Token),
		log,
	)
	if cfg.API.MetricsEnabled {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpSrv.Addr, "store", cfg.Store.Backend)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// openStore builds the configured backend and returns it with its
// cleanup.
func openStore(cfg daemon.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemory(), func() {}, nil
	case "sqlite":
		st, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
