package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dronesim/internal/admin"
	"dronesim/internal/config"
	"dronesim/internal/logging"
	"dronesim/internal/metrics"
	"dronesim/internal/server"
	"dronesim/internal/session"
	"dronesim/internal/store"
)

var (
	serveConfigPath string
	serveSchemaPath string
	serveListenAddr string
	serveMemStore   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the drone simulator server",
	Long:  "serve starts the websocket simulator server and the admin monitoring endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}
		if serveListenAddr != "" {
			cfg.ListenAddr = serveListenAddr
		}

		log := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		st, err := newStore(cfg.Store.Path, serveMemStore)
		if err != nil {
			return err
		}
		defer st.Close()

		hw, cleanup, err := newHistoryWriter(cfg.History, log)
		if err != nil {
			return err
		}
		defer cleanup()

		mgr := session.NewManager(session.Config{
			HeartbeatInterval: cfg.Heartbeat.Interval.Std(),
			PingTimeout:       cfg.Heartbeat.PingTimeout.Std(),
			InactivityTimeout: cfg.Heartbeat.InactivityTimeout.Std(),
		}, st, metrics.NewRegistry(), hw)

		go mgr.Run(ctx, cfg.StatsInterval.Std())

		adminSrv := admin.NewServer(mgr, cfg.Admin.Token)
		go func() {
			if err := adminSrv.Start(ctx, cfg.Admin.Addr); err != nil {
				log.Error("admin server failed", "error", err)
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.New(mgr).Start(ctx, cfg.ListenAddr)
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigs:
			log.Info("shutting down", "signal", sig.String())
			cancel()
			return <-errCh
		case err := <-errCh:
			return err
		}
	},
}

func newStore(path string, memOnly bool) (store.Store, error) {
	if memOnly || path == "" {
		return store.NewMemory(), nil
	}
	return store.NewSQLite(path)
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/server.yaml", "Path to server configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/server.cue", "Path to CUE schema file")
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "Override the websocket listen address")
	serveCmd.Flags().BoolVar(&serveMemStore, "mem-store", false, "Keep telemetry snapshots in memory instead of SQLite")
}
