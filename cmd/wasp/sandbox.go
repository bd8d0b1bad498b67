package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/wasp/internal/backup"
	"github.com/tinytelemetry/wasp/internal/history"
	"github.com/tinytelemetry/wasp/internal/httpserver"
	"github.com/tinytelemetry/wasp/internal/sandbox"
)

func newSandboxCmd(a *app) *cobra.Command {
	var addr string
	var withHistory bool

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve the sample authors and posts GraphQL endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.SandboxAddr
			}
			return runSandbox(cmd.Context(), a, addr, withHistory, func(url string) {
				fmt.Fprintf(cmd.OutOrStdout(), "serving GraphQL on %s\n", url)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default sandbox-addr)")
	cmd.Flags().BoolVar(&withHistory, "with-history", false, "serve /api/history from history-db (holds the database lock)")
	return cmd
}

// runSandbox serves until ctx is cancelled. ready is called with the endpoint
// url once the listener is bound.
func runSandbox(ctx context.Context, a *app, addr string, withHistory bool, ready func(url string)) error {
	schema, err := sandbox.NewSchema()
	if err != nil {
		return err
	}

	var opts []httpserver.Option
	if withHistory {
		// DuckDB allows one writer process, so other wasp commands cannot
		// record history while this holds the file.
		db, err := history.Open(a.cfg.HistoryDB, a.cfg.Timeout)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		cleaner := history.NewRetentionCleaner(db, history.RetentionConfig{
			RetentionDays: a.cfg.HistoryRetention,
			Logger:        a.log,
		})
		if cleaner != nil {
			defer cleaner.Stop()
		}

		snapshots, err := backup.Start(db, a.backupConfig(a.cfg.BackupDir))
		if err != nil {
			return err
		}
		defer snapshots.Stop()
		opts = append(opts, httpserver.WithHistory(db))
	}

	srv := httpserver.NewServer(addr, schema, opts...)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start sandbox server: %w", err)
	}
	a.log.Info("sandbox: listening", zap.String("url", srv.URL()))
	if ready != nil {
		ready(srv.URL())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("sandbox: shutting down")
		return srv.Stop()
	})
	return g.Wait()
}
