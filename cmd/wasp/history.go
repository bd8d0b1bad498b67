package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/wasp/internal/backup"
	"github.com/tinytelemetry/wasp/internal/history"
	"github.com/tinytelemetry/wasp/internal/model"
)

type historyOutput struct {
	Requests []model.RequestRecord `json:"requests" yaml:"requests"`
	Summary  model.RequestSummary  `json:"summary" yaml:"summary"`
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := history.Open(a.cfg.HistoryDB, a.cfg.Timeout)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer db.Close()

			records, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			sum, err := db.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), a.cfg.Output, records, sum)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", model.DefaultHistoryLimit, "number of requests to show")
	cmd.AddCommand(newSnapshotCmd(a))
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [dir]",
		Short: "Copy the history database into a timestamped snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.BackupDir
			if len(args) == 1 {
				dir = args[0]
			}

			db, err := history.Open(a.cfg.HistoryDB, a.cfg.Timeout)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer db.Close()

			path, err := backup.Once(cmd.Context(), db, a.backupConfig(dir))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func (a *app) backupConfig(dir string) backup.Config {
	return backup.Config{
		Dir:      dir,
		Interval: a.cfg.BackupInterval,
		KeepLast: a.cfg.BackupKeep,
		Logger:   a.log,
	}
}

func printHistory(w io.Writer, format string, records []model.RequestRecord, sum model.RequestSummary) error {
	if format == "text" {
		_, err := io.WriteString(w, historyTable(records, sum))
		return err
	}
	if records == nil {
		records = []model.RequestRecord{}
	}
	return render(w, format, historyOutput{Requests: records, Summary: sum})
}
