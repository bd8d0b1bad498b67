package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/wasp/internal/journal"
	"github.com/tinytelemetry/wasp/internal/lifecycle"
)

func newStateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the lifecycle state rebuilt from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := journal.Open(a.cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer j.Close()

			state, err := journal.Restore(j)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, state.ToView())
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Dispatch a clear and reset the persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer sess.Close()

			sess.store.Dispatch(lifecycle.DataCleared())
			return render(cmd.OutOrStdout(), a.cfg.Output, sess.store.GetState().ToView())
		},
	}
}
