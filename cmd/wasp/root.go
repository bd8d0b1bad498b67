package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	conf *viper.Viper
	cfg  appConfig
	log  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{conf: viper.New()}

	root := &cobra.Command{
		Use:           "wasp",
		Short:         "Run GraphQL requests and track their lifecycle state",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(a.conf, configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("wasp %s (commit %s, built %s, %s)\n", version, commit, buildTime, goVersion))

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.config/wasp/config.yml)")
	flags.String("endpoint", "", "default GraphQL endpoint url")
	flags.Bool("automate", true, "dispatch lifecycle actions for each request")
	flags.Duration("timeout", 0, "per-request timeout")
	flags.String("graphql-errors", "", "report GraphQL error arrays as data or failure")
	flags.String("journal-path", "", "action journal file")
	flags.String("history-db", "", "request history DuckDB file")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.StringP("output", "o", "", "json, yaml or text")
	_ = a.conf.BindPFlags(flags)

	root.AddCommand(
		newRequestCmd(a, false),
		newRequestCmd(a, true),
		newStateCmd(a),
		newClearCmd(a),
		newHistoryCmd(a),
		newSandboxCmd(a),
	)
	return root
}
