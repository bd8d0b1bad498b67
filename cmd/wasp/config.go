package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/query"
)

const (
	defaultOutput         = "json"
	defaultLogLevel       = "warn"
	defaultGraphQLErrors  = "data"
	defaultRetentionDays  = 30 // 0 = disabled
	defaultBackupInterval = 6 * time.Hour
	defaultBackupKeep     = 24
)

// appConfig is the resolved runtime configuration.
type appConfig struct {
	Endpoint         string            `mapstructure:"endpoint"`
	Automate         bool              `mapstructure:"automate"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	GraphQLErrors    string            `mapstructure:"graphql-errors"`
	JournalPath      string            `mapstructure:"journal-path"`
	HistoryDB        string            `mapstructure:"history-db"`
	HistoryRetention int               `mapstructure:"history-retention"`
	BackupDir        string            `mapstructure:"history-backup-dir"`
	BackupInterval   time.Duration     `mapstructure:"history-backup-interval"`
	BackupKeep       int               `mapstructure:"history-backup-keep"`
	LogLevel         string            `mapstructure:"log-level"`
	Output           string            `mapstructure:"output"`
	SandboxAddr      string            `mapstructure:"sandbox-addr"`
	Interval         time.Duration     `mapstructure:"interval"`
	Headers          map[string]string `mapstructure:"headers"`
	ConfigPath       string            `mapstructure:"-"`
}

// errorPolicy parses GraphQLErrors.
func (c appConfig) errorPolicy() (query.ErrorPolicy, error) {
	return query.ParseErrorPolicy(c.GraphQLErrors)
}

func setDefaults(v *viper.Viper, home string) {
	dataDir := filepath.Join(home, ".local", "share", "wasp")

	v.SetDefault("endpoint", "")
	v.SetDefault("automate", true)
	v.SetDefault("timeout", model.DefaultRequestTimeout)
	v.SetDefault("graphql-errors", defaultGraphQLErrors)
	v.SetDefault("journal-path", filepath.Join(dataDir, "wasp.journal"))
	v.SetDefault("history-db", filepath.Join(dataDir, "history.duckdb"))
	v.SetDefault("history-retention", defaultRetentionDays)
	v.SetDefault("history-backup-dir", "")
	v.SetDefault("history-backup-interval", defaultBackupInterval)
	v.SetDefault("history-backup-keep", defaultBackupKeep)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("output", defaultOutput)
	v.SetDefault("sandbox-addr", model.DefaultSandboxAddr)
	v.SetDefault("interval", model.DefaultRefreshInterval)
	v.SetDefault("headers", map[string]string{})
}

// loadConfig layers defaults, the config file, WASP_* environment variables
// and flags already bound to v.
func loadConfig(v *viper.Viper, configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v.SetEnvPrefix("WASP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	setDefaults(v, home)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "wasp", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	cfg.JournalPath = expandHome(cfg.JournalPath, home)
	cfg.HistoryDB = expandHome(cfg.HistoryDB, home)
	cfg.BackupDir = expandHome(cfg.BackupDir, home)

	switch cfg.Output {
	case "json", "yaml", "text":
	default:
		return cfg, fmt.Errorf("invalid output: %q (want json, yaml or text)", cfg.Output)
	}
	if _, err := cfg.errorPolicy(); err != nil {
		return cfg, err
	}
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("invalid timeout: %s", cfg.Timeout)
	}
	return cfg, nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
