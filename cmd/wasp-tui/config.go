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
)

// cliConfig holds only dashboard-relevant configuration.
type cliConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	GraphQLErrors    string        `mapstructure:"graphql-errors"`
	HistoryDB        string        `mapstructure:"history-db"`
	HistoryRetention int           `mapstructure:"history-retention"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("WASP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("endpoint", "")
	v.SetDefault("interval", model.DefaultRefreshInterval)
	v.SetDefault("timeout", model.DefaultRequestTimeout)
	v.SetDefault("graphql-errors", "data")
	v.SetDefault("history-db", filepath.Join(home, ".local", "share", "wasp", "history.duckdb"))
	v.SetDefault("history-retention", 30)

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
	if strings.HasPrefix(cfg.HistoryDB, "~/") {
		cfg.HistoryDB = filepath.Join(home, cfg.HistoryDB[2:])
	}
	return cfg, nil
}
