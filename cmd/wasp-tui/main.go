package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tinytelemetry/wasp/internal/binding"
	"github.com/tinytelemetry/wasp/internal/history"
	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/query"
	"github.com/tinytelemetry/wasp/internal/store"
	"github.com/tinytelemetry/wasp/internal/transport"
	"github.com/tinytelemetry/wasp/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var endpoint string
	var interval time.Duration
	var mutation bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/wasp/config.yml)")
	flag.StringVar(&endpoint, "endpoint", "", "GraphQL endpoint url (default from config)")
	flag.DurationVar(&interval, "interval", 0, "poll interval (default from config)")
	flag.BoolVar(&mutation, "mutation", false, "send the document as a mutation")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: wasp-tui [flags] <document>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("wasp-tui - GraphQL lifecycle dashboard\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if interval > 0 {
		cfg.Interval = interval
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := runTUI(cfg, flag.Arg(0), mutation); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig, document string, mutation bool) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("no endpoint: pass --endpoint or set endpoint in the config file")
	}
	policy, err := query.ParseErrorPolicy(cfg.GraphQLErrors)
	if err != nil {
		return err
	}

	b := binding.New()
	middleware := []store.Middleware{b.Middleware()}

	var opts []tui.DashboardOption
	opts = append(opts, tui.WithTimeout(cfg.Timeout))

	db, err := history.Open(cfg.HistoryDB, cfg.Timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
	} else {
		defer db.Close()
		middleware = append(middleware, history.Recorder(db))
		opts = append(opts, tui.WithHistory(db))

		cleaner := history.NewRetentionCleaner(db, history.RetentionConfig{RetentionDays: cfg.HistoryRetention})
		if cleaner != nil {
			defer cleaner.Stop()
		}
	}

	st := store.New(lifecycle.Reduce, model.InitialState(), middleware...)
	client := query.New(b,
		transport.NewHTTP(transport.WithTimeout(cfg.Timeout)),
		query.WithLogger(zap.NewNop()),
		query.WithGraphQLErrors(policy),
	)
	defer client.Wait()

	watch := &tui.Watch{
		Store:    st,
		Client:   client,
		URL:      cfg.Endpoint,
		Init:     query.RawQuery(document),
		Mutation: mutation,
	}

	dashboard := tui.NewDashboardModel(watch, cfg.Interval, opts...)
	// Runs before the deferred client.Wait so no poll can start during it.
	defer dashboard.Close()
	app := tui.NewApp(dashboard)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
