package main

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tinytelemetry/wasp/internal/binding"
	"github.com/tinytelemetry/wasp/internal/history"
	"github.com/tinytelemetry/wasp/internal/journal"
	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/query"
	"github.com/tinytelemetry/wasp/internal/store"
	"github.com/tinytelemetry/wasp/internal/transport"
)

// session is one process worth of wiring: a store restored from the journal,
// recording into the journal and the history database, and a client bound to
// it.
type session struct {
	cfg     appConfig
	log     *zap.Logger
	journal *journal.Journal
	history *history.Store
	binding *binding.Binding
	store   *store.Store[*model.State]
	client  *query.Client
}

func openSession(cfg appConfig, log *zap.Logger) (*session, error) {
	s := &session{cfg: cfg, log: log}

	var err error
	s.journal, err = journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	restored, err := journal.Restore(s.journal)
	if err != nil {
		_ = s.journal.Close()
		return nil, fmt.Errorf("failed to restore journal: %w", err)
	}

	policy, err := cfg.errorPolicy()
	if err != nil {
		_ = s.journal.Close()
		return nil, err
	}

	s.binding = binding.New(binding.WithAutomate(cfg.Automate))
	middleware := []store.Middleware{
		s.binding.Middleware(),
		store.Logger(log),
		journal.Recorder(s.journal, log),
	}

	// History is best effort: another process may hold the DuckDB lock.
	if db, herr := history.Open(cfg.HistoryDB, cfg.Timeout); herr != nil {
		log.Warn("history disabled", zap.String("path", cfg.HistoryDB), zap.Error(herr))
	} else {
		s.history = db
		middleware = append(middleware, history.Recorder(db, history.WithRecorderLogger(log)))
	}

	s.store = store.New(lifecycle.Reduce, restored, middleware...)
	s.client = query.New(s.binding,
		transport.NewHTTP(transport.WithTimeout(cfg.Timeout)),
		query.WithLogger(log),
		query.WithGraphQLErrors(policy),
	)
	return s, nil
}

// header returns the configured extra headers merged over the defaults.
func (s *session) header() http.Header {
	h := query.DefaultHeader()
	for k, v := range s.cfg.Headers {
		h.Set(k, v)
	}
	return h
}

func (s *session) Close() error {
	if s.client != nil {
		s.client.Wait()
	}
	var errs []error
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	return errors.Join(errs...)
}
