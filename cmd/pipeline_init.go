package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/verify-cli/internal/extract"
	"github.com/sells-group/verify-cli/internal/fetch"
	"github.com/sells-group/verify-cli/internal/reconcile"
	"github.com/sells-group/verify-cli/internal/reliability"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/store"
	"github.com/sells-group/verify-cli/internal/verify"
	"github.com/sells-group/verify-cli/pkg/oracle"
)

// buildPipeline assembles the verification pipeline from config. In
// offline mode the oracle and fetcher are replaced by stubs so no API
// key or network access is needed.
func buildPipeline(offline bool) (*verify.Pipeline, error) {
	retry := resilience.DefaultRetryConfig()

	var (
		client  oracle.Client
		fetcher verify.Fetcher
	)
	if offline {
		client = &verify.StubOracle{}
		fetcher = &verify.StubFetcher{}
	} else {
		if cfg.Oracle.Key == "" {
			return nil, eris.New("VERIFY_ORACLE_KEY not set; use --offline for stub mode")
		}
		client = oracle.NewClient(oracle.Options{
			APIKey:    cfg.Oracle.Key,
			Model:     cfg.Oracle.Model,
			MaxTokens: int64(cfg.Oracle.MaxTokens),
			Timeout:   time.Duration(cfg.Oracle.TimeoutSecs) * time.Second,
		})
		fetcher = fetch.New(fetch.Options{
			UserAgent:         cfg.Fetch.UserAgent,
			Timeout:           time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
			Retry:             retry,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		}, nil)
	}

	return verify.NewPipeline(
		fetcher,
		reliability.NewAssessor(client, reputationTable(), retry),
		extract.NewExtractor(client, retry),
		reconcile.New(client, retry),
	), nil
}

// reputationTable overlays configured domain scores on the built-in
// reputation map.
func reputationTable() map[string]float64 {
	table := reliability.DefaultReputation()
	for domain, score := range cfg.Reputation {
		table[domain] = score
	}
	return table
}

// openStore opens the SQLite results store and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open results store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate results store")
	}
	return st, nil
}
