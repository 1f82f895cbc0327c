// Package store persists verification results and run summaries.
package store

import (
	"context"

	"github.com/sells-group/verify-cli/internal/model"
)

// ResultFilter specifies criteria for listing stored results. Company
// matches as a case-insensitive substring of the stored company name.
type ResultFilter struct {
	Status  model.VerificationStatus `json:"status,omitempty"`
	Company string                   `json:"company,omitempty"`
	Limit   int                      `json:"limit,omitempty"`
	Offset  int                      `json:"offset,omitempty"`
}

// Store defines the persistence interface for the verification pipeline.
// Results are append-only; summaries are written once per run.
type Store interface {
	AppendResults(ctx context.Context, results []model.VerificationResult) error
	ListResults(ctx context.Context, filter ResultFilter) ([]model.VerificationResult, error)
	WriteSummary(ctx context.Context, summary model.RunSummary) error
	ListSummaries(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
