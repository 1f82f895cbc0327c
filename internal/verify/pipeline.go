// Package verify wires fetching, reliability assessment, detail
// extraction and reconciliation into the announcement verification
// pipeline, and orchestrates batch runs over many announcements.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/verify-cli/internal/model"
)

// Fetcher retrieves article content for a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Assessor scores how trustworthy a source is.
type Assessor interface {
	Assess(ctx context.Context, url, content string) model.SourceReliability
}

// Extractor pulls structured funding details out of article content.
type Extractor interface {
	Extract(ctx context.Context, content string) model.ExtractedFacts
}

// Reconciler compares reported details against extracted ones.
type Reconciler interface {
	Reconcile(ctx context.Context, reported model.Announcement, extracted model.ExtractedFacts, rel model.SourceReliability) model.VerificationResult
}

// Pipeline verifies a single announcement end to end.
type Pipeline struct {
	fetcher    Fetcher
	assessor   Assessor
	extractor  Extractor
	reconciler Reconciler
	now        func() time.Time
}

// NewPipeline assembles a verification pipeline from its stages.
func NewPipeline(f Fetcher, a Assessor, e Extractor, r Reconciler) *Pipeline {
	return &Pipeline{
		fetcher:    f,
		assessor:   a,
		extractor:  e,
		reconciler: r,
		now:        time.Now,
	}
}

// VerifyOne runs the full pipeline for one announcement. It always
// returns a result: an announcement without a source URL, or whose
// source cannot be fetched after retries, is reported UNVERIFIED with
// zero confidence rather than failing the run. The failed return
// distinguishes those pipeline failures from a verification that
// legitimately scored zero confidence.
func (p *Pipeline) VerifyOne(ctx context.Context, a model.Announcement) (result model.VerificationResult, failed bool) {
	if a.SourceURL == "" {
		return p.unverifiable(a, "No source URL provided for verification."), true
	}

	content, err := p.fetcher.Fetch(ctx, a.SourceURL)
	if err != nil {
		zap.L().Warn("verify: source fetch failed",
			zap.String("company", a.CompanyName),
			zap.String("url", a.SourceURL),
			zap.Error(err),
		)
		return p.unverifiable(a, fmt.Sprintf("Could not fetch source content: %v", err)), true
	}

	// Reliability and extraction are independent oracle calls; run
	// them concurrently. Both stages degrade internally instead of
	// returning errors, so the group never aborts.
	var (
		rel   model.SourceReliability
		facts model.ExtractedFacts
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rel = p.assessor.Assess(gCtx, a.SourceURL, content)
		return nil
	})
	g.Go(func() error {
		facts = p.extractor.Extract(gCtx, content)
		return nil
	})
	_ = g.Wait()

	result = p.reconciler.Reconcile(ctx, a, facts, rel)

	zap.L().Info("verify: announcement verified",
		zap.String("company", a.CompanyName),
		zap.String("status", string(result.Status)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("discrepancies", len(result.Discrepancies)),
	)
	return result, false
}

func (p *Pipeline) unverifiable(a model.Announcement, note string) model.VerificationResult {
	return model.VerificationResult{
		VerificationID: uuid.NewString(),
		AnnouncementID: a.ID,
		CompanyName:    a.CompanyName,
		Status:         model.StatusUnverified,
		Confidence:     0.0,
		SourceURL:      a.SourceURL,
		Notes:          note,
		VerifiedAt:     p.now().UTC(),
	}
}
