// Package reconcile compares reported against extracted funding facts,
// emitting weighted discrepancies and an overall confidence score.
//
// The oracle comparison is the primary path; a deterministic field-by-field
// comparator serves as the verifiable fallback when the oracle is
// unavailable or its reply cannot be parsed.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/pkg/oracle"
)

// Reconciler aggregates discrepancies, confidence, and status into the
// terminal VerificationResult.
type Reconciler struct {
	oracle oracle.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// New creates a Reconciler.
func New(client oracle.Client, retry resilience.RetryConfig) *Reconciler {
	return &Reconciler{
		oracle: client,
		retry:  retry,
		now:    time.Now,
	}
}

// WithClock overrides the timestamp clock.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile produces the verification result for one announcement given the
// extracted facts and the source assessment. It never returns an error:
// oracle failure degrades to the deterministic comparator.
func (r *Reconciler) Reconcile(ctx context.Context, reported model.Announcement, extracted model.ExtractedFacts, rel model.SourceReliability) model.VerificationResult {
	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger("oracle", "reconcile announcement")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*oracle.CompletionResponse, error) {
		return r.oracle.Complete(ctx, oracle.CompletionRequest{
			System: "You compare funding announcements against source articles. Answer in the exact line format requested.",
			Prompt: r.prompt(reported, extracted),
		})
	})

	var cmp comparison
	parsed := false
	if err == nil {
		cmp, parsed = parseComparison(resp.Text)
	}
	if err != nil || !parsed {
		if err != nil {
			zap.L().Warn("reconcile: oracle comparison failed, using deterministic comparator",
				zap.String("company", reported.CompanyName),
				zap.Error(err),
			)
		} else {
			zap.L().Warn("reconcile: unparseable oracle reply, using deterministic comparator",
				zap.String("company", reported.CompanyName),
			)
		}
		cmp = compareFacts(reported, extracted, rel)
	}

	// Couple textual-comparison confidence with source trust: a clean
	// comparison from an unreliable source still scores low.
	overall := model.Clamp01(cmp.Confidence * rel.Score)

	discrepancies := dedupeByField(cmp.Discrepancies)
	status := model.StatusFor(overall, len(discrepancies))

	notes := cmp.Notes
	if notes == "" {
		notes = "No detailed notes provided."
	}
	if extracted.DateDefaulted && hasField(discrepancies, "date") {
		notes += "\nNote: extracted date was unparseable and defaulted to the run date."
	}

	return model.VerificationResult{
		VerificationID: uuid.New().String(),
		AnnouncementID: reported.ID,
		CompanyName:    reported.CompanyName,
		Status:         status,
		Confidence:     overall,
		SourceURL:      reported.SourceURL,
		Reliability:    &rel,
		Discrepancies:  discrepancies,
		Notes:          notes,
		VerifiedAt:     r.now().UTC(),
	}
}

func (r *Reconciler) prompt(reported model.Announcement, extracted model.ExtractedFacts) string {
	return fmt.Sprintf(`Analyze and compare these funding announcement details:

REPORTED DETAILS:
Company: %s
Amount: $%.1fM
Round Type: %s
Date: %s

EXTRACTED DETAILS:
Company: %s
Amount: $%.1fM
Round Type: %s
Date: %s

Identify any discrepancies between the reported and extracted information,
assess the severity of each, and determine whether the differences are
significant enough to affect verification.

Return the analysis in this format:
Discrepancies: [one line per discrepancy: field: reported vs extracted impact 0-1]
Verification Status: [VERIFIED/UNVERIFIED]
Confidence Score: [0-1]
Notes: [explanation]`,
		reported.CompanyName, reported.Amount, reported.RoundType, reported.ReportedDate(),
		extracted.CompanyName, extracted.Amount, extracted.RoundType, extracted.Date,
	)
}

func hasField(discrepancies []model.Discrepancy, field string) bool {
	for _, d := range discrepancies {
		if strings.EqualFold(d.Field, field) {
			return true
		}
	}
	return false
}

// dedupeByField keeps the first discrepancy per field: one entry per
// divergent field per run, never duplicated.
func dedupeByField(in []model.Discrepancy) []model.Discrepancy {
	seen := make(map[string]bool, len(in))
	out := make([]model.Discrepancy, 0, len(in))
	for _, d := range in {
		key := strings.ToLower(d.Field)
		if seen[key] {
			continue
		}
		seen[key] = true
		d.Impact = model.Clamp01(d.Impact)
		out = append(out, d)
	}
	return out
}
