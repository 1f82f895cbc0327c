package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/pkg/oracle"
)

type fakeOracle struct {
	text string
	err  error
}

func (f *fakeOracle) Complete(_ context.Context, _ oracle.CompletionRequest) (*oracle.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &oracle.CompletionResponse{Text: f.text}, nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: 1, MaxBackoff: 1, Multiplier: 2}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	}
}

func matchingPair() (model.Announcement, model.ExtractedFacts) {
	reported := model.Announcement{
		ID:          "a-1",
		CompanyName: "Acme",
		Amount:      100,
		RoundType:   "SERIES B",
		Year:        2024,
		Month:       5,
		SourceURL:   "https://techcrunch.com/acme",
	}
	extracted := model.ExtractedFacts{
		CompanyName: "Acme Inc",
		Amount:      100,
		RoundType:   "SERIES B",
		Date:        "2024-05-01",
	}
	return reported, extracted
}

func TestReconcile_OraclePathVerified(t *testing.T) {
	o := &fakeOracle{text: "Discrepancies: none\nVerification Status: VERIFIED\nConfidence Score: 0.95\nNotes: Everything lines up."}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9, IsVerifiedPublisher: true}

	result := r.Reconcile(context.Background(), reported, extracted, rel)

	assert.Equal(t, model.StatusVerified, result.Status)
	assert.InDelta(t, 0.95*0.9, result.Confidence, 1e-9)
	assert.Equal(t, "a-1", result.AnnouncementID)
	assert.Equal(t, "Everything lines up.", result.Notes)
	assert.NotEmpty(t, result.VerificationID)
	require.NotNil(t, result.Reliability)
	assert.Equal(t, "techcrunch.com", result.Reliability.Domain)
	assert.Equal(t, fixedClock()().UTC(), result.VerifiedAt)
}

func TestReconcile_UnreliableSourceCapsConfidence(t *testing.T) {
	o := &fakeOracle{text: "Verification Status: VERIFIED\nConfidence Score: 0.95\nNotes: Looks clean."}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	rel := model.SourceReliability{Domain: "rumor.blog", Score: 0.3}

	result := r.Reconcile(context.Background(), reported, extracted, rel)

	assert.InDelta(t, 0.95*0.3, result.Confidence, 1e-9)
	assert.Equal(t, model.StatusUnverified, result.Status)
}

func TestReconcile_OracleFailureFallsBackToDeterministic(t *testing.T) {
	o := &fakeOracle{err: errors.New("oracle down")}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9, IsVerifiedPublisher: true}

	result := r.Reconcile(context.Background(), reported, extracted, rel)

	// Clean deterministic comparison: factor 1.0 times reliability.
	assert.Empty(t, result.Discrepancies)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, model.StatusVerified, result.Status)
	assert.Contains(t, result.Notes, "Source Reliability: techcrunch.com")
}

func TestReconcile_UnparseableReplyFallsBackToDeterministic(t *testing.T) {
	o := &fakeOracle{text: "As an analysis, the two announcements seem broadly similar."}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	extracted.RoundType = "SERIES C"
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9, IsVerifiedPublisher: true}

	result := r.Reconcile(context.Background(), reported, extracted, rel)

	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, "round_type", result.Discrepancies[0].Field)
	// factor (1 - 0.4*0.8) times reliability 0.9.
	assert.InDelta(t, (1-0.4*0.8)*0.9, result.Confidence, 1e-9)
	assert.Equal(t, model.StatusPartiallyVerified, result.Status)
}

func TestReconcile_DeterministicPathIsIdempotent(t *testing.T) {
	o := &fakeOracle{err: errors.New("oracle down")}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	extracted.RoundType = "SERIES C"
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9, IsVerifiedPublisher: true}

	first := r.Reconcile(context.Background(), reported, extracted, rel)
	second := r.Reconcile(context.Background(), reported, extracted, rel)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Discrepancies, second.Discrepancies)
	assert.Equal(t, first.Notes, second.Notes)
	// Identity fields differ per run by design.
	assert.NotEqual(t, first.VerificationID, second.VerificationID)
}

func TestReconcile_DedupesDiscrepanciesByField(t *testing.T) {
	o := &fakeOracle{text: `Discrepancies:
- amount: 100 vs 150 impact 0.6
- Amount: 100 vs 150 impact 0.5
Verification Status: UNVERIFIED
Confidence Score: 0.4
Notes: duplicate listing`}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9}

	result := r.Reconcile(context.Background(), reported, extracted, rel)

	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, 0.6, result.Discrepancies[0].Impact)
}

func TestReconcile_DefaultNotes(t *testing.T) {
	o := &fakeOracle{text: "Verification Status: VERIFIED\nConfidence Score: 0.9"}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9}

	result := r.Reconcile(context.Background(), reported, extracted, rel)
	assert.Equal(t, "No detailed notes provided.", result.Notes)
}

func TestReconcile_DateDefaultedNoteAppended(t *testing.T) {
	o := &fakeOracle{text: `Discrepancies:
- date: 2024-05-01 vs 2025-06-01 impact 0.3
Verification Status: UNVERIFIED
Confidence Score: 0.5
Notes: date mismatch`}
	r := New(o, fastRetry()).WithClock(fixedClock())
	reported, extracted := matchingPair()
	extracted.Date = "2025-06-01"
	extracted.DateDefaulted = true
	rel := model.SourceReliability{Domain: "techcrunch.com", Score: 0.9}

	result := r.Reconcile(context.Background(), reported, extracted, rel)

	assert.Contains(t, result.Notes, "date mismatch")
	assert.Contains(t, result.Notes, "unparseable and defaulted")
}
