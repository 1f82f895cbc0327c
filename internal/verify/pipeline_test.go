package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/extract"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/reconcile"
	"github.com/sells-group/verify-cli/internal/reliability"
	"github.com/sells-group/verify-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: 1, MaxBackoff: 1, Multiplier: 2}
}

func stubPipeline(o *StubOracle, f Fetcher) *Pipeline {
	return NewPipeline(
		f,
		reliability.NewAssessor(o, nil, fastRetry()),
		extract.NewExtractor(o, fastRetry()),
		reconcile.New(o, fastRetry()),
	)
}

func sampleAnnouncement() model.Announcement {
	return model.Announcement{
		ID:          "a-1",
		CompanyName: "Acme",
		Amount:      100,
		RoundType:   "SERIES B",
		Year:        2024,
		Month:       5,
		SourceURL:   "https://techcrunch.com/acme-raises",
	}
}

func TestVerifyOne_EndToEndVerified(t *testing.T) {
	o := &StubOracle{
		ReliabilityText: "Domain: techcrunch.com\nScore: 0.9\nVerified: yes",
		ExtractionText:  "Company name: Acme Inc\nFunding amount: $100 million\nRound type: B\nAnnouncement date: 2024-05-01\nInvestors: none",
		ComparisonText:  "Discrepancies: none\nVerification Status: VERIFIED\nConfidence Score: 0.95\nNotes: Source confirms the announcement.",
	}
	p := stubPipeline(o, &StubFetcher{Content: "Acme Inc raised $100M Series B on May 1 2024."})

	result, failed := p.VerifyOne(context.Background(), sampleAnnouncement())

	assert.False(t, failed)
	assert.Equal(t, model.StatusVerified, result.Status)
	// Oracle confidence scaled by blended source reliability.
	assert.InDelta(t, 0.95*(0.7*0.9+0.3*0.9), result.Confidence, 1e-9)
	assert.Equal(t, "a-1", result.AnnouncementID)
	assert.Empty(t, result.Discrepancies)
	require.NotNil(t, result.Reliability)
	assert.Equal(t, "techcrunch.com", result.Reliability.Domain)
	assert.True(t, result.Reliability.IsVerifiedPublisher)
}

func TestVerifyOne_FetchFailureIsUnverified(t *testing.T) {
	o := &StubOracle{}
	p := stubPipeline(o, &StubFetcher{Err: errors.New("connection refused")})

	result, failed := p.VerifyOne(context.Background(), sampleAnnouncement())

	assert.True(t, failed)
	assert.Equal(t, model.StatusUnverified, result.Status)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Contains(t, result.Notes, "Could not fetch source content")
	assert.NotEmpty(t, result.VerificationID)
	// No oracle calls when there is nothing to analyze.
	assert.Zero(t, o.Calls())
}

func TestVerifyOne_MissingSourceURLIsUnverified(t *testing.T) {
	o := &StubOracle{}
	p := stubPipeline(o, &StubFetcher{})

	a := sampleAnnouncement()
	a.SourceURL = ""
	result, failed := p.VerifyOne(context.Background(), a)

	assert.True(t, failed)
	assert.Equal(t, model.StatusUnverified, result.Status)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Contains(t, result.Notes, "No source URL")
	assert.Zero(t, o.Calls())
}

func TestVerifyOne_OracleFailureDegradesGracefully(t *testing.T) {
	o := &StubOracle{Err: errors.New("oracle down")}
	p := stubPipeline(o, &StubFetcher{Content: "some article"})

	result, failed := p.VerifyOne(context.Background(), sampleAnnouncement())

	// Degraded stages still produce a real verification, not a failure.
	assert.False(t, failed)

	// Every stage degraded: default reliability, minimal facts, deterministic
	// comparison. The result still lands with a status and notes.
	assert.Equal(t, model.StatusUnverified, result.Status)
	assert.NotEmpty(t, result.Discrepancies)
	assert.Contains(t, result.Notes, "Source Reliability:")
}
