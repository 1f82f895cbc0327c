package verify

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/sells-group/verify-cli/pkg/oracle"
)

// StubOracle implements oracle.Client without network access. It routes
// each request to a canned reply by recognizing which pipeline stage
// built the prompt, so offline runs and tests get deterministic oracle
// behavior.
type StubOracle struct {
	// ReliabilityText, ExtractionText and ComparisonText override the
	// canned reply per stage. Empty fields use plausible defaults.
	ReliabilityText string
	ExtractionText  string
	ComparisonText  string

	// Err, when set, fails every call. Useful for exercising the
	// pipeline's degradation paths.
	Err error

	calls atomic.Int64
}

// Calls reports how many completions the stub has served.
func (s *StubOracle) Calls() int64 { return s.calls.Load() }

func (s *StubOracle) Complete(_ context.Context, req oracle.CompletionRequest) (*oracle.CompletionResponse, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}

	var text string
	switch {
	case strings.Contains(req.Prompt, "REPORTED DETAILS"):
		text = s.ComparisonText
		if text == "" {
			text = "Discrepancies: none\nVerification Status: VERIFIED\nConfidence Score: 0.9\nNotes: Stub comparison."
		}
	case strings.Contains(req.Prompt, "news source"):
		text = s.ReliabilityText
		if text == "" {
			text = "Domain: stub.example.com\nScore: 0.9\nVerified: yes"
		}
	default:
		text = s.ExtractionText
		if text == "" {
			text = "Company name: Stub Co\nFunding amount: 10\nRound type: Series A\nAnnouncement date: 2024-01-15\nInvestors: Stub Capital\nDescription: Stub announcement."
		}
	}

	return &oracle.CompletionResponse{
		Text:  text,
		Model: "stub",
		Usage: oracle.TokenUsage{InputTokens: int64(len(req.Prompt) / 4)},
	}, nil
}

// StubFetcher returns fixed content for every URL.
type StubFetcher struct {
	Content string
	Err     error
}

func (s *StubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Content == "" {
		return "Stub Co announced a $10 million Series A round.", nil
	}
	return s.Content, nil
}
