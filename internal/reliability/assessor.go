// Package reliability scores a source's trustworthiness from domain
// reputation plus oracle-assessed content quality.
package reliability

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/pkg/oracle"
)

// DefaultReputation maps known publisher domains to base reliability scores.
// Unknown domains score 0.5. Overridable through config.
func DefaultReputation() map[string]float64 {
	return map[string]float64{
		"techcrunch.com":   0.9,
		"reuters.com":      0.95,
		"bloomberg.com":    0.95,
		"wsj.com":          0.95,
		"venturebeat.com":  0.85,
		"crunchbase.com":   0.85,
		"forbes.com":       0.85,
		"businesswire.com": 0.8,
		"prnewswire.com":   0.8,
	}
}

const unknownDomainScore = 0.5

// Weights blending static domain reputation against the oracle's qualitative
// content signal.
const (
	reputationWeight = 0.7
	qualityWeight    = 0.3
)

// Assessor consults the oracle for qualitative source signals and combines
// them with the static reputation table. Assessment is best-effort: it never
// returns an error, only conservative defaults.
type Assessor struct {
	oracle     oracle.Client
	reputation map[string]float64
	retry      resilience.RetryConfig
	sampleLen  int
}

// NewAssessor creates an Assessor. A nil reputation table gets the defaults.
func NewAssessor(client oracle.Client, reputation map[string]float64, retry resilience.RetryConfig) *Assessor {
	if reputation == nil {
		reputation = DefaultReputation()
	}
	return &Assessor{
		oracle:     client,
		reputation: reputation,
		retry:      retry,
		sampleLen:  1000,
	}
}

// Assess scores the source at rawURL given its fetched content.
func (a *Assessor) Assess(ctx context.Context, rawURL, content string) model.SourceReliability {
	domain := domainOf(rawURL)

	cfg := a.retry
	cfg.OnRetry = resilience.RetryLogger("oracle", "assess source reliability")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*oracle.CompletionResponse, error) {
		return a.oracle.Complete(ctx, oracle.CompletionRequest{
			System: "You are a news-source quality assessor. Answer in the exact line format requested.",
			Prompt: a.prompt(rawURL, content),
		})
	})
	if err != nil {
		zap.L().Warn("reliability: oracle assessment failed, using defaults",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return model.SourceReliability{
			Domain:              domain,
			Score:               unknownDomainScore,
			IsVerifiedPublisher: false,
		}
	}

	parsed := parseAssessment(resp.Text)

	if parsed.Domain != "" {
		domain = parsed.Domain
	}

	base, known := a.reputation[domain]
	if !known {
		base = unknownDomainScore
	}

	score := model.Clamp01(reputationWeight*base + qualityWeight*parsed.Score)

	return model.SourceReliability{
		Domain:              domain,
		Score:               score,
		IsVerifiedPublisher: known || parsed.Verified,
	}
}

func (a *Assessor) prompt(rawURL, content string) string {
	sample := content
	if len(sample) > a.sampleLen {
		sample = sample[:a.sampleLen] + "..."
	}

	return fmt.Sprintf(`Perform a comprehensive analysis of this news source:

URL: %s
Content Sample: %s

Evaluate domain reputation, content quality (writing professionalism,
specific details, quotes and sourcing, balance), and verification status
(verified publisher, author attribution, cited sources).

Return the analysis in this format:
Domain: [canonical domain name]
Score: [0-1 reliability score]
Verified: [yes/no]
Detailed Assessment:
[bullet points with key findings]`, rawURL, sample)
}

// assessment is the strict schema the oracle's free-form reply is parsed
// into. Missing or malformed fields take documented defaults.
type assessment struct {
	Domain   string
	Score    float64
	Verified bool
}

// parseAssessment maps the oracle's labeled-line reply onto an assessment.
// Malformed score lines default to 0.5; absence of a verified signal
// defaults to false.
func parseAssessment(text string) assessment {
	out := assessment{Score: unknownDomainScore}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Score:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "Score:"))
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out.Score = model.Clamp01(v)
			}
		case strings.HasPrefix(line, "Verified:"):
			out.Verified = strings.Contains(strings.ToLower(line), "yes")
		case strings.HasPrefix(line, "Domain:"):
			out.Domain = strings.TrimSpace(strings.TrimPrefix(line, "Domain:"))
		}
	}

	return out
}

// domainOf extracts the host from a URL, falling back to the raw string on
// parse failure. A www. prefix is stripped so reputation lookups match.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}
