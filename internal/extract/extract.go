// Package extract pulls structured funding facts out of raw source content
// via the oracle, with defensive parsing and graceful degradation.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/pkg/oracle"
)

// Extractor invokes the oracle to extract funding facts from content.
// Extraction is best-effort: on total oracle failure or unparseable output
// it returns minimal facts rather than failing the item.
type Extractor struct {
	oracle oracle.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewExtractor creates an Extractor.
func NewExtractor(client oracle.Client, retry resilience.RetryConfig) *Extractor {
	return &Extractor{
		oracle: client,
		retry:  retry,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for the unparseable-date fallback.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract derives structured facts from content.
func (e *Extractor) Extract(ctx context.Context, content string) model.ExtractedFacts {
	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("oracle", "extract funding details")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*oracle.CompletionResponse, error) {
		return e.oracle.Complete(ctx, oracle.CompletionRequest{
			System: "You are a precise funding-details extractor. Answer in the exact line format requested.",
			Prompt: e.prompt(content),
		})
	})
	if err != nil {
		zap.L().Warn("extract: oracle extraction failed, returning minimal facts", zap.Error(err))
		return e.minimalFacts()
	}

	return e.parse(resp.Text)
}

func (e *Extractor) prompt(content string) string {
	return fmt.Sprintf(`Extract funding announcement information from this content:
%s

Analyze the text carefully and identify the company, the funding amount, the
round, the announcement date, and any investors mentioned.

Return the core details in this exact format:
Company name: [full legal name]
Funding amount: [number in millions USD]
Round type: [seed/series A/B/etc]
Announcement date: [YYYY-MM-DD]
Investors: [comma-separated list, or none]
Description: [one-sentence description of the company]`, content)
}

// parse maps the oracle's labeled-line reply onto ExtractedFacts. Lines are
// split on the first colon; unknown labels are ignored. Field-level parse
// failures substitute defaults instead of propagating.
func (e *Extractor) parse(text string) model.ExtractedFacts {
	details := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		key = strings.ReplaceAll(key, " ", "_")
		details[key] = strings.TrimSpace(value)
	}

	amount, err := CleanAmount(details["funding_amount"])
	if err != nil {
		zap.L().Debug("extract: unparseable amount, defaulting to 0",
			zap.String("raw", details["funding_amount"]),
		)
		amount = 0
	}

	date, defaulted := e.parseDate(details["announcement_date"])

	var investors []string
	if raw := details["investors"]; raw != "" && !strings.EqualFold(raw, "none") {
		for _, inv := range strings.Split(raw, ",") {
			if inv = strings.TrimSpace(inv); inv != "" {
				investors = append(investors, inv)
			}
		}
	}

	return model.ExtractedFacts{
		CompanyName:   details["company_name"],
		Amount:        amount,
		RoundType:     NormalizeRound(details["round_type"]),
		Date:          date,
		DateDefaulted: defaulted,
		Investors:     investors,
		Description:   details["description"],
	}
}

// parseDate accepts YYYY-MM-DD; anything else falls back to the current date
// with the defaulted flag set, so downstream reporting can surface that the
// extracted date was unparseable rather than silently trusting it.
func (e *Extractor) parseDate(raw string) (string, bool) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("2006-01-02"), false
	}
	return e.now().UTC().Format("2006-01-02"), true
}

func (e *Extractor) minimalFacts() model.ExtractedFacts {
	return model.ExtractedFacts{
		Amount:        0,
		RoundType:     RoundUnspecified,
		Date:          e.now().UTC().Format("2006-01-02"),
		DateDefaulted: true,
	}
}
