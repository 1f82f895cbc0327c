package reconcile

import (
	"strconv"
	"strings"

	"github.com/sells-group/verify-cli/internal/model"
)

// defaultImpact is assigned when the oracle lists a discrepancy without an
// explicit impact score, or the score is malformed.
const defaultImpact = 0.2

// comparison is the strict schema the oracle's comparison reply is parsed
// into.
type comparison struct {
	Discrepancies []model.Discrepancy
	Confidence    float64
	Notes         string
}

// parseComparison maps the oracle's sectioned reply onto a comparison.
// Returns ok=false when the reply carries neither a confidence score nor a
// verification status, in which case the caller falls back to the
// deterministic comparator.
func parseComparison(text string) (comparison, bool) {
	out := comparison{Confidence: 0.5}

	var (
		section   string
		notes     []string
		sawSignal bool
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Discrepancies:"):
			section = "discrepancies"
		case strings.HasPrefix(line, "Verification Status:"):
			section = ""
			sawSignal = true
		case strings.HasPrefix(line, "Confidence Score:"):
			section = ""
			sawSignal = true
			raw := strings.TrimSpace(strings.TrimPrefix(line, "Confidence Score:"))
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out.Confidence = model.Clamp01(v)
			}
		case strings.HasPrefix(line, "Notes:"):
			section = "notes"
			if rest := strings.TrimSpace(strings.TrimPrefix(line, "Notes:")); rest != "" {
				notes = append(notes, rest)
			}
		case line != "" && section == "discrepancies":
			if d, ok := parseDiscrepancyLine(line); ok {
				out.Discrepancies = append(out.Discrepancies, d)
			}
		case line != "" && section == "notes":
			notes = append(notes, line)
		}
	}

	out.Notes = strings.Join(notes, "\n")
	return out, sawSignal
}

// parseDiscrepancyLine recovers a discrepancy from a line shaped like
// "amount: 10.0 vs 12.5 impact 0.6". The field precedes the first colon;
// reported and extracted values straddle "vs"; an explicit impact token
// drives the impact score, defaulting otherwise.
func parseDiscrepancyLine(line string) (model.Discrepancy, bool) {
	field, rest, ok := strings.Cut(line, ":")
	if !ok {
		return model.Discrepancy{}, false
	}
	field = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(field), "-"))
	rest = strings.TrimSpace(rest)
	if field == "" || rest == "" {
		return model.Discrepancy{}, false
	}

	impact := defaultImpact
	values := rest
	if idx := strings.Index(strings.ToLower(rest), "impact"); idx >= 0 {
		values = strings.TrimRight(strings.TrimSpace(rest[:idx]), "( ")
		rawImpact := strings.TrimSpace(rest[idx+len("impact"):])
		rawImpact = strings.Trim(rawImpact, ":() ")
		if fields := strings.Fields(rawImpact); len(fields) > 0 {
			if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
				impact = model.Clamp01(v)
			}
		}
	}

	reported := values
	extracted := ""
	if idx := strings.Index(strings.ToLower(values), " vs "); idx >= 0 {
		reported = strings.TrimSpace(values[:idx])
		extracted = strings.TrimSpace(values[idx+len(" vs "):])
	}

	return model.Discrepancy{
		Field:          field,
		ReportedValue:  reported,
		ExtractedValue: extracted,
		Impact:         impact,
	}, true
}
