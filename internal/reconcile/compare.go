package reconcile

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/verify-cli/internal/model"
)

// Deterministic comparator impact weights, by materiality of the field.
const (
	companyImpact = 0.8
	amountImpact  = 0.6
	roundImpact   = 0.4
	dateImpact    = 0.3

	// amountTolerance is the relative difference beyond which reported and
	// extracted amounts are considered divergent. Exactly 5% is tolerated.
	amountTolerance = 0.05

	// discrepancyPenalty scales how much the worst discrepancy reduces
	// confidence on the deterministic path.
	discrepancyPenalty = 0.8
)

// corporate suffixes ignored when comparing company names, so "Acme" and
// "Acme Inc" reconcile cleanly.
var corporateSuffixes = []string{"inc", "llc", "ltd", "corp", "corporation", "co", "company", "plc", "gmbh"}

// compareFacts is the deterministic fallback comparator: field-by-field
// comparison with fixed impact weights, confidence derived from source
// reliability reduced by the worst discrepancy.
func compareFacts(reported model.Announcement, extracted model.ExtractedFacts, rel model.SourceReliability) comparison {
	var discrepancies []model.Discrepancy

	if !sameCompany(reported.CompanyName, extracted.CompanyName) {
		discrepancies = append(discrepancies, model.Discrepancy{
			Field:          "company",
			ReportedValue:  reported.CompanyName,
			ExtractedValue: extracted.CompanyName,
			Impact:         companyImpact,
		})
	}

	if amountDiverges(reported.Amount, extracted.Amount) {
		discrepancies = append(discrepancies, model.Discrepancy{
			Field:          "amount",
			ReportedValue:  fmt.Sprintf("%.1f", reported.Amount),
			ExtractedValue: fmt.Sprintf("%.1f", extracted.Amount),
			Impact:         amountImpact,
		})
	}

	if !strings.EqualFold(strings.TrimSpace(reported.RoundType), strings.TrimSpace(extracted.RoundType)) {
		discrepancies = append(discrepancies, model.Discrepancy{
			Field:          "round_type",
			ReportedValue:  reported.RoundType,
			ExtractedValue: extracted.RoundType,
			Impact:         roundImpact,
		})
	}

	if reported.ReportedDate() != extracted.Date {
		discrepancies = append(discrepancies, model.Discrepancy{
			Field:          "date",
			ReportedValue:  reported.ReportedDate(),
			ExtractedValue: extracted.Date,
			Impact:         dateImpact,
		})
	}

	// Reduce confidence by the worst discrepancy. The caller multiplies by
	// the reliability score, so confidence here is the discrepancy factor
	// alone.
	factor := 1.0
	if len(discrepancies) > 0 {
		maxImpact := 0.0
		for _, d := range discrepancies {
			maxImpact = math.Max(maxImpact, d.Impact)
		}
		factor = 1 - maxImpact*discrepancyPenalty
	}

	return comparison{
		Discrepancies: discrepancies,
		Confidence:    model.Clamp01(factor),
		Notes:         deterministicNotes(discrepancies, rel),
	}
}

// sameCompany compares core company names case-insensitively, ignoring
// punctuation and trailing corporate suffixes.
func sameCompany(reported, extracted string) bool {
	return coreName(reported) == coreName(extracted)
}

func coreName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, r := range []string{",", ".", ";"} {
		s = strings.ReplaceAll(s, r, "")
	}

	words := strings.Fields(s)
	for len(words) > 1 {
		last := words[len(words)-1]
		isSuffix := false
		for _, suffix := range corporateSuffixes {
			if last == suffix {
				isSuffix = true
				break
			}
		}
		if !isSuffix {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// amountDiverges reports whether the relative difference exceeds the 5%
// tolerance. A zero reported amount diverges from any non-zero extraction.
func amountDiverges(reported, extracted float64) bool {
	if reported == 0 {
		return extracted != 0
	}
	diff := math.Abs(reported-extracted) / reported
	return diff > amountTolerance
}

func deterministicNotes(discrepancies []model.Discrepancy, rel model.SourceReliability) string {
	publisher := "Unverified"
	if rel.IsVerifiedPublisher {
		publisher = "Verified"
	}

	notes := []string{
		fmt.Sprintf("Source Reliability: %s (%s publisher, Score: %.2f)", rel.Domain, publisher, rel.Score),
	}

	if len(discrepancies) == 0 {
		notes = append(notes, "No discrepancies found.")
		return strings.Join(notes, "\n")
	}

	notes = append(notes, "Discrepancies found:")
	for _, d := range discrepancies {
		notes = append(notes, fmt.Sprintf("- %s: Reported '%s' vs. Extracted '%s' (Impact: %.2f)",
			d.Field, d.ReportedValue, d.ExtractedValue, d.Impact))
	}
	return strings.Join(notes, "\n")
}
