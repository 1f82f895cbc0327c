package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/verify-cli/internal/model"
)

// csvResult is the flat row shape for CSV export.
type csvResult struct {
	VerificationID string  `csv:"verification_id"`
	AnnouncementID string  `csv:"announcement_id"`
	Company        string  `csv:"company"`
	Status         string  `csv:"verification_status"`
	Confidence     float64 `csv:"overall_confidence"`
	SourceURL      string  `csv:"source_url"`
	Domain         string  `csv:"source_domain"`
	SourceScore    float64 `csv:"source_score"`
	Discrepancies  string  `csv:"discrepancies"`
	Notes          string  `csv:"verification_notes"`
	VerifiedAt     string  `csv:"verified_at"`
}

// ExportCSV writes results to a CSV file at path, one row per verification.
// Discrepancy lists are embedded as JSON.
func ExportCSV(path string, results []model.VerificationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv file")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)

	for _, r := range results {
		discrepancies, err := json.Marshal(r.Discrepancies)
		if err != nil {
			return eris.Wrap(err, "export: marshal discrepancies")
		}

		row := csvResult{
			VerificationID: r.VerificationID,
			AnnouncementID: r.AnnouncementID,
			Company:        r.CompanyName,
			Status:         string(r.Status),
			Confidence:     r.Confidence,
			SourceURL:      r.SourceURL,
			Discrepancies:  string(discrepancies),
			Notes:          r.Notes,
			VerifiedAt:     r.VerifiedAt.Format("2006-01-02 15:04:05"),
		}
		if r.Reliability != nil {
			row.Domain = r.Reliability.Domain
			row.SourceScore = r.Reliability.Score
		}

		if err := enc.Encode(row); err != nil {
			return eris.Wrapf(err, "export: encode row %s", r.VerificationID)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// FormatSummary renders a run summary as aligned text for terminal output.
func FormatSummary(s model.RunSummary) string {
	out := fmt.Sprintf(
		"run %s\n  total: %d  processed: %d  verified: %d  errors: %d\n  mean confidence: %.2f\n",
		s.RunID, s.Total, s.Processed, s.Verified, s.Errors, s.MeanConfidence,
	)
	for _, status := range []model.VerificationStatus{model.StatusVerified, model.StatusPartiallyVerified, model.StatusUnverified} {
		if n, ok := s.ByStatus[status]; ok {
			out += fmt.Sprintf("  %s: %d\n", status, n)
		}
	}
	return out
}
