// Package ingest loads funding announcements from CSV and Excel files.
//
// Rows that fail validation (empty company name, negative amount) are
// logged and skipped; they never fail the load.
package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
)

// csvAnnouncement mirrors the input file column layout.
type csvAnnouncement struct {
	ID          string  `csv:"id,omitempty"`
	CompanyName string  `csv:"company_name"`
	CompanyURL  string  `csv:"company_url,omitempty"`
	RoundType   string  `csv:"round_type"`
	Amount      float64 `csv:"amount_usd_m"`
	Year        int     `csv:"year"`
	Month       int     `csv:"month,omitempty"`
	Investors   string  `csv:"investors,omitempty"`
	SourceURL   string  `csv:"source_url,omitempty"`
}

// LoadCSV reads announcements from a CSV file with a header row.
func LoadCSV(path string) ([]model.Announcement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}

	var announcements []model.Announcement
	for {
		var row csvAnnouncement
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			zap.L().Warn("ingest: skipping malformed csv row", zap.Error(err))
			continue
		}

		a, ok := validate(toAnnouncement(row))
		if !ok {
			continue
		}
		announcements = append(announcements, a)
	}

	zap.L().Info("ingest: loaded csv",
		zap.String("path", path),
		zap.Int("announcements", len(announcements)),
	)
	return announcements, nil
}

func toAnnouncement(row csvAnnouncement) model.Announcement {
	return model.Announcement{
		ID:          strings.TrimSpace(row.ID),
		CompanyName: strings.TrimSpace(row.CompanyName),
		CompanyURL:  strings.TrimSpace(row.CompanyURL),
		RoundType:   strings.TrimSpace(row.RoundType),
		Amount:      row.Amount,
		Year:        row.Year,
		Month:       row.Month,
		Investors:   splitInvestors(row.Investors),
		SourceURL:   strings.TrimSpace(row.SourceURL),
	}
}

// validate enforces row invariants, substituting where recoverable: a
// missing id falls back to the company name (the original checkpoint
// identity); an empty company or negative amount rejects the row.
func validate(a model.Announcement) (model.Announcement, bool) {
	if a.CompanyName == "" {
		zap.L().Warn("ingest: rejecting row with empty company name", zap.String("id", a.ID))
		return a, false
	}
	if a.Amount < 0 {
		zap.L().Warn("ingest: rejecting row with negative amount",
			zap.String("company", a.CompanyName),
			zap.Float64("amount", a.Amount),
		)
		return a, false
	}
	if a.ID == "" {
		a.ID = a.CompanyName
	}
	return a, true
}

func splitInvestors(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, ";") {
		sep = ";"
	}
	var investors []string
	for _, inv := range strings.Split(raw, sep) {
		if inv = strings.TrimSpace(inv); inv != "" {
			investors = append(investors, inv)
		}
	}
	return investors
}
