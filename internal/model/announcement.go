package model

import "time"

// Announcement is a self-reported funding claim under verification.
// Immutable once loaded from an input file.
type Announcement struct {
	ID          string   `json:"id"`
	CompanyName string   `json:"company_name"`
	CompanyURL  string   `json:"company_url"`
	RoundType   string   `json:"round_type"`
	Amount      float64  `json:"amount"` // USD millions
	Year        int      `json:"year"`
	Month       int      `json:"month,omitempty"`
	Investors   []string `json:"investors,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// ReportedDate renders the claimed timing as YYYY-MM-DD. Announcements carry
// year and optional month only; missing month defaults to January, day to the
// first.
func (a Announcement) ReportedDate() string {
	month := a.Month
	if month == 0 {
		month = 1
	}
	return time.Date(a.Year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// ExtractedFacts holds structured funding facts pulled out of source content
// by the oracle. Produced fresh per verification attempt and never mutated.
type ExtractedFacts struct {
	CompanyName   string   `json:"company_name"`
	Amount        float64  `json:"amount"` // USD millions
	RoundType     string   `json:"round_type"`
	Date          string   `json:"date"` // YYYY-MM-DD
	DateDefaulted bool     `json:"date_defaulted,omitempty"`
	Investors     []string `json:"investors,omitempty"`
	Description   string   `json:"description,omitempty"`
}
