package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name          string
		confidence    float64
		discrepancies int
		want          VerificationStatus
	}{
		{"high confidence clean", 0.9, 0, StatusVerified},
		{"threshold confidence clean", 0.8, 0, StatusVerified},
		{"high confidence with discrepancy", 0.9, 1, StatusPartiallyVerified},
		{"mid confidence", 0.6, 1, StatusPartiallyVerified},
		{"mid confidence at discrepancy cap", 0.6, 2, StatusPartiallyVerified},
		{"low confidence", 0.49, 0, StatusUnverified},
		{"too many discrepancies", 0.9, 3, StatusUnverified},
		{"zero confidence", 0.0, 0, StatusUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.confidence, tt.discrepancies))
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.3))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.42, Clamp01(0.42))
}

func TestReportedDate(t *testing.T) {
	a := Announcement{Year: 2024, Month: 5}
	assert.Equal(t, "2024-05-01", a.ReportedDate())

	// Missing month defaults to January.
	a = Announcement{Year: 2023}
	assert.Equal(t, "2023-01-01", a.ReportedDate())
}
