package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComparison_WellFormed(t *testing.T) {
	text := `Discrepancies:
- amount: 100.0 vs 120.0 impact 0.6
- date: 2024-05-01 vs 2024-06-01 impact 0.3
Verification Status: UNVERIFIED
Confidence Score: 0.35
Notes: Amount reported by the source differs materially.
The date also shifted by a month.`

	cmp, ok := parseComparison(text)

	require.True(t, ok)
	assert.InDelta(t, 0.35, cmp.Confidence, 1e-9)
	require.Len(t, cmp.Discrepancies, 2)
	assert.Equal(t, "amount", cmp.Discrepancies[0].Field)
	assert.Equal(t, "100.0", cmp.Discrepancies[0].ReportedValue)
	assert.Equal(t, "120.0", cmp.Discrepancies[0].ExtractedValue)
	assert.Equal(t, 0.6, cmp.Discrepancies[0].Impact)
	assert.Contains(t, cmp.Notes, "differs materially")
	assert.Contains(t, cmp.Notes, "shifted by a month")
}

func TestParseComparison_NoSignalFails(t *testing.T) {
	_, ok := parseComparison("I could not compare these announcements, sorry.")
	assert.False(t, ok)
}

func TestParseComparison_StatusAloneIsEnough(t *testing.T) {
	cmp, ok := parseComparison("Verification Status: VERIFIED")
	require.True(t, ok)
	// Missing confidence takes the conservative default.
	assert.Equal(t, 0.5, cmp.Confidence)
	assert.Empty(t, cmp.Discrepancies)
}

func TestParseComparison_MalformedConfidenceDefaults(t *testing.T) {
	cmp, ok := parseComparison("Confidence Score: quite high")
	require.True(t, ok)
	assert.Equal(t, 0.5, cmp.Confidence)
}

func TestParseComparison_ConfidenceClamped(t *testing.T) {
	cmp, ok := parseComparison("Confidence Score: 1.8")
	require.True(t, ok)
	assert.Equal(t, 1.0, cmp.Confidence)
}

func TestParseDiscrepancyLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantOK    bool
		field     string
		reported  string
		extracted string
		impact    float64
	}{
		{
			name:   "full line",
			line:   "- amount: 10.0 vs 12.5 impact 0.6",
			wantOK: true, field: "amount", reported: "10.0", extracted: "12.5", impact: 0.6,
		},
		{
			name:   "impact in parentheses",
			line:   "company: Acme vs Globex (impact: 0.8)",
			wantOK: true, field: "company", reported: "Acme", extracted: "Globex", impact: 0.8,
		},
		{
			name:   "missing impact defaults",
			line:   "round_type: SERIES A vs SERIES B",
			wantOK: true, field: "round_type", reported: "SERIES A", extracted: "SERIES B", impact: defaultImpact,
		},
		{
			name:   "no vs keeps whole value as reported",
			line:   "date: differs by one month impact 0.3",
			wantOK: true, field: "date", reported: "differs by one month", extracted: "", impact: 0.3,
		},
		{
			name:   "no colon rejected",
			line:   "none found",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := parseDiscrepancyLine(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.field, d.Field)
			assert.Equal(t, tt.reported, d.ReportedValue)
			assert.Equal(t, tt.extracted, d.ExtractedValue)
			assert.Equal(t, tt.impact, d.Impact)
		})
	}
}
