package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "announcements.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, `id,company_name,company_url,round_type,amount_usd_m,year,month,investors,source_url
a-1,Acme,https://acme.io,Series B,25,2024,5,Sequoia; a16z,https://techcrunch.com/acme
,Globex,,Seed,3.5,2023,,,https://venturebeat.com/globex
`)

	announcements, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, announcements, 2)

	first := announcements[0]
	assert.Equal(t, "a-1", first.ID)
	assert.Equal(t, "Acme", first.CompanyName)
	assert.Equal(t, "Series B", first.RoundType)
	assert.Equal(t, 25.0, first.Amount)
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, 5, first.Month)
	assert.Equal(t, []string{"Sequoia", "a16z"}, first.Investors)

	// Missing id falls back to the company name.
	second := announcements[1]
	assert.Equal(t, "Globex", second.ID)
	assert.Zero(t, second.Month)
	assert.Nil(t, second.Investors)
}

func TestLoadCSV_RejectsInvalidRows(t *testing.T) {
	path := writeCSV(t, `id,company_name,round_type,amount_usd_m,year
a-1,,Seed,5,2024
a-2,Negative Co,Seed,-5,2024
a-3,Valid Co,Seed,5,2024
`)

	announcements, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.Equal(t, "Valid Co", announcements[0].CompanyName)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestSplitInvestors(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitInvestors("A, B"))
	assert.Equal(t, []string{"A Cap", "B Fund"}, splitInvestors("A Cap; B Fund"))
	assert.Nil(t, splitInvestors("  "))
}
