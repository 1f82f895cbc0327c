package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Announcements")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "announcements.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"ID", "Company Name", "Round Type", "Amount (USD M)", "Year", "Month", "Investors", "Source URL"},
		{"a-1", "Acme", "Series B", "25", "2024", "5", "Sequoia, a16z", "https://techcrunch.com/acme"},
		{"", "Globex", "Seed", "3.5", "2023", "", "", ""},
	})

	announcements, err := LoadXLSX(path)
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

	second := announcements[1]
	assert.Equal(t, "Globex", second.ID)
	assert.Equal(t, 3.5, second.Amount)
	assert.Zero(t, second.Month)
}

func TestLoadXLSX_SkipsBlankAndInvalidRows(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"company_name", "round_type", "amount_usd_m", "year"},
		{"", "", "", ""},
		{"Valid Co", "Seed", "5", "2024"},
		{"Negative Co", "Seed", "-5", "2024"},
	})

	announcements, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.Equal(t, "Valid Co", announcements[0].CompanyName)
}

func TestLoadXLSX_MissingCompanyColumn(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"name", "amount"},
		{"Acme", "25"},
	})

	_, err := LoadXLSX(path)
	require.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "amount_usd_m", normalizeHeader("Amount (USD M)"))
	assert.Equal(t, "company_name", normalizeHeader(" Company Name "))
	assert.Equal(t, "source_url", normalizeHeader("Source-URL"))
	assert.Equal(t, "", normalizeHeader("  "))
}
