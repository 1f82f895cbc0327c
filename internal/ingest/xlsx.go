package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
)

// LoadXLSX reads announcements from the first sheet of an Excel
// workbook. The first row must be a header; columns are matched by
// normalized name, so "Company Name" and "company_name" both work.
func LoadXLSX(path string) ([]model.Announcement, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: sheet has no header row")
	}

	cols := headerIndex(rowToStrings(sheet.Rows[0]))
	if _, ok := cols["company_name"]; !ok {
		return nil, eris.New("ingest: missing company_name column")
	}

	var announcements []model.Announcement
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}

		a, ok := validate(fromCells(cells, cols))
		if !ok {
			continue
		}
		announcements = append(announcements, a)
	}

	zap.L().Info("ingest: loaded xlsx",
		zap.String("path", path),
		zap.Int("announcements", len(announcements)),
	)
	return announcements, nil
}

func fromCells(cells []string, cols map[string]int) model.Announcement {
	return model.Announcement{
		ID:          cellAt(cells, cols, "id"),
		CompanyName: cellAt(cells, cols, "company_name"),
		CompanyURL:  cellAt(cells, cols, "company_url"),
		RoundType:   cellAt(cells, cols, "round_type"),
		Amount:      cellFloat(cells, cols, "amount_usd_m"),
		Year:        cellInt(cells, cols, "year"),
		Month:       cellInt(cells, cols, "month"),
		Investors:   splitInvestors(cellAt(cells, cols, "investors")),
		SourceURL:   cellAt(cells, cols, "source_url"),
	}
}

// headerIndex maps normalized column names to positions. Names are
// lowercased with spaces and parenthesized units stripped, so
// "Amount (USD M)" normalizes to "amount_usd_m".
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		if key := normalizeHeader(name); key != "" {
			cols[key] = i
		}
	}
	return cols
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("(", "", ")", "", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), "_")
}

func cellAt(cells []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func cellFloat(cells []string, cols map[string]int, key string) float64 {
	raw := cellAt(cells, cols, key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		zap.L().Warn("ingest: unparseable numeric cell",
			zap.String("column", key),
			zap.String("value", raw),
		)
		return 0
	}
	return v
}

func cellInt(cells []string, cols map[string]int, key string) int {
	return int(cellFloat(cells, cols, key))
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
