package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/verify-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS results (
	id              TEXT PRIMARY KEY,
	announcement_id TEXT NOT NULL,
	company         TEXT NOT NULL,
	status          TEXT NOT NULL,
	confidence      REAL NOT NULL,
	source_url      TEXT,
	reliability     TEXT,
	discrepancies   TEXT NOT NULL,
	notes           TEXT,
	verified_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_summaries (
	run_id          TEXT PRIMARY KEY,
	total           INTEGER NOT NULL,
	processed       INTEGER NOT NULL,
	verified        INTEGER NOT NULL,
	errors          INTEGER NOT NULL,
	by_status       TEXT NOT NULL,
	mean_confidence REAL NOT NULL,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
CREATE INDEX IF NOT EXISTS idx_results_company ON results(company);
CREATE INDEX IF NOT EXISTS idx_results_announcement ON results(announcement_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendResults(ctx context.Context, results []model.VerificationResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range results {
		discrepancies, err := json.Marshal(r.Discrepancies)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal discrepancies")
		}

		var reliability any
		if r.Reliability != nil {
			data, err := json.Marshal(r.Reliability)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal reliability")
			}
			reliability = string(data)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (id, announcement_id, company, status, confidence, source_url, reliability, discrepancies, notes, verified_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.VerificationID, r.AnnouncementID, r.CompanyName, string(r.Status), r.Confidence,
			r.SourceURL, reliability, string(discrepancies), r.Notes, r.VerifiedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result %s", r.VerificationID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.VerificationResult, error) {
	query := `SELECT id, announcement_id, company, status, confidence, source_url, reliability, discrepancies, notes, verified_at
	          FROM results WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Company != "" {
		query += " AND company LIKE '%' || ? || '%'"
		args = append(args, filter.Company)
	}
	query += " ORDER BY verified_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close() //nolint:errcheck

	var results []model.VerificationResult
	for rows.Next() {
		var (
			r             model.VerificationResult
			status        string
			sourceURL     sql.NullString
			reliability   sql.NullString
			discrepancies string
			notes         sql.NullString
		)
		if err := rows.Scan(&r.VerificationID, &r.AnnouncementID, &r.CompanyName, &status, &r.Confidence,
			&sourceURL, &reliability, &discrepancies, &notes, &r.VerifiedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}

		r.Status = model.VerificationStatus(status)
		r.SourceURL = sourceURL.String
		r.Notes = notes.String

		if err := json.Unmarshal([]byte(discrepancies), &r.Discrepancies); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal discrepancies for %s", r.VerificationID)
		}
		if reliability.Valid && reliability.String != "" {
			var rel model.SourceReliability
			if err := json.Unmarshal([]byte(reliability.String), &rel); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal reliability for %s", r.VerificationID)
			}
			r.Reliability = &rel
		}

		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func (s *SQLiteStore) WriteSummary(ctx context.Context, summary model.RunSummary) error {
	byStatus, err := json.Marshal(summary.ByStatus)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal by_status")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_summaries (run_id, total, processed, verified, errors, by_status, mean_confidence, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Total, summary.Processed, summary.Verified, summary.Errors,
		string(byStatus), summary.MeanConfidence, summary.StartedAt, summary.FinishedAt,
	)
	return eris.Wrapf(err, "sqlite: insert summary %s", summary.RunID)
}

func (s *SQLiteStore) ListSummaries(ctx context.Context, limit int) ([]model.RunSummary, error) {
	query := `SELECT run_id, total, processed, verified, errors, by_status, mean_confidence, started_at, finished_at
	          FROM run_summaries ORDER BY finished_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list summaries")
	}
	defer rows.Close() //nolint:errcheck

	var summaries []model.RunSummary
	for rows.Next() {
		var (
			sum      model.RunSummary
			byStatus string
		)
		if err := rows.Scan(&sum.RunID, &sum.Total, &sum.Processed, &sum.Verified, &sum.Errors,
			&byStatus, &sum.MeanConfidence, &sum.StartedAt, &sum.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		if err := json.Unmarshal([]byte(byStatus), &sum.ByStatus); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal by_status for %s", sum.RunID)
		}
		summaries = append(summaries, sum)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: iterate summaries")
}
