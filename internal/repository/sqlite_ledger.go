package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      TEXT NOT NULL,
	excel_filename TEXT NOT NULL,
	image_filename TEXT NOT NULL,
	tags           TEXT NOT NULL DEFAULT '[]',
	date           TEXT NOT NULL
)`

// SQLiteLedger stores the ledger in an embedded SQLite database. Tags are kept
// as a JSON array column; order is the autoincrement id.
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLiteLedger opens (creating if needed) the database at path.
func OpenSQLiteLedger(ctx context.Context, path string, logger *slog.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// one writer at a time; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.NewAppError("LEDGER_ERROR", "migrate sqlite ledger", errors.Join(common.ErrStorage, err))
	}
	logger.Info("ledger.sqlite.open", "path", path)
	return &SQLiteLedger{db: db, logger: logger}, nil
}

func (l *SQLiteLedger) Append(ctx context.Context, rec entity.SubmissionRecord) error {
	rec = normalizeRecord(rec)
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO submissions (timestamp, excel_filename, image_filename, tags, date) VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.ExcelFilename, rec.ImageFilename, string(tags), rec.Date,
	)
	if err != nil {
		l.logger.Error("ledger.append.failed", "driver", "sqlite", "timestamp", rec.Timestamp, "error", err)
		return common.NewAppError("LEDGER_ERROR", "insert submission", errors.Join(common.ErrStorage, err))
	}
	l.logger.Info("ledger.append.ok", "driver", "sqlite", "timestamp", rec.Timestamp)
	return nil
}

func (l *SQLiteLedger) LoadAll(ctx context.Context) ([]entity.SubmissionRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT timestamp, excel_filename, image_filename, tags, date FROM submissions ORDER BY id`)
	if err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "query submissions", errors.Join(common.ErrStorage, err))
	}
	defer rows.Close()

	out := []entity.SubmissionRecord{}
	for rows.Next() {
		var rec entity.SubmissionRecord
		var tags string
		if err := rows.Scan(&rec.Timestamp, &rec.ExcelFilename, &rec.ImageFilename, &tags, &rec.Date); err != nil {
			return nil, common.NewAppError("LEDGER_ERROR", "scan submission", errors.Join(common.ErrStorage, err))
		}
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", rec.Timestamp, err)
		}
		out = append(out, normalizeRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "iterate submissions", errors.Join(common.ErrStorage, err))
	}
	return out, nil
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
