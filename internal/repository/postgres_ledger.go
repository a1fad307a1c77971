package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/entity"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	id             BIGSERIAL PRIMARY KEY,
	timestamp      TEXT NOT NULL,
	excel_filename TEXT NOT NULL,
	image_filename TEXT NOT NULL,
	tags           TEXT[] NOT NULL DEFAULT '{}',
	date           TEXT NOT NULL
)`

// PostgresLedger stores the ledger in a Postgres table.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresLedger creates the table if needed and returns the store.
func NewPostgresLedger(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "migrate postgres ledger", errors.Join(common.ErrStorage, err))
	}
	return &PostgresLedger{pool: pool, logger: logger}, nil
}

func (l *PostgresLedger) Append(ctx context.Context, rec entity.SubmissionRecord) error {
	rec = normalizeRecord(rec)
	_, err := l.pool.Exec(ctx,
		`INSERT INTO submissions (timestamp, excel_filename, image_filename, tags, date) VALUES ($1, $2, $3, $4, $5)`,
		rec.Timestamp, rec.ExcelFilename, rec.ImageFilename, rec.Tags, rec.Date,
	)
	if err != nil {
		l.logger.Error("ledger.append.failed", "driver", "postgres", "timestamp", rec.Timestamp, "error", err)
		return common.NewAppError("LEDGER_ERROR", "insert submission", errors.Join(common.ErrStorage, err))
	}
	l.logger.Info("ledger.append.ok", "driver", "postgres", "timestamp", rec.Timestamp)
	return nil
}

func (l *PostgresLedger) LoadAll(ctx context.Context) ([]entity.SubmissionRecord, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT timestamp, excel_filename, image_filename, tags, date FROM submissions ORDER BY id`)
	if err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "query submissions", errors.Join(common.ErrStorage, err))
	}
	defer rows.Close()

	out := []entity.SubmissionRecord{}
	for rows.Next() {
		var rec entity.SubmissionRecord
		if err := rows.Scan(&rec.Timestamp, &rec.ExcelFilename, &rec.ImageFilename, &rec.Tags, &rec.Date); err != nil {
			return nil, common.NewAppError("LEDGER_ERROR", "scan submission", errors.Join(common.ErrStorage, err))
		}
		out = append(out, normalizeRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "iterate submissions", errors.Join(common.ErrStorage, err))
	}
	return out, nil
}

// Close releases the pool.
func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
