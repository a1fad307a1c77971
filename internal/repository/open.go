package repository

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
)

// OpenLedger builds the LedgerStore selected by cfg.LedgerDriver. The returned
// close function is always non-nil.
func OpenLedger(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (LedgerStore, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	switch cfg.LedgerDriver {
	case "", common.LedgerDriverJSON:
		l := NewJSONLedger(cfg.LedgerPath, logger)
		if err := l.EnsureFile(); err != nil {
			return nil, noop, err
		}
		return l, noop, nil

	case common.LedgerDriverSQLite:
		path := cfg.LedgerDSN
		if path == "" {
			path = SQLitePath(cfg.LedgerPath)
		}
		l, err := OpenSQLiteLedger(ctx, path, logger)
		if err != nil {
			return nil, noop, err
		}
		return l, func() {
			if err := l.Close(); err != nil {
				logger.Warn("ledger.sqlite.close_error", "error", err)
			}
		}, nil

	case common.LedgerDriverPostgres:
		pool, err := Open(ctx, DefaultPoolConfig(cfg.LedgerDSN), logger)
		if err != nil {
			return nil, noop, common.WrapError(err, "open postgres ledger")
		}
		l, err := NewPostgresLedger(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return l, func() { _ = l.Close() }, nil

	default:
		return nil, noop, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown ledger driver %q", cfg.LedgerDriver), common.ErrInvalidInput)
	}
}

// SQLitePath derives the database file used when no LEDGER_DSN is set. It sits
// beside the JSON ledger with a .db extension so the two never share a file.
func SQLitePath(ledgerPath string) string {
	if ledgerPath == "" {
		ledgerPath = "metadados.json"
	}
	return strings.TrimSuffix(ledgerPath, filepath.Ext(ledgerPath)) + ".db"
}
