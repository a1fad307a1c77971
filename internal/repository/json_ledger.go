package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/entity"
	"github.com/joseph-ayodele/sheet-extractor/internal/utils"
)

// JSONLedger keeps the ledger as one pretty-printed JSON array. Every append
// reads the whole file and rewrites it. The mutex only orders writers inside
// this process; separate processes sharing the file are not coordinated.
type JSONLedger struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewJSONLedger(path string, logger *slog.Logger) *JSONLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLedger{path: path, logger: logger}
}

// EnsureFile creates the ledger containing an empty array when it is absent.
func (l *JSONLedger) EnsureFile() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return common.NewAppError("LEDGER_ERROR", "stat ledger", errors.Join(common.ErrStorage, err))
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
	}
	l.logger.Info("ledger.json.create", "path", l.path)
	return l.write([]entity.SubmissionRecord{})
}

func (l *JSONLedger) Append(_ context.Context, rec entity.SubmissionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return err
	}
	records = append(records, normalizeRecord(rec))
	if err := l.write(records); err != nil {
		return err
	}
	l.logger.Info("ledger.append.ok", "driver", "json", "timestamp", rec.Timestamp, "count", len(records))
	return nil
}

func (l *JSONLedger) LoadAll(_ context.Context) ([]entity.SubmissionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *JSONLedger) read() ([]entity.SubmissionRecord, error) {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []entity.SubmissionRecord{}, nil
	}
	if err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "read ledger", errors.Join(common.ErrStorage, err))
	}
	records := []entity.SubmissionRecord{}
	if len(b) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", fmt.Sprintf("decode ledger %s", l.path), errors.Join(common.ErrStorage, err))
	}
	if records == nil {
		records = []entity.SubmissionRecord{}
	}
	return records, nil
}

func (l *JSONLedger) write(records []entity.SubmissionRecord) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := utils.WriteFileAtomic(l.path, b, 0o644); err != nil {
		return common.NewAppError("LEDGER_ERROR", "write ledger", errors.Join(common.ErrStorage, err))
	}
	return nil
}
