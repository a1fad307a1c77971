package export

import (
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/llm"
	"github.com/joseph-ayodele/sheet-extractor/internal/utils"
)

// SheetName is the worksheet the extracted table is written to.
const SheetName = "Planilha"

// Service writes extracted tables as XLSX files under one directory.
type Service struct {
	dir    string
	logger *slog.Logger
}

func NewService(dir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, logger: logger}
}

// Dir is the directory workbooks are written to.
func (s *Service) Dir() string { return s.dir }

// EnsureDir creates the output directory if needed.
func (s *Service) EnsureDir() error { return utils.EnsureDir(s.dir) }

// WriteTable writes t to dados_<timestamp>.xlsx and returns the base filename.
func (s *Service) WriteTable(t *llm.Table, timestamp string) (string, error) {
	start := time.Now()
	name := constants.SheetFilename(timestamp)
	path, err := utils.SafeJoin(s.dir, name)
	if err != nil {
		return "", err
	}
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	f, err := BuildWorkbook(t)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"file", name,
		"rows", t.Len(),
		"columns", len(t.Columns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return name, nil
}

// Path resolves a workbook name inside the output directory.
func (s *Service) Path(name string) (string, error) {
	return utils.SafeJoin(s.dir, name)
}

// Remove deletes a previously written workbook.
func (s *Service) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// BuildWorkbook lays t out as a rectangle: header row of columns, then one
// row per table row in order. Missing cells stay empty.
func BuildWorkbook(t *llm.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}

	widths := make([]int, len(t.Columns))
	for i, h := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			_ = f.Close()
			return nil, err
		}
		widths[i] = utf8.RuneCountInString(h)
	}

	for r, row := range t.Rows {
		for c, col := range t.Columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				_ = f.Close()
				return nil, err
			}
			if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[c] {
				widths[c] = n
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetName, col, col, clampWidth(w))
	}
	return f, nil
}

func clampWidth(n int) float64 {
	switch {
	case n < 10:
		return 10
	case n > 60:
		return 60
	default:
		return float64(n + 2)
	}
}
