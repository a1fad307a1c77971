package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/entity"
	"github.com/joseph-ayodele/sheet-extractor/internal/export"
	"github.com/joseph-ayodele/sheet-extractor/internal/ingest"
	"github.com/joseph-ayodele/sheet-extractor/internal/llm"
	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
)

// MaterialSource supplies the constraint list embedded in the prompt.
type MaterialSource interface {
	Load() ([]string, error)
}

// Request is one submission of an already stored image.
type Request struct {
	Image *ingest.StoredImage
	// OwnsImage marks a fresh upload that should be deleted when the
	// submission fails. Images kept in the session for a retry are not owned.
	OwnsImage bool
	Tags      []string
}

// Result is a completed submission.
type Result struct {
	Record      entity.SubmissionRecord
	Table       *llm.Table
	RawResponse string
}

// Error is a failed submission. Raw holds the model response when one was
// received, so the operator can see it next to the cause.
type Error struct {
	Status constants.SubmissionStatus
	Raw    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("submission %s: %v", e.Status, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Processor runs extraction, normalization, export and ledger append for one
// image. A submission either completes every step or leaves nothing behind.
type Processor struct {
	Logger    *slog.Logger
	Extractor llm.TableExtractor
	Exporter  *export.Service
	Ledger    repository.LedgerStore
	Images    *ingest.Ingestor
	// Materials is nil unless the constrained prompt variant is enabled.
	Materials MaterialSource

	now func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	extractor llm.TableExtractor,
	exporter *export.Service,
	ledger repository.LedgerStore,
	images *ingest.Ingestor,
	materials MaterialSource,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:    logger,
		Extractor: extractor,
		Exporter:  exporter,
		Ledger:    ledger,
		Images:    images,
		Materials: materials,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for the ledger date.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Process runs the submission. Failures are returned as *Error.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	if req.Image == nil {
		return nil, &Error{
			Status: constants.StatusIngestRejected,
			Err:    common.NewAppError("VALIDATION_ERROR", "no image selected", common.ErrInvalidInput),
		}
	}
	log := common.LoggerFromContext(ctx, p.Logger).With("timestamp", req.Image.Timestamp)
	start := time.Now()

	var materials []string
	if p.Materials != nil {
		m, err := p.Materials.Load()
		if err != nil {
			return nil, p.fail(log, req, nil, &Error{Status: constants.StatusExtractFailed, Err: err})
		}
		materials = m
	}

	// 1) model call
	raw, err := p.Extractor.ExtractTable(ctx, llm.ExtractRequest{
		ImageDataURL: req.Image.DataURL(),
		Materials:    materials,
	})
	if err != nil {
		return nil, p.fail(log, req, nil, &Error{
			Status: constants.StatusExtractFailed,
			Err:    common.NewAppError("EXTRACT_ERROR", "vision model call failed", errors.Join(common.ErrExtraction, err)),
		})
	}
	log.Info("pipeline.extract.ok", "raw_len", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	// 2) normalization
	table, err := llm.Normalize(raw)
	if err != nil {
		return nil, p.fail(log, req, nil, &Error{Status: constants.StatusParseFailed, Raw: raw, Err: err})
	}

	// 3) spreadsheet
	sheet, err := p.Exporter.WriteTable(table, req.Image.Timestamp)
	if err != nil {
		return nil, p.fail(log, req, nil, &Error{Status: constants.StatusExportFailed, Raw: raw, Err: err})
	}

	// 4) ledger
	rec := entity.SubmissionRecord{
		Timestamp:     req.Image.Timestamp,
		ExcelFilename: sheet,
		ImageFilename: req.Image.Filename,
		Tags:          append([]string{}, req.Tags...),
		Date:          p.now().Format(constants.DateLayout),
	}
	if err := p.Ledger.Append(ctx, rec); err != nil {
		return nil, p.fail(log, req, &sheet, &Error{Status: constants.StatusLedgerFailed, Raw: raw, Err: err})
	}

	log.Info("pipeline.submission.ok",
		"excel", sheet,
		"rows", table.Len(),
		"tags", rec.Tags,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Record: rec, Table: table, RawResponse: raw}, nil
}

// fail removes whatever this submission produced and returns perr.
func (p *Processor) fail(log *slog.Logger, req Request, sheet *string, perr *Error) error {
	log.Error("pipeline.submission.failed", "status", perr.Status, "error", perr.Err)
	if sheet != nil {
		if err := p.Exporter.Remove(*sheet); err != nil {
			log.Warn("pipeline.cleanup.sheet_error", "excel", *sheet, "error", err)
		}
	}
	if req.OwnsImage && p.Images != nil {
		if err := p.Images.Discard(req.Image); err != nil {
			log.Warn("pipeline.cleanup.image_error", "image", req.Image.Filename, "error", err)
		}
	}
	return perr
}
