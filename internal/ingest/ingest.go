package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/llm"
	"github.com/joseph-ayodele/sheet-extractor/internal/utils"
)

// StoredImage is an uploaded sheet photo persisted under its timestamped name.
type StoredImage struct {
	Timestamp string // YYYYMMDD_HHMMSS, shared with the exported workbook
	Filename  string // folha_<timestamp>.jpg
	Path      string
	Data      []byte
}

// DataURL base64-encodes the image for the model request.
func (s *StoredImage) DataURL() string {
	u, _ := llm.EncodeDataURL(s.Data)
	return u
}

// Ingestor stores uploads in one directory.
type Ingestor struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

func NewIngestor(dir string, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{dir: dir, now: time.Now, logger: logger}
}

// WithClock replaces the clock used to stamp uploads.
func (i *Ingestor) WithClock(now func() time.Time) *Ingestor {
	i.now = now
	return i
}

// Dir is the directory images are stored in.
func (i *Ingestor) Dir() string { return i.dir }

// EnsureDir creates the image directory if needed.
func (i *Ingestor) EnsureDir() error { return utils.EnsureDir(i.dir) }

// Store validates an upload and writes it as folha_<timestamp>.jpg.
func (i *Ingestor) Store(_ context.Context, data []byte, originalName string) (*StoredImage, error) {
	v := common.NewValidator().
		Field("image", data, common.Required).
		Field("filename", originalName, common.Required, common.AllowedImageName)
	if err := v.Error(); err != nil {
		i.logger.Warn("ingest.rejected", "filename", originalName, "error", err)
		return nil, err
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		i.logger.Warn("ingest.rejected", "filename", originalName, "content_type", ct)
		return nil, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("upload is not an image (%s)", ct), common.ErrInvalidInput)
	}

	if err := i.EnsureDir(); err != nil {
		return nil, err
	}
	ts, _ := utils.Stamp(i.now())
	name := constants.ImageFilename(ts)
	path, err := utils.SafeJoin(i.dir, name)
	if err != nil {
		return nil, err
	}
	if err := writeNew(path, data); err != nil {
		if errors.Is(err, os.ErrExist) {
			i.logger.Warn("ingest.conflict", "file", name)
			return nil, common.NewAppError("CONFLICT", "an image was already stored at "+ts, common.ErrConflict)
		}
		return nil, common.NewAppError("INGEST_ERROR", "write image", errors.Join(common.ErrStorage, err))
	}

	i.logger.Info("ingest.stored", "file", name, "bytes", len(data), "original", originalName)
	return &StoredImage{Timestamp: ts, Filename: name, Path: path, Data: data}, nil
}

// writeNew creates path exclusively so an earlier submission's image is never
// replaced (and later discarded) by one stamped in the same second.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Open reloads a stored image by its base filename.
func (i *Ingestor) Open(filename string) (*StoredImage, error) {
	ts, ok := TimestampFromFilename(filename)
	if !ok {
		return nil, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("not a stored image name: %q", filename), common.ErrInvalidInput)
	}
	path, err := utils.SafeJoin(i.dir, filename)
	if err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.NewAppError("NOT_FOUND", "image "+filename, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("INGEST_ERROR", "read image", errors.Join(common.ErrStorage, err))
	}
	return &StoredImage{Timestamp: ts, Filename: filename, Path: path, Data: data}, nil
}

// Discard removes a stored image; a missing file is not an error.
func (i *Ingestor) Discard(img *StoredImage) error {
	if img == nil {
		return nil
	}
	if err := os.Remove(img.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	i.logger.Info("ingest.discarded", "file", img.Filename)
	return nil
}

// Path resolves an image name inside the image directory.
func (i *Ingestor) Path(name string) (string, error) {
	return utils.SafeJoin(i.dir, name)
}

// TimestampFromFilename extracts the timestamp from folha_<timestamp>.jpg.
func TimestampFromFilename(name string) (string, bool) {
	if filepath.Base(name) != name ||
		!strings.HasPrefix(name, constants.ImagePrefix) ||
		!strings.HasSuffix(name, constants.ImageExt) {
		return "", false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, constants.ImagePrefix), constants.ImageExt)
	if _, err := time.Parse(constants.TimestampLayout, ts); err != nil {
		return "", false
	}
	return ts, true
}
