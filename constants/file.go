package constants

import "strings"

// AllowedExtensions holds the upload extensions accepted by the submit form.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

const (
	// TimestampLayout names every artifact of one submission (YYYYMMDD_HHMMSS).
	TimestampLayout = "20060102_150405"
	// DateLayout is the ledger's submission date format.
	DateLayout = "2006-01-02"

	ImagePrefix = "folha_"
	ImageExt    = ".jpg"
	SheetPrefix = "dados_"
	SheetExt    = ".xlsx"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether ext (with or without the dot) may be uploaded.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// ImageFilename is the stored name of the image uploaded at timestamp.
func ImageFilename(timestamp string) string {
	return ImagePrefix + timestamp + ImageExt
}

// SheetFilename is the exported workbook name for timestamp.
func SheetFilename(timestamp string) string {
	return SheetPrefix + timestamp + SheetExt
}

// IsSheetFilename reports whether name is a bare dados_<timestamp>.xlsx name.
func IsSheetFilename(name string) bool {
	if strings.ContainsAny(name, `/\`) ||
		!strings.HasPrefix(name, SheetPrefix) ||
		!strings.HasSuffix(name, SheetExt) {
		return false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, SheetPrefix), SheetExt)
	return len(ts) == len(TimestampLayout)
}
