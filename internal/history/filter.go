package history

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/sheet-extractor/internal/entity"
)

// Filter selects ledger records. Zero-valued fields do not constrain.
type Filter struct {
	// Name is matched case-insensitively as a substring of the excel filename.
	Name string
	// Date must equal the record date exactly (YYYY-MM-DD).
	Date string
	// Tags matches records carrying at least one of them.
	Tags []string
}

// Result is a filtered, newest-first view of the ledger. Empty is set when
// nothing matched so callers render an explicit "no results" state.
type Result struct {
	Records []entity.SubmissionRecord
	Empty   bool
}

// Matches reports whether rec passes every active criterion.
func (f Filter) Matches(rec entity.SubmissionRecord) bool {
	name := strings.TrimSpace(f.Name)
	if name != "" && !strings.Contains(strings.ToLower(rec.ExcelFilename), strings.ToLower(name)) {
		return false
	}
	if date := strings.TrimSpace(f.Date); date != "" && date != rec.Date {
		return false
	}
	if len(f.Tags) > 0 && !rec.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

// Apply filters records and sorts matches by timestamp, most recent first.
// The input slice is not modified.
func (f Filter) Apply(records []entity.SubmissionRecord) Result {
	out := make([]entity.SubmissionRecord, 0, len(records))
	for _, rec := range records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return Result{Records: out, Empty: len(out) == 0}
}
