package entity

// SubmissionRecord is one ledger entry: the artifacts produced by a successful
// extraction. Records are immutable once appended.
type SubmissionRecord struct {
	Timestamp     string   `json:"timestamp"`      // YYYYMMDD_HHMMSS
	ExcelFilename string   `json:"excel_filename"` // base name under the sheets dir
	ImageFilename string   `json:"image_filename"` // base name under the images dir
	Tags          []string `json:"tags"`
	Date          string   `json:"date"` // YYYY-MM-DD
}

// HasAnyTag reports whether the record carries at least one of tags.
func (r SubmissionRecord) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
