package constants

// SubmissionStatus is the outcome of one pass through the submission pipeline.
type SubmissionStatus string

const (
	StatusOK             SubmissionStatus = "OK"
	StatusExtractFailed  SubmissionStatus = "EXTRACT_FAILED" // model/transport error
	StatusParseFailed    SubmissionStatus = "PARSE_FAILED"   // response was not usable JSON
	StatusExportFailed   SubmissionStatus = "EXPORT_FAILED"
	StatusLedgerFailed   SubmissionStatus = "LEDGER_FAILED"
	StatusIngestRejected SubmissionStatus = "INGEST_REJECTED"
)
