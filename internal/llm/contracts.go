package llm

import "context"

// ExtractRequest is what the pipeline hands to the vision model.
type ExtractRequest struct {
	// ImageDataURL is the base64 data URL of the sheet photo.
	ImageDataURL string
	// Materials, when non-empty, is embedded in the prompt as the list of
	// accepted raw-material names.
	Materials []string
}

// TableExtractor is the interface our pipeline depends on. Implementations
// return the model's raw text; normalization is the caller's job.
type TableExtractor interface {
	ExtractTable(ctx context.Context, req ExtractRequest) (string, error)
}
