package llm

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// EncodeDataURL returns the base64 data URL the model receives for an image,
// plus the detected MIME type. Unknown content is labelled image/jpeg since
// uploads are stored as .jpg.
func EncodeDataURL(data []byte) (dataURL, mimeType string) {
	mimeType = http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), mimeType
}
