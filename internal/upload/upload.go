// Package upload is the file input surface: it classifies incoming
// documents, rejects unsupported types, and packages accepted files as
// assistant attachments plus durable encodings.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tridinhbui/finpartner-ai/internal/assistant"
)

// ErrUnsupportedType marks a drop the surface rejects with a user-facing
// notice and no state change.
var ErrUnsupportedType = errors.New("unsupported file type")

// Kind classifies an accepted upload.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindSpreadsheet Kind = "spreadsheet"
)

var spreadsheetMimeTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// DetectKind classifies a file by declared MIME type and name suffix.
// Recognized types are PDF, common images, and spreadsheet formats
// (.xlsx, .xls by extension or declared MIME). Anything else returns
// ErrUnsupportedType.
func DetectKind(fileName, mimeType string) (Kind, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(path.Ext(fileName))

	switch {
	case mime == "application/pdf" || ext == ".pdf":
		return KindPDF, nil
	case strings.HasPrefix(mime, "image/"):
		return KindImage, nil
	case spreadsheetMimeTypes[mime] || ext == ".xlsx" || ext == ".xls":
		return KindSpreadsheet, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, path.Base(fileName), mimeType)
}

// Build validates the file and packages it as an attachment carrying the
// base64 durable encoding of its bytes.
func Build(fileName string, raw []byte, mimeType string) (assistant.Attachment, error) {
	if _, err := DetectKind(fileName, mimeType); err != nil {
		return assistant.Attachment{}, err
	}
	return assistant.Attachment{
		Name:     path.Base(fileName),
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}, nil
}
