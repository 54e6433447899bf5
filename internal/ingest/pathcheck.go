package ingest

import (
	"path/filepath"
	"strings"
)

// ValidateUploadName checks that an uploaded file carries a .csv extension.
// Only the name is inspected, never the content type.
func ValidateUploadName(filename string) error {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil
	}
	return &Error{
		Code:    CodeUnsupportedFile,
		Message: "Only CSV files are supported.",
	}
}
