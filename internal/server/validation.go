// validation.go - Input validation and filename sanitization helpers.
package server

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// validateFolderName rejects blank names after trimming; stored names keep
// the caller's inner whitespace.
func validateFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, 255)); err != nil {
		return "", fmt.Errorf("%w: folder name: %v", ErrInvalidInput, err)
	}
	return name, nil
}

// SanitizeFilename strips path separators and control bytes from a
// client-supplied display filename so it is safe to echo into headers and
// to derive storage names from.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")
	filename = strings.ReplaceAll(filename, "\"", "_")
	filename = strings.Trim(filename, " .")

	if len(filename) > 255 {
		filename = filename[:255]
	}
	if filename == "" {
		filename = "unnamed"
	}
	return filename
}
