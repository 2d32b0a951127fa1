package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"clinikondo/internal/services"
)

// supportedExtensions lists the document formats the pipeline accepts.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tif":  {},
	".tiff": {},
	".heic": {},
	".txt":  {},
}

const maxFileNameLength = 255

// SupportedExtension reports whether the file extension is one the
// pipeline knows how to process.
func SupportedExtension(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// validateSource gates a document before any work is spent on it.
func validateSource(path string, maxBytes int64) (int64, error) {
	name := filepath.Base(path)
	if len(name) > maxFileNameLength {
		return 0, services.Wrap(services.ErrValidation, "validate", "check_name",
			fmt.Sprintf("file name exceeds %d characters", maxFileNameLength), nil)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return 0, services.Wrap(services.ErrValidation, "validate", "check_name",
				"file name contains control characters", nil)
		}
	}
	if !SupportedExtension(path) {
		return 0, services.Wrap(services.ErrValidation, "validate", "check_extension",
			fmt.Sprintf("unsupported extension %q", filepath.Ext(path)), nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "validate", "stat", "source file unavailable", err)
	}
	if !info.Mode().IsRegular() {
		return 0, services.Wrap(services.ErrValidation, "validate", "stat", "source is not a regular file", nil)
	}
	if info.Size() == 0 {
		return 0, services.Wrap(services.ErrValidation, "validate", "check_size", "source file is empty", nil)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return 0, services.Wrap(services.ErrValidation, "validate", "check_size",
			fmt.Sprintf("source file is %d bytes, limit is %d", info.Size(), maxBytes), nil)
	}
	return info.Size(), nil
}
