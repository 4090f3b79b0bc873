package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrDecodeBase64     = errors.New("base64 decode error")       // Wraps encoding/base64 failures and non-ASCII payloads
	ErrDecodeJSON       = errors.New("JSON decode error")         // Envelope or inner document is not valid JSON
	ErrDecodePattern    = errors.New("wrapper pattern not found") // Redirect wrapper did not have the expected shape
	ErrDecodeMissingKey = errors.New("expected key missing")      // Query or JSON key the wrapper relies on is absent
	ErrDecodeExhausted  = errors.New("replacement stream exhausted")
	ErrParsing          = errors.New("parsing error")    // Wraps specific parsing error (HTML, URL, YAML)
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
)

// WrapErrorf annotates err with a formatted message, keeping it matchable with errors.Is.
// Returns nil when err is nil.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrDecodeBase64):
		return "Decode_Base64"
	case errors.Is(err, ErrDecodeJSON):
		return "Decode_JSON"
	case errors.Is(err, ErrDecodePattern):
		return "Decode_Pattern"
	case errors.Is(err, ErrDecodeMissingKey):
		return "Decode_MissingKey"
	case errors.Is(err, ErrDecodeExhausted):
		return "Decode_Exhausted"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "YAML") {
			return "Content_ParsingYAML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	}

	// Unwrapped os errors still get a filesystem category
	if errors.Is(err, os.ErrNotExist) {
		return "Filesystem_NotExist"
	}
	if errors.Is(err, os.ErrPermission) {
		return "Filesystem_Permission"
	}

	return "Unknown"
}
