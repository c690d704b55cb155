package manifest

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a specific validation failure in a manifest.
type ValidationError struct {
	// Field is the manifest field that failed validation (e.g., "packages[1]").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation error: %s: %s", e.Field, e.Message)
}

// Validate checks a loaded manifest and returns every problem found
// (empty list = valid manifest), so the user can fix them in one pass.
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	if m.Base != "" && strings.ContainsAny(m.Base, " \t\r\n") {
		errs = append(errs, ValidationError{
			Field:   "base",
			Message: fmt.Sprintf("%q is not a valid image reference", m.Base),
		})
	}

	if m.User == "root" {
		errs = append(errs, ValidationError{
			Field:   "user",
			Message: "scripts must not run as root",
		})
	}

	if path := m.RequirementsPath(); path != "" {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{
				Field:   "requirements",
				Message: fmt.Sprintf("cannot read %s: %v", path, err),
			})
		case info.IsDir():
			errs = append(errs, ValidationError{
				Field:   "requirements",
				Message: fmt.Sprintf("%s is a directory", path),
			})
		}
	}

	for i, p := range m.Packages {
		if p == "" || strings.HasPrefix(p, "-") || strings.ContainsAny(p, " \t\r\n") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("packages[%d]", i),
				Message: fmt.Sprintf("%q is not a package specifier", p),
			})
		}
	}

	return errs
}
