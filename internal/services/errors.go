package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConsistency signals that the insert lost a uniqueness race but the
// winning record could not be read back. It should never happen unless the
// winning write was rolled back underneath us.
var ErrConsistency = errors.New("expense exists but could not be re-read")

// ValidationError carries every field that failed validation, keyed by the
// request field name, so clients get all problems in one response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}
