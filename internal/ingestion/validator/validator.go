// Package validator checks facts before they are indexed or published.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
)

const (
	maxTextLength  = 1 << 20
	maxLabelLength = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateFact requires non-empty UTF-8 text within the length limits.
func ValidateFact(f pool.Fact) error {
	errs := make(map[string]string)

	text := strings.TrimSpace(f.Text)
	switch {
	case text == "":
		errs["text"] = "text is required"
	case len(text) > maxTextLength:
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	case !utf8.ValidString(text):
		errs["text"] = "text must be valid UTF-8"
	}
	if len(f.Label) > maxLabelLength {
		errs["label"] = fmt.Sprintf("label must be at most %d bytes", maxLabelLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
