package extractmd

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when the selected region has too little text to
// be worth converting. Use errors.As with *NoContentError for details.
var ErrNoContent = errors.New("no content found")

// NoContentError reports the measured text length of a rejected region.
type NoContentError struct {
	URL    string
	Length int // cleaned text length in characters
	Min    int // threshold that was not reached
}

func (e *NoContentError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("no content found: %d chars (minimum %d)", e.Length, e.Min)
	}
	return fmt.Sprintf("no content found at %s: %d chars (minimum %d)", e.URL, e.Length, e.Min)
}

// Unwrap lets errors.Is match ErrNoContent.
func (e *NoContentError) Unwrap() error {
	return ErrNoContent
}
