package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrRequired is returned when a required field is empty or whitespace-only after trim.
var ErrRequired = errors.New("field is required")

// ErrTooLong is returned when input length exceeds the maximum.
var ErrTooLong = errors.New("value too long")

// ErrInvalidChars is returned when input contains control characters.
var ErrInvalidChars = errors.New("value contains invalid characters")

// FieldError ties a validation failure to the form field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RequiredText trims the input and checks it is present and at most maxLen runes
// (maxLen <= 0 disables the cap). Line breaks are allowed; other control
// characters are not. Format is not checked.
func RequiredText(field, input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", &FieldError{Field: field, Err: ErrRequired}
	}
	if err := checkText(s, maxLen, true); err != nil {
		return "", &FieldError{Field: field, Err: err}
	}
	return s, nil
}

// ValidateKeyword trims a search keyword and enforces maxLen in runes. An empty
// keyword is valid and means "no filtering". Case folding is left to the filter.
func ValidateKeyword(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	if err := checkText(s, maxLen, false); err != nil {
		return "", &FieldError{Field: "keyword", Err: err}
	}
	return s, nil
}

func checkText(s string, maxLen int, multiline bool) error {
	r := []rune(s)
	if maxLen > 0 && len(r) > maxLen {
		return ErrTooLong
	}
	for _, c := range r {
		if !isAllowedRune(c, multiline) {
			return ErrInvalidChars
		}
	}
	return nil
}

// isAllowedRune rejects control characters, except tab and line breaks in multiline text.
func isAllowedRune(r rune, multiline bool) bool {
	if !unicode.IsControl(r) {
		return true
	}
	switch r {
	case '\t':
		return true
	case '\n', '\r':
		return multiline
	}
	return false
}
