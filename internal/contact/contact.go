// Package contact validates the demo contact form. Submissions are acknowledged
// and logged; nothing is sent or stored.
package contact

import (
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/stem-explorer/internal/validation"
)

const (
	MaxNameLen    = 200
	MaxEmailLen   = 320
	MaxMessageLen = 5000
)

// ErrIncomplete is returned when one or more fields are missing.
var ErrIncomplete = errors.New("please fill in all fields")

var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for acknowledgements. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Form is the submitted contact form.
type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Result describes the outcome of a submission.
type Result struct {
	OK         bool      `json:"ok"`
	Missing    []string  `json:"missing,omitempty"`
	Invalid    []string  `json:"invalid,omitempty"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt,omitzero"`
}

// Validate returns the trimmed form and the result of presence checks. Missing
// fields are reported in form order: name, email, message.
func Validate(f Form) (Form, Result) {
	var clean Form
	var res Result
	fields := []struct {
		name   string
		value  string
		maxLen int
		dst    *string
	}{
		{"name", f.Name, MaxNameLen, &clean.Name},
		{"email", f.Email, MaxEmailLen, &clean.Email},
		{"message", f.Message, MaxMessageLen, &clean.Message},
	}
	for _, fd := range fields {
		v, err := validation.RequiredText(fd.name, fd.value, fd.maxLen)
		switch {
		case errors.Is(err, validation.ErrRequired):
			res.Missing = append(res.Missing, fd.name)
		case err != nil:
			res.Invalid = append(res.Invalid, fd.name)
		default:
			*fd.dst = v
		}
	}
	if len(res.Missing) > 0 || len(res.Invalid) > 0 {
		res.Message = describe(res)
		return clean, res
	}
	res.OK = true
	return clean, res
}

// Submit validates f and, when complete, acknowledges it. It has no side effects.
func Submit(f Form) (Form, Result, error) {
	clean, res := Validate(f)
	if !res.OK {
		return clean, res, ErrIncomplete
	}
	res.ReceivedAt = clock.Now().UTC()
	res.Message = "Thanks " + clean.Name + ", your message has been received."
	return clean, res, nil
}

func describe(res Result) string {
	var parts []string
	if len(res.Missing) > 0 {
		parts = append(parts, "Please fill in: "+strings.Join(res.Missing, ", ")+".")
	}
	if len(res.Invalid) > 0 {
		parts = append(parts, "Please shorten or fix: "+strings.Join(res.Invalid, ", ")+".")
	}
	return strings.Join(parts, " ")
}
