package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password Register and the reset flow accept.
const MinPasswordLength = 8

// FieldErrors maps a request field to the validation messages for it. It is
// rendered verbatim into the error envelope so the messages are user-facing.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Messages flattens the per-field errors into a single list, prefixed with
// the field name, in no particular order.
func (fe FieldErrors) Messages() []string {
	out := make([]string, 0, len(fe))
	for field, msgs := range fe {
		for _, msg := range msgs {
			out = append(out, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return out
}

// ValidationError carries field-level validation failures out of the service
// layer without collapsing them into a single string.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.Messages(), "; ")
}

// ValidatePassword enforces the account password policy: a minimum length
// and at least one non-digit, so phone numbers and PINs are rejected.
func ValidatePassword(password string) []string {
	var msgs []string

	if len(password) < MinPasswordLength {
		msgs = append(msgs, fmt.Sprintf("must be at least %d characters long", MinPasswordLength))
	}

	if password != "" && isEntirelyNumeric(password) {
		msgs = append(msgs, "must not be entirely numeric")
	}

	return msgs
}

func isEntirelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// validEmail reports whether s parses as a bare RFC 5322 address.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
