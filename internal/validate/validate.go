// Package validate holds the pure field validators used by the conversation
// flows. Expected failures are returned as *Rejection values, never panics.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxDuration = 1000.0
	MaxCost     = 10_000_000.0
)

// Reason classifies a rejection.
type Reason string

const (
	NotANumber      Reason = "not a number"
	MustBePositive  Reason = "must be > 0"
	MustBeNonNeg    Reason = "must be ≥ 0"
	DurationTooHigh Reason = "exceeds 1000 hours"
	CostTooHigh     Reason = "exceeds 10,000,000"
	TooShort        Reason = "too short"
	TooLong         Reason = "too long"
	NotAnOption     Reason = "not an option"
)

// Rejection describes why an input was refused. Message is fit for the user.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// parseNumber accepts either "," or "." as the decimal separator.
func parseNumber(text string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Duration parses an hour count in (0, 1000].
func Duration(text string) (float64, *Rejection) {
	v, ok := parseNumber(text)
	if !ok {
		return 0, reject(NotANumber, "Duration must be a number of hours, e.g. 8 or 2.5.")
	}
	if rej := DurationValue(v); rej != nil {
		return 0, rej
	}
	return v, nil
}

// DurationValue range-checks an already numeric duration.
func DurationValue(v float64) *Rejection {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return reject(NotANumber, "Duration must be a number of hours, e.g. 8 or 2.5.")
	case v <= 0:
		return reject(MustBePositive, "Duration must be greater than zero.")
	case v > MaxDuration:
		return reject(DurationTooHigh, "Duration cannot exceed %.0f hours.", MaxDuration)
	}
	return nil
}

// Cost parses an amount in [0, 10,000,000].
func Cost(text string) (float64, *Rejection) {
	v, ok := parseNumber(text)
	if !ok {
		return 0, reject(NotANumber, "Cost must be a number, e.g. 15000.")
	}
	if rej := CostValue(v); rej != nil {
		return 0, rej
	}
	return v, nil
}

// CostValue range-checks an already numeric cost.
func CostValue(v float64) *Rejection {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return reject(NotANumber, "Cost must be a number, e.g. 15000.")
	case v < 0:
		return reject(MustBeNonNeg, "Cost cannot be negative.")
	case v > MaxCost:
		return reject(CostTooHigh, "Cost cannot exceed 10,000,000.")
	}
	return nil
}

// TextLength checks the trimmed rune count of text against [min, max].
func TextLength(text string, min, max int) *Rejection {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < min {
		return reject(TooShort, "Too short: at least %d characters required.", min)
	}
	if n > max {
		return reject(TooLong, "Too long: at most %d characters allowed.", max)
	}
	return nil
}

var markupStripper = strings.NewReplacer("<", "", ">", "")

// SanitizeText removes angle brackets and surrounding whitespace. Nothing
// else in the text is altered.
func SanitizeText(text string) string {
	return strings.TrimSpace(markupStripper.Replace(text))
}

// Choice matches text case-insensitively against options and returns the
// canonical option.
func Choice(text string, options []string) (string, *Rejection) {
	needle := strings.TrimSpace(text)
	for _, opt := range options {
		if strings.EqualFold(needle, opt) {
			return opt, nil
		}
	}
	return "", reject(NotAnOption, "Please pick one of: %s.", strings.Join(options, ", "))
}
