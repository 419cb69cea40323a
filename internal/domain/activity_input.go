package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultActivityType = "Running"
	PlaceholderTime     = "00:00:00"
)

// ActivityInput is the raw, unvalidated content of a manual entry or edit.
// Empty strings mean the field was not supplied.
type ActivityInput struct {
	Date         string
	ActivityType string
	Distance     string
	Time         string
	Calories     string
}

// ActivityFields is an ActivityInput after parsing. Date is nil when no usable
// date was supplied; the caller decides the fallback.
type ActivityFields struct {
	Date         *time.Time
	ActivityType string
	Distance     float64
	Time         string
	Calories     float64
}

// FieldIssue describes one input value that was replaced by a default.
type FieldIssue struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (i FieldIssue) String() string {
	return fmt.Sprintf("%s %q: %s", i.Field, i.Value, i.Reason)
}

// InputError carries the issues found in strict mode.
type InputError struct {
	Issues []FieldIssue
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return "invalid activity input: " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// ParseActivityInput parses in, substituting safe defaults for anything
// missing or malformed. Every substitution of a supplied value is reported.
func ParseActivityInput(in ActivityInput) (ActivityFields, []FieldIssue) {
	var issues []FieldIssue
	fields := ActivityFields{
		ActivityType: strings.TrimSpace(in.ActivityType),
		Time:         strings.TrimSpace(in.Time),
	}

	if fields.ActivityType == "" {
		fields.ActivityType = DefaultActivityType
	}

	if raw := strings.TrimSpace(in.Date); raw != "" {
		parsed, err := time.Parse(DateLayout, raw)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "date", Value: raw, Reason: "expected YYYY-MM-DD"})
		} else {
			fields.Date = &parsed
		}
	}

	fields.Distance, issues = parseNonNegative("distance", in.Distance, issues)
	fields.Calories, issues = parseNonNegative("calories", in.Calories, issues)

	if fields.Time == "" {
		fields.Time = PlaceholderTime
	} else if _, ok := elapsedMinutes(fields.Time); !ok {
		issues = append(issues, FieldIssue{Field: "time", Value: fields.Time, Reason: "expected H:MM:SS or MM:SS"})
		fields.Time = PlaceholderTime
	}

	return fields, issues
}

func parseNonNegative(field, raw string, issues []FieldIssue) (float64, []FieldIssue) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, issues
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, append(issues, FieldIssue{Field: field, Value: raw, Reason: "not a number"})
	}
	if v < 0 {
		return 0, append(issues, FieldIssue{Field: field, Value: raw, Reason: "must not be negative"})
	}
	return v, issues
}
