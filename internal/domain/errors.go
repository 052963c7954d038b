package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRecord marks a raw record that was dropped during normalization.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnresolvableBaseline means neither a daily nor a monthly baseline applies.
	ErrUnresolvableBaseline = errors.New("no baseline available")

	// ErrQualityGateFailure marks a merged table that failed one or more checks.
	ErrQualityGateFailure = errors.New("quality gate failed")

	// ErrConfiguration marks invalid parameters passed into the core.
	ErrConfiguration = errors.New("invalid configuration")
)

// MalformedRecordError describes why a raw record was rejected.
type MalformedRecordError struct {
	Source Source
	Index  int // position in its input sequence
	Field  string
	Value  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s record %d: %s %q: %s", e.Source, e.Index, e.Field, e.Value, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// ConfigurationError lists every invalid parameter found by Params.Validate.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// QualityGateError carries the names and violations of the failed checks.
type QualityGateError struct {
	Failed     []string
	Violations []string
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("quality gate failed (%s): %s",
		strings.Join(e.Failed, ", "), strings.Join(e.Violations, "; "))
}

func (e *QualityGateError) Unwrap() error { return ErrQualityGateFailure }
