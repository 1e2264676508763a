package obligations

import (
	"encoding/json"
	"fmt"
)

// SummaryMode selects how GetSummary treats a response without a summary field.
type SummaryMode int

const (
	// SummaryLenient returns an empty report whose Present method is false.
	SummaryLenient SummaryMode = iota
	// SummaryStrict reports a missing or null summary as a RemoteRequestError
	// wrapping ErrSummaryMissing.
	SummaryStrict
)

// ParseSummaryMode maps a config value to a SummaryMode.
func ParseSummaryMode(s string) (SummaryMode, error) {
	switch s {
	case "", "lenient":
		return SummaryLenient, nil
	case "strict":
		return SummaryStrict, nil
	default:
		return SummaryLenient, fmt.Errorf("unknown summary mode %q (expected strict or lenient)", s)
	}
}

func (m SummaryMode) String() string {
	if m == SummaryStrict {
		return "strict"
	}
	return "lenient"
}

// SummaryReport is the server-computed aggregate. Its shape belongs to the
// server; callers decode it into whatever they expect.
type SummaryReport struct {
	raw json.RawMessage
}

// NewSummaryReport wraps a raw summary value.
func NewSummaryReport(raw json.RawMessage) SummaryReport {
	return SummaryReport{raw: raw}
}

// Present reports whether the server sent a non-null summary.
func (s SummaryReport) Present() bool {
	return len(s.raw) > 0 && !isNull(s.raw)
}

// Raw returns the summary exactly as received.
func (s SummaryReport) Raw() json.RawMessage { return s.raw }

// Decode unmarshals the summary into v.
func (s SummaryReport) Decode(v any) error {
	if !s.Present() {
		return ErrSummaryMissing
	}
	return json.Unmarshal(s.raw, v)
}

func (s SummaryReport) MarshalJSON() ([]byte, error) {
	if !s.Present() {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// summaryEnvelope is the list response in summary-only mode; other fields are ignored.
type summaryEnvelope struct {
	Summary json.RawMessage `json:"summary"`
}

// Acknowledgement is the server's deletion response body, uninspected.
type Acknowledgement json.RawMessage

func (a Acknowledgement) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}
