package valueobject

import "fmt"

// Reason codes carried by non-Ok statuses.
const (
	ReasonModelUnavailable = "ModelUnavailable"
	ReasonMissingFeatures  = "MissingFeatures"
	ReasonInferenceError   = "InferenceError"
	ReasonProviderError    = "ProviderError"
	ReasonNoCredentials    = "NoCredentials"
	ReasonTimeout          = "Timeout"
	ReasonParseError       = "ParseError"
	ReasonInvalidScore     = "InvalidScore"
	ReasonPanic            = "Panic"
)

const (
	statusOK          = "OK"
	statusUnavailable = "UNAVAILABLE"
	statusFailed      = "FAILED"
)

// ScoreStatus records how a scorer's run ended. Unavailable means the scorer could not
// be consulted; Failed means it was consulted and produced something unusable.
type ScoreStatus struct {
	kind   string
	code   string
	detail string
}

// StatusOK is the status of a usable result.
var StatusOK = ScoreStatus{kind: statusOK}

// Unavailable builds an Unavailable status with a reason code and detail.
func Unavailable(code, detail string) ScoreStatus {
	return ScoreStatus{kind: statusUnavailable, code: code, detail: detail}
}

// Failed builds a Failed status with a reason code and detail.
func Failed(code, detail string) ScoreStatus {
	return ScoreStatus{kind: statusFailed, code: code, detail: detail}
}

// ScoreStatusFromParts rebuilds a status from persisted columns.
func ScoreStatusFromParts(kind, code, detail string) (ScoreStatus, error) {
	switch kind {
	case statusOK:
		return StatusOK, nil
	case statusUnavailable, statusFailed:
		return ScoreStatus{kind: kind, code: code, detail: detail}, nil
	default:
		return ScoreStatus{}, fmt.Errorf("invalid score status: %s", kind)
	}
}

func (s ScoreStatus) IsOK() bool          { return s.kind == statusOK }
func (s ScoreStatus) IsUnavailable() bool { return s.kind == statusUnavailable }
func (s ScoreStatus) IsFailed() bool      { return s.kind == statusFailed }

// Kind returns OK, UNAVAILABLE or FAILED.
func (s ScoreStatus) Kind() string { return s.kind }

// Code returns the reason code, empty for OK.
func (s ScoreStatus) Code() string { return s.code }

// Detail returns the free-text part of the reason.
func (s ScoreStatus) Detail() string { return s.detail }

// Reason renders code and detail together.
func (s ScoreStatus) Reason() string {
	if s.detail == "" {
		return s.code
	}
	return s.code + ": " + s.detail
}

// String renders e.g. "FAILED(ParseError: missing rationale)".
func (s ScoreStatus) String() string {
	if s.IsOK() {
		return s.kind
	}
	return fmt.Sprintf("%s(%s)", s.kind, s.Reason())
}

func (s ScoreStatus) Equal(other ScoreStatus) bool {
	return s == other
}
