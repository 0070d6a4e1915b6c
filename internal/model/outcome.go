// Package model defines the domain types shared by the carrier lookup sweep.
package model

import "fmt"

// OutcomeKind is the closed set of verdicts a single lookup can reach.
type OutcomeKind string

const (
	OutcomeNotFound             OutcomeKind = "not_found"
	OutcomeInactive             OutcomeKind = "inactive"
	OutcomeVerificationMismatch OutcomeKind = "verification_mismatch"
	OutcomeSessionFailure       OutcomeKind = "session_failure"
	OutcomeVerified             OutcomeKind = "verified"
)

// Mismatch reasons reported by the classifier.
const (
	ReasonEntityType         = "entity-type"
	ReasonRegistrationStatus = "registration-status"
	ReasonAuthorityStatus    = "authority-status"
)

// Outcome is the classifier's verdict for one identifier. Reason carries the
// mismatch reason or the failure cause; Stage is only set for session
// failures.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
	Stage  string      `json:"stage,omitempty"`
}

// NotFound is the outcome for a "Record Not Found" page.
func NotFound() Outcome { return Outcome{Kind: OutcomeNotFound} }

// Inactive is the outcome for a "Record Inactive" page.
func Inactive() Outcome { return Outcome{Kind: OutcomeInactive} }

// Verified is the only outcome that proceeds to extraction.
func Verified() Outcome { return Outcome{Kind: OutcomeVerified} }

// VerificationMismatch reports a field that did not satisfy the carrier
// eligibility checks.
func VerificationMismatch(reason string) Outcome {
	return Outcome{Kind: OutcomeVerificationMismatch, Reason: reason}
}

// SessionFailure reports that the remote session could not produce a
// classifiable page at the given stage.
func SessionFailure(stage, cause string) Outcome {
	return Outcome{Kind: OutcomeSessionFailure, Stage: stage, Reason: cause}
}

// IsVerified reports whether the outcome allows extraction.
func (o Outcome) IsVerified() bool { return o.Kind == OutcomeVerified }

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeVerificationMismatch:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
	case OutcomeSessionFailure:
		return fmt.Sprintf("%s(%s: %s)", o.Kind, o.Stage, o.Reason)
	default:
		return string(o.Kind)
	}
}
