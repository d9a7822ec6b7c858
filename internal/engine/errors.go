package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel classes for pipeline failures. Callers branch on errors.Is;
// the concrete types carry the detail for the audit log.
var (
	ErrRiskRejected       = errors.New("risk rejected")
	ErrDecisionRejected   = errors.New("decision rejected")
	ErrSubmissionFailed   = errors.New("submission failed")
	ErrVerificationFailed = errors.New("verification failed")
)

type RiskRejectionError struct {
	Reasons []string
}

func (e *RiskRejectionError) Error() string {
	return fmt.Sprintf("risk rejected: %s", strings.Join(e.Reasons, ","))
}

func (e *RiskRejectionError) Is(target error) bool { return target == ErrRiskRejected }

type DecisionRejectedError struct {
	Reason string
}

func (e *DecisionRejectedError) Error() string {
	return fmt.Sprintf("decision rejected: %s", e.Reason)
}

func (e *DecisionRejectedError) Is(target error) bool { return target == ErrDecisionRejected }

type SubmissionError struct {
	Attempts int
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmissionFailed }
func (e *SubmissionError) Unwrap() error        { return e.Err }

type VerificationError struct {
	Signature string
	Detail    string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for %s: %s", e.Signature, e.Detail)
}

func (e *VerificationError) Is(target error) bool { return target == ErrVerificationFailed }
