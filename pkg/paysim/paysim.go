// Package paysim provides the payment gateway abstraction used by the
// transaction lifecycle engine, together with a simulator implementation
// that stands in for a real provider. A production gateway integration
// replaces the Simulator behind the same Gateway interface.
package paysim

import (
	"context"
	"errors"
)

// Submission is a payment request handed to the gateway.
type Submission struct {
	TransactionID string
	Amount        float64
	Method        string
	CustomerPhone string
}

// Result is the gateway's settlement outcome for one submission. Exactly one
// Result is delivered per accepted submission.
type Result struct {
	TransactionID string
	Succeeded     bool
	Reference     string // provider payment reference, set on success
	FailureReason string // set on failure
}

// CallbackFunc receives settlement results. It is invoked from the gateway's
// own goroutine, never from the submitter's.
type CallbackFunc func(Result)

// Gateway accepts payment submissions and later reports their outcome
// through the callback registered at construction time.
type Gateway interface {
	Submit(ctx context.Context, sub Submission) error
}

// ErrDuplicateSubmission is returned when a transaction id is submitted twice.
var ErrDuplicateSubmission = errors.New("paysim: transaction already submitted")
