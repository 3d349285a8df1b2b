package forms

import (
	"errors"
	"sync/atomic"

	"budgetbuddy/internal/api"
)

var ErrInFlight = errors.New("submission already in progress")

// ValidationError is a client-side check that blocked submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Guard refuses a second submission while one is in flight.
type Guard struct {
	busy atomic.Bool
}

// Begin marks a submission as started; the caller must call End.
func (g *Guard) Begin() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	return nil
}

func (g *Guard) End() {
	g.busy.Store(false)
}

func (g *Guard) Submitting() bool {
	return g.busy.Load()
}

// Message is the single display string for a failed submission.
func Message(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrInFlight):
		return "Please wait, your previous request is still being processed."
	default:
		return api.Message(err)
	}
}
