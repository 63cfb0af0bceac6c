package deals

import "errors"

// Error taxonomy for deal transitions. All are synchronous, local failures;
// the HTTP layer maps them to 4xx responses.
var (
	// ErrInvalidParticipants is returned when a user proposes a deal with themselves.
	ErrInvalidParticipants = errors.New("proposer and receiver must be different users")

	// ErrInvalidAmount is returned when a coin transfer amount is negative.
	ErrInvalidAmount = errors.New("coin transfer amounts must be non-negative")

	// ErrForbidden is returned when the actor is not authorized for the transition.
	ErrForbidden = errors.New("actor is not authorized for this transition")

	// ErrInvalidTransition is returned when the deal's current status does not
	// permit the requested transition.
	ErrInvalidTransition = errors.New("transition not allowed from current status")

	// ErrNotFound is returned when the deal does not exist.
	ErrNotFound = errors.New("deal not found")
)
