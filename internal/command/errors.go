package command

import "errors"

var (
	// ErrNotApproved is returned when evidence is requested for a portfolio
	// that has not passed its stage gate.
	ErrNotApproved = errors.New("evidence export requires APPROVED status")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCreditsExhausted is returned when the ACU balance cannot pay for an
	// AI request.
	ErrCreditsExhausted = errors.New("ACU balance is zero, further AI commands are not allowed")
)

// ErrUnknownCommand is returned by Execute for a name it does not route.
var ErrUnknownCommand = errors.New("unknown command")
