package escrow

import (
	"github.com/hashgate/hashgate/errors"
)

var (
	// ErrInvalidTime is returned when an operation is attempted outside
	// of its timelock window. Recoverable: resubmit once the window is
	// open.
	ErrInvalidTime = errors.Register(1000, "invalid time")

	// ErrInvalidCaller is returned when the caller lacks the identity or
	// capability an operation demands. Recoverable only by the correct
	// caller.
	ErrInvalidCaller = errors.Register(1001, "invalid caller")

	// ErrInvalidSecret is returned when the presented secret does not
	// hash to the escrow hashlock.
	ErrInvalidSecret = errors.Register(1002, "invalid secret")

	// ErrInvalidImmutables is returned when the presented parameter set
	// does not match the digest captured at deployment. This signals
	// caller error or tampering, never timing.
	ErrInvalidImmutables = errors.Register(1003, "invalid immutables")
)
