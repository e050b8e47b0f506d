package factory

import (
	"github.com/hashgate/hashgate/errors"
)

var (
	// ErrPaused is returned when escrow creation is attempted while the
	// factory is paused.
	ErrPaused = errors.Register(1010, "factory paused")
)
