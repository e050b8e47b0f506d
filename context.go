package hashgate

import (
	"context"
	"time"

	"github.com/tendermint/tendermint/libs/log"
)

// Context is just a std context, declared here so every operation
// signature reads the same across the engine packages.
type Context = context.Context

type contextKey int

const (
	contextKeyTime contextKey = iota
	contextKeyLogger
	contextKeyChainID
)

// DefaultLogger is used for all contexts that have not set anything
// themselves.
var DefaultLogger = log.NewNopLogger()

// WithBlockTime sets the evaluation time for all timelock checks performed
// under this context. On a chain target this is the block time; embedded
// in a process it is the wall clock captured once at the operation
// boundary, so one operation observes one consistent instant.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, contextKeyTime, t.UTC())
}

// BlockTime returns the evaluation time declared for this context.
func BlockTime(ctx Context) (time.Time, bool) {
	t, ok := ctx.Value(contextKeyTime).(time.Time)
	return t, ok
}

// MustBlockTime returns the evaluation time declared for this context.
//
// This function panics if the time is not present. That must never happen
// on a correctly wired setup. The panic is here to prevent a broken setup
// from silently resolving every timelock against the zero time.
func MustBlockTime(ctx Context) UnixTime {
	t, ok := BlockTime(ctx)
	if !ok {
		panic("block time is not present")
	}
	return AsUnixTime(t)
}

// IsExpired returns true if given time is in the past as compared to the
// "now" declared for the context. Expiration is inclusive, meaning that if
// current time is equal to the expiration time this function returns true.
func IsExpired(ctx Context, t UnixTime) bool {
	return t <= MustBlockTime(ctx)
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// GetLogger returns the logger attached to this context, or DefaultLogger
// when none was set.
func GetLogger(ctx Context) log.Logger {
	if logger, ok := ctx.Value(contextKeyLogger).(log.Logger); ok {
		return logger
	}
	return DefaultLogger
}

// WithChainID sets the identifier of the ledger this context operates on.
func WithChainID(ctx Context, chainID string) Context {
	return context.WithValue(ctx, contextKeyChainID, chainID)
}

// GetChainID returns the ledger identifier or an empty string.
func GetChainID(ctx Context) string {
	if id, ok := ctx.Value(contextKeyChainID).(string); ok {
		return id
	}
	return ""
}
