/*
Package errors implements the coded errors used across hashgate.

The idea is to reuse as many root errors from this package as possible and
define custom package errors only when necessary. Domain packages (escrow,
factory) register their own roots with Register(code, description); codes
allow a client to distinguish error classes and act accordingly, for
example resubmitting after an invalid-time rejection but never after an
invalid-secret one.

There is also support for stacktraces. Ensure you create the error using
ErrXyz.New("...") or errors.Wrap(err, "...") at the point of creation to
attach a stacktrace. If you wrap multiple times, only the first wrap
records the stacktrace.

Once you have an error, you can use fmt verbs to get more context:

	%s is just the error message
	%+v is the full stack trace
	%v appends a compressed [filename:line] where the error was created
*/
package errors
