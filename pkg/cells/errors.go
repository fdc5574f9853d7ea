package cells

import (
	"errors"
	"fmt"
)

// ErrCyclicalUpdate is returned when a notification pass reaches a reactor that
// is still running its own reaction, e.g. a reaction that sets its own source.
var ErrCyclicalUpdate = errors.New("cells: cyclical update detected")

// ErrReactorCycle is returned when reactors wait on each other through their
// parent links.
var ErrReactorCycle = errors.New("cells: reactor dependency cycle detected")

// ErrAbort is the explicit abort signal for Transact. Returning it (or an error
// wrapping it) rolls the transaction back without reporting a failure.
var ErrAbort = errors.New("cells: transaction aborted")

// ErrNilReaction is returned when a reactor is created without a callback.
var ErrNilReaction = errors.New("cells: reaction callback is nil")

// ErrNilDeriver is reported when a derivation or lens is created without a
// computation.
var ErrNilDeriver = errors.New("cells: deriver is nil")

// ErrTxnNotInnermost is returned when a transaction is closed while a nested
// transaction is still open.
var ErrTxnNotInnermost = errors.New("cells: transaction is not the innermost")

// ErrTxnClosed is returned when a transaction handle is used after commit or abort.
var ErrTxnClosed = errors.New("cells: transaction already closed")

// ErrTickerReleased is returned when a ticker is used after Release.
var ErrTickerReleased = errors.New("cells: ticker already released")

// CycleError reports a structural cycle found while running reactions.
type CycleError struct {
	// Reactor is the ID of the reactor that was re-entered.
	Reactor uint64

	// Err is ErrCyclicalUpdate or ErrReactorCycle.
	Err error
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%v (reactor %d)", e.Err, e.Reactor)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *CycleError) Unwrap() error {
	return e.Err
}

// UsageError reports a malformed call into the package.
type UsageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *UsageError) Unwrap() error {
	return e.Err
}
