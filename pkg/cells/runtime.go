package cells

import (
	"log/slog"
)

// Runtime holds the reactive state shared by a family of cells: the global
// epoch, the transaction stack, the capture stack, and the index of active
// dependents.
//
// A Runtime is created once at application start and is not safe for
// concurrent use. Every Get, Set, commit, and reaction runs to completion on
// the caller's goroutine; callers that share a runtime between goroutines must
// serialise access themselves.
type Runtime struct {
	// clock is the source of every epoch and global-epoch token.
	// It only moves forward, so no token is ever handed out twice.
	clock uint64

	// global is the global epoch token outside of any transaction.
	global uint64

	// txn is the innermost open transaction context, nil outside transactions.
	txn *txnContext

	// frames is the capture stack, one frame per derivation being recomputed.
	frames [][]parentEpoch

	// children indexes subscribed dependents (derivations and reactors) by the
	// ID of the cell they depend on, in subscription order.
	children map[uint64][]dependent

	// reactors indexes active reactors by ID, for resolving parent links.
	reactors map[uint64]Handle

	// reacting is the stack of reactors currently running their callback.
	// Reactors started from inside a reaction take the top as their parent.
	reacting []Handle

	// resyncs holds derivations whose subscriptions changed inside the open
	// transaction, resynced when the outermost transaction ends.
	resyncs []resyncer

	// tickers counts unreleased tickers sharing tickerTxn.
	tickers   int
	tickerTxn *Txn

	equals func(a, b any) bool
	logger *slog.Logger
	probe  Probe
	debug  bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithEquals sets the default equality used by cells without an override.
func WithEquals(fn func(a, b any) bool) Option {
	return func(rt *Runtime) {
		if fn != nil {
			rt.equals = fn
		}
	}
}

// WithLogger sets the logger for transaction and cycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithProbe installs an instrumentation probe.
func WithProbe(p Probe) Option {
	return func(rt *Runtime) {
		if p != nil {
			rt.probe = p
		}
	}
}

// WithDebug enables debug logging of transaction boundaries.
func WithDebug(debug bool) Option {
	return func(rt *Runtime) {
		rt.debug = debug
	}
}

// NewRuntime creates a runtime with the given options.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		children: make(map[uint64][]dependent),
		reactors: make(map[uint64]Handle),
		equals:   Equal,
		logger:   slog.Default(),
		probe:    NopProbe{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}
	return rt
}

// Equals reports whether a and b are equal under the runtime's default equality.
func (rt *Runtime) Equals(a, b any) bool {
	return rt.equals(a, b)
}

// InTransaction reports whether a transaction is open.
func (rt *Runtime) InTransaction() bool {
	return rt.txn != nil
}

// tick advances the clock and returns the new token.
func (rt *Runtime) tick() uint64 {
	rt.clock++
	return rt.clock
}

// token returns the global-epoch token visible at this point: the innermost
// transaction's snapshot, or the global epoch outside transactions.
func (rt *Runtime) token() uint64 {
	if rt.txn != nil {
		return rt.txn.token
	}
	return rt.global
}

// dependent is anything that can subscribe to a cell: derivations and reactors.
type dependent interface {
	ID() uint64
}

// addChild subscribes child to the cell with ID parent. Duplicate
// subscriptions are ignored.
func (rt *Runtime) addChild(parent uint64, child dependent) {
	kids := rt.children[parent]
	cid := child.ID()
	for _, k := range kids {
		if k.ID() == cid {
			return
		}
	}
	rt.children[parent] = append(kids, child)
}

// removeChild drops child from the subscribers of parent, keeping order.
func (rt *Runtime) removeChild(parent uint64, child dependent) {
	kids := rt.children[parent]
	cid := child.ID()
	for i, k := range kids {
		if k.ID() != cid {
			continue
		}
		if len(kids) == 1 {
			delete(rt.children, parent)
			return
		}
		next := make([]dependent, 0, len(kids)-1)
		next = append(next, kids[:i]...)
		next = append(next, kids[i+1:]...)
		rt.children[parent] = next
		return
	}
}

// resyncer is a derivation waiting for its subscriptions to be resynced.
type resyncer interface {
	// enqueue marks the derivation queued, reporting false if it already was.
	enqueue() bool
	resync()
}

// deferResync queues r for resync at the end of the outermost transaction.
func (rt *Runtime) deferResync(r resyncer) {
	if r.enqueue() {
		rt.resyncs = append(rt.resyncs, r)
	}
}

// flushResyncs resyncs every queued derivation. It runs outside of any
// transaction, so resyncing never queues more work.
func (rt *Runtime) flushResyncs() {
	pending := rt.resyncs
	rt.resyncs = nil
	for _, r := range pending {
		r.resync()
	}
}

// collectReactors walks the active dependents of the cell with ID parent
// depth-first, collapsing derivations into their own dependents, and appends
// every reactor not already in seen.
func (rt *Runtime) collectReactors(parent uint64, out []Handle, seen map[uint64]struct{}) []Handle {
	for _, child := range rt.children[parent] {
		r, ok := child.(Handle)
		if !ok {
			out = rt.collectReactors(child.ID(), out, seen)
			continue
		}
		if _, dup := seen[r.ID()]; dup {
			continue
		}
		seen[r.ID()] = struct{}{}
		out = append(out, r)
	}
	return out
}

// react runs one notification pass over batch. A reactor that is still
// running its own reaction aborts the pass with ErrCyclicalUpdate.
func (rt *Runtime) react(batch []Handle) error {
	for _, r := range batch {
		if r.isReacting() {
			return rt.cycle(&CycleError{Reactor: r.ID(), Err: ErrCyclicalUpdate})
		}
		if err := r.maybeReact(); err != nil {
			return err
		}
	}
	return nil
}

// cycle reports a cycle error and returns it.
func (rt *Runtime) cycle(err *CycleError) error {
	rt.logger.Warn("cells: cycle detected", "reactor", err.Reactor, "error", err.Err)
	rt.probe.Cycle(err)
	return err
}

// currentReactor returns the reactor whose callback is running, if any.
func (rt *Runtime) currentReactor() Handle {
	if n := len(rt.reacting); n > 0 {
		return rt.reacting[n-1]
	}
	return nil
}

// reactorByID resolves a parent link. Inactive reactors are not indexed.
func (rt *Runtime) reactorByID(id uint64) Handle {
	if id == 0 {
		return nil
	}
	return rt.reactors[id]
}
