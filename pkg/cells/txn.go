package cells

import (
	"errors"
)

// txnContext is one level of the transaction stack.
type txnContext struct {
	parent *txnContext
	name   string
	depth  int

	// shadows maps atom ID to *shadow[T], visible to this context and its
	// descendants.
	shadows map[uint64]any

	// modified lists touched atoms in first-modified order.
	modified []txnAtom

	// token is the global-epoch token as seen inside this context.
	token uint64

	closed bool
}

// shadow is a transaction-local copy of an atom's state.
type shadow[T any] struct {
	value T
	epoch uint64
}

// txnAtom is the type-erased view of an atom used by commit.
type txnAtom interface {
	ID() uint64
	promote(from, into *txnContext)
}

// put stores a shadow, recording the atom on its first modification.
func (c *txnContext) put(a txnAtom, s any) {
	if _, ok := c.shadows[a.ID()]; !ok {
		c.modified = append(c.modified, a)
	}
	c.shadows[a.ID()] = s
}

// lookupShadow finds the innermost shadow of atom id, walking outward from ctx.
func lookupShadow[T any](ctx *txnContext, id uint64) *shadow[T] {
	for c := ctx; c != nil; c = c.parent {
		if s, ok := c.shadows[id]; ok {
			return s.(*shadow[T])
		}
	}
	return nil
}

// Txn is a handle on an open transaction. Transactions nest and must be
// closed in LIFO order.
type Txn struct {
	rt  *Runtime
	ctx *txnContext
}

// Begin opens a transaction nested in the current one, if any.
func (rt *Runtime) Begin() *Txn {
	return rt.begin("")
}

func (rt *Runtime) begin(name string) *Txn {
	depth := 1
	if rt.txn != nil {
		depth = rt.txn.depth + 1
	}
	ctx := &txnContext{
		parent:  rt.txn,
		name:    name,
		depth:   depth,
		shadows: make(map[uint64]any),
		token:   rt.token(),
	}
	rt.txn = ctx

	if rt.debug {
		rt.logger.Debug("cells: transaction begin", "name", name, "depth", depth)
	}
	rt.probe.TxnBegan(name, depth)
	return &Txn{rt: rt, ctx: ctx}
}

func (t *Txn) check() error {
	if t.ctx.closed {
		return ErrTxnClosed
	}
	if t.rt.txn != t.ctx {
		return ErrTxnNotInnermost
	}
	return nil
}

// Commit closes the transaction. A nested transaction hands its changes to
// the enclosing one; the outermost applies them to the atoms and then runs
// each affected reactor once, in discovery order. The returned error is the
// first one raised by those reactions.
func (t *Txn) Commit() error {
	if err := t.check(); err != nil {
		return err
	}
	rt, ctx := t.rt, t.ctx
	ctx.closed = true
	rt.txn = ctx.parent

	var batch []Handle
	seen := make(map[uint64]struct{})
	for _, a := range ctx.modified {
		a.promote(ctx, rt.txn)
		if rt.txn == nil {
			batch = rt.collectReactors(a.ID(), batch, seen)
		}
	}
	if rt.txn == nil {
		rt.global = ctx.token
	} else {
		rt.txn.token = ctx.token
	}

	rt.ended(ctx, Committed)
	if rt.txn == nil {
		rt.flushResyncs()
	}
	return rt.react(batch)
}

// Abort closes the transaction and discards its changes.
func (t *Txn) Abort() error {
	if err := t.check(); err != nil {
		return err
	}
	t.rt.abort(t.ctx)
	return nil
}

// abort pops ctx, which must be innermost. The enclosing token still moves
// forward: derivations may have cached a token only ever visible inside ctx.
func (rt *Runtime) abort(ctx *txnContext) {
	ctx.closed = true
	rt.txn = ctx.parent
	stamp := rt.tick()
	if rt.txn == nil {
		rt.global = stamp
	} else {
		rt.txn.token = stamp
	}
	rt.ended(ctx, Aborted)
	if rt.txn == nil {
		rt.flushResyncs()
	}
}

// abortThrough aborts every open context down to and including ctx.
func (rt *Runtime) abortThrough(ctx *txnContext) {
	for rt.txn != nil && !ctx.closed {
		rt.abort(rt.txn)
	}
}

func (rt *Runtime) ended(ctx *txnContext, outcome Outcome) {
	if rt.debug {
		rt.logger.Debug("cells: transaction end",
			"name", ctx.name,
			"depth", ctx.depth,
			"outcome", outcome.String(),
			"modified", len(ctx.modified),
		)
	}
	rt.probe.TxnEnded(ctx.name, ctx.depth, outcome, len(ctx.modified))
}

// Transact runs fn in a new transaction and commits it.
//
// If fn returns an error the transaction is aborted. ErrAbort is the explicit
// abort signal and is swallowed; any other error is returned after the abort.
// If fn panics the transaction is aborted and the panic continues.
//
// Example:
//
//	err := rt.Transact(func() error {
//	    if err := from.Set(from.Get() - n); err != nil {
//	        return err
//	    }
//	    if to.Get()+n > limit {
//	        return cells.ErrAbort
//	    }
//	    return to.Set(to.Get() + n)
//	})
func (rt *Runtime) Transact(fn func() error) error {
	return rt.transact("", fn)
}

// TransactNamed is Transact with a name for logging and tracing.
func (rt *Runtime) TransactNamed(name string, fn func() error) error {
	return rt.transact(name, fn)
}

func (rt *Runtime) transact(name string, fn func() error) error {
	txn := rt.begin(name)
	defer func() {
		if !txn.ctx.closed {
			rt.abortThrough(txn.ctx)
		}
	}()

	if err := fn(); err != nil {
		rt.abortThrough(txn.ctx)
		if errors.Is(err, ErrAbort) {
			return nil
		}
		return err
	}
	if rt.txn != txn.ctx {
		// fn left a nested transaction open.
		rt.abortThrough(txn.ctx)
		return ErrTxnNotInnermost
	}
	return txn.Commit()
}

// Atomically runs fn in the active transaction, or in a new one if none is
// open. Inside an active transaction errors from fn are returned as is and the
// enclosing transaction decides what to do with them.
func (rt *Runtime) Atomically(fn func() error) error {
	if rt.txn != nil {
		return fn()
	}
	return rt.Transact(fn)
}

// Transaction wraps fn so that each call runs in its own transaction.
func (rt *Runtime) Transaction(fn func() error) func() error {
	return func() error {
		return rt.Transact(fn)
	}
}

// Atomic wraps fn so that each call runs atomically.
func (rt *Runtime) Atomic(fn func() error) func() error {
	return func() error {
		return rt.Atomically(fn)
	}
}
