package cells

// Atom is a mutable leaf cell.
//
// Outside a transaction, Set stores the value immediately and runs every
// reactor that depends on the atom before returning. Inside a transaction the
// new value is kept in the transaction's shadow state until the outermost
// transaction commits.
type Atom[T any] struct {
	rt *Runtime
	id uint64

	// value and epoch are the committed state.
	value T
	epoch uint64

	// equal overrides the runtime's default equality when non-nil.
	equal func(T, T) bool
}

// NewAtom creates an atom holding initial.
func NewAtom[T any](rt *Runtime, initial T) *Atom[T] {
	return &Atom[T]{
		rt:    rt,
		id:    nextID(),
		value: initial,
	}
}

// ID returns the unique identifier for this atom.
func (a *Atom[T]) ID() uint64 {
	return a.id
}

// Get returns the value visible from the current transaction, or the
// committed value outside transactions.
func (a *Atom[T]) Get() T {
	if sh := lookupShadow[T](a.rt.txn, a.id); sh != nil {
		a.rt.captureEpoch(a.rt.captureParent(a), sh.epoch)
		return sh.value
	}
	a.rt.captureEpoch(a.rt.captureParent(a), a.epoch)
	return a.value
}

// Epoch returns the epoch visible from the current transaction.
func (a *Atom[T]) Epoch() uint64 {
	return a.currentEpoch()
}

// Set stores value. Outside a transaction it returns the first error raised
// by the reactions it triggers, including *CycleError.
func (a *Atom[T]) Set(value T) error {
	rt := a.rt
	if ctx := rt.txn; ctx != nil {
		a.setShadow(ctx, value)
		return nil
	}
	if a.equals(value, a.value) {
		return nil
	}
	a.value = value
	a.epoch = rt.tick()
	rt.global = a.epoch
	return rt.react(rt.collectReactors(a.id, nil, make(map[uint64]struct{})))
}

// Swap sets the atom to f applied to its current value.
func (a *Atom[T]) Swap(f func(T) T) error {
	return a.Set(f(a.Get()))
}

// WithEquality returns a new atom with the same committed value that compares
// values with fn. A nil fn restores the runtime default. The original atom is
// not changed.
func (a *Atom[T]) WithEquality(fn func(T, T) bool) *Atom[T] {
	clone := NewAtom(a.rt, a.value)
	clone.equal = fn
	return clone
}

// setShadow records value in ctx, copying on write from the nearest enclosing
// context that already shadows the atom.
func (a *Atom[T]) setShadow(ctx *txnContext, value T) {
	if s, ok := ctx.shadows[a.id]; ok {
		sh := s.(*shadow[T])
		if !a.equals(value, sh.value) {
			sh.epoch = a.rt.tick()
			ctx.token = sh.epoch
		}
		sh.value = value
		return
	}

	prev := a.value
	if sh := lookupShadow[T](ctx.parent, a.id); sh != nil {
		prev = sh.value
	}
	if a.equals(prev, value) {
		return
	}
	stamp := a.rt.tick()
	ctx.token = stamp
	ctx.put(a, &shadow[T]{value: value, epoch: stamp})
}

// promote moves the atom's shadow in from into the enclosing context, or
// into the atom itself when from was the outermost transaction. The shadow
// epoch is kept so that epochs captured inside the transaction stay valid.
func (a *Atom[T]) promote(from, into *txnContext) {
	sh := from.shadows[a.id].(*shadow[T])
	if into != nil {
		into.put(a, &shadow[T]{value: sh.value, epoch: sh.epoch})
		return
	}
	a.value = sh.value
	a.epoch = sh.epoch
}

func (a *Atom[T]) currentEpoch() uint64 {
	if sh := lookupShadow[T](a.rt.txn, a.id); sh != nil {
		return sh.epoch
	}
	return a.epoch
}

// Atoms have no parents, so there is nothing to subscribe to.
func (a *Atom[T]) listen()   {}
func (a *Atom[T]) unlisten() {}

func (a *Atom[T]) runtime() *Runtime {
	return a.rt
}

func (a *Atom[T]) equals(x, y T) bool {
	if a.equal != nil {
		return a.equal(x, y)
	}
	return a.rt.equals(x, y)
}
