package cells

// Handle is the type-erased view of a reactor. It is implemented only by
// *Reactor[T].
type Handle interface {
	ID() uint64
	IsActive() bool

	maybeReact() error
	isReacting() bool
	setParent(id uint64)
}

// Reactor runs a side-effecting callback whenever the value of its source
// cell changes.
//
// A reactor is created inactive. Start subscribes it to its source; from then
// on every notification pass that reaches it re-reads the source and calls the
// callback if the value changed. Stop unsubscribes it until the next Start.
//
// A reactor may have a parent reactor. During a notification pass the parent
// reacts first, so a child never sees a value its parent has not processed.
// Reactors started from inside another reactor's callback take that reactor
// as their parent.
type Reactor[T any] struct {
	rt  *Runtime
	id  uint64
	src Derivable[T]
	fn  func(T) error

	// parent is the ID of the parent reactor, 0 for none.
	parent uint64

	active   bool
	reacting bool
	yielding bool

	lastValue T
	lastEpoch uint64

	onStart func()
	onStop  func()
}

// NewReactor creates an inactive reactor on src. A nil fn panics with a
// *UsageError.
func NewReactor[T any](src Derivable[T], fn func(T) error) *Reactor[T] {
	if fn == nil {
		panic(&UsageError{Op: "NewReactor", Err: ErrNilReaction})
	}
	return &Reactor[T]{
		rt:  src.runtime(),
		id:  nextID(),
		src: src,
		fn:  fn,
	}
}

// ID returns the unique identifier for this reactor.
func (r *Reactor[T]) ID() uint64 {
	return r.id
}

// IsActive reports whether the reactor is started.
func (r *Reactor[T]) IsActive() bool {
	return r.active
}

// OnStart sets a hook run after each Start.
func (r *Reactor[T]) OnStart(fn func()) *Reactor[T] {
	r.onStart = fn
	return r
}

// OnStop sets a hook run after each Stop.
func (r *Reactor[T]) OnStop(fn func()) *Reactor[T] {
	r.onStop = fn
	return r
}

// Start records the source's current value as the baseline and subscribes
// the reactor. Starting an active reactor does nothing.
func (r *Reactor[T]) Start() *Reactor[T] {
	if r.active {
		return r
	}
	r.lastValue = r.src.Get()
	r.lastEpoch = r.src.Epoch()

	r.rt.addChild(r.src.ID(), r)
	r.src.listen()

	if p := r.rt.currentReactor(); p != nil {
		r.parent = p.ID()
	}
	r.active = true
	r.rt.reactors[r.id] = r

	if r.onStart != nil {
		r.onStart()
	}
	return r
}

// Stop unsubscribes the reactor and clears its parent link.
func (r *Reactor[T]) Stop() *Reactor[T] {
	if !r.active {
		return r
	}
	r.rt.removeChild(r.src.ID(), r)
	r.src.unlisten()

	r.parent = 0
	r.active = false
	delete(r.rt.reactors, r.id)

	if r.onStop != nil {
		r.onStop()
	}
	return r
}

// Force reads the source and runs the callback unconditionally.
func (r *Reactor[T]) Force() error {
	return r.force(r.src.Get())
}

// Orphan clears the parent link.
func (r *Reactor[T]) Orphan() *Reactor[T] {
	r.parent = 0
	return r
}

// Adopt makes r the parent of child.
func (r *Reactor[T]) Adopt(child Handle) *Reactor[T] {
	child.setParent(r.id)
	return r
}

func (r *Reactor[T]) setParent(id uint64) {
	r.parent = id
}

func (r *Reactor[T]) isReacting() bool {
	return r.reacting
}

func (r *Reactor[T]) force(value T) error {
	rt := r.rt
	rt.reacting = append(rt.reacting, r)
	r.reacting = true
	defer func() {
		r.reacting = false
		rt.reacting = rt.reacting[:len(rt.reacting)-1]
	}()

	rt.probe.Reacted(r.id)
	return r.fn(value)
}

// yieldTo lets the parent react first. The yielding mark is cleared even if
// the parent's source panics.
func (r *Reactor[T]) yieldTo(p Handle) error {
	r.yielding = true
	defer func() { r.yielding = false }()
	return p.maybeReact()
}

// maybeReact is the reactor's step in a notification pass.
func (r *Reactor[T]) maybeReact() error {
	if r.reacting || !r.active {
		return nil
	}
	if r.yielding {
		return r.rt.cycle(&CycleError{Reactor: r.id, Err: ErrReactorCycle})
	}

	if p := r.rt.reactorByID(r.parent); p != nil {
		if err := r.yieldTo(p); err != nil {
			return err
		}
	}

	// The parent may have stopped this reactor.
	if !r.active {
		return nil
	}
	next := r.src.Get()
	epoch := r.src.Epoch()
	if epoch != r.lastEpoch && !r.src.equals(next, r.lastValue) {
		if err := r.force(next); err != nil {
			return err
		}
	}
	r.lastEpoch = epoch
	r.lastValue = next
	return nil
}
