package cells

// Derivation is a memoized computed cell.
//
// The deriver runs lazily on Get and only when something it read during its
// previous run has changed epoch. While any reactor depends on the derivation
// (directly or through other derivations) it subscribes to its own parents so
// that atom writes can find those reactors; otherwise freshness is checked by
// walking the recorded parents on each read.
//
// A panic raised by the deriver propagates out of Get, leaving the previous
// value, epoch, and parent list untouched.
type Derivation[T any] struct {
	rt *Runtime
	id uint64

	deriver func() T

	value     T
	epoch     uint64
	evaluated bool

	// parents are the reads captured during the last evaluation.
	parents []parentEpoch

	// checked is the global-epoch token at the last freshness check.
	checked uint64

	// refs counts subscribed dependents.
	refs int

	// subscribed lists the distinct parents this derivation is registered
	// with while refs > 0. Inside a transaction it only grows; the
	// runtime resyncs it against parents once the outermost transaction ends.
	subscribed []node
	queued     bool

	equal func(T, T) bool
}

// NewDerivation creates a derivation computing f. f does not run until the
// first Get. A nil f panics with a *UsageError.
func NewDerivation[T any](rt *Runtime, f func() T) *Derivation[T] {
	if f == nil {
		panic(&UsageError{Op: "NewDerivation", Err: ErrNilDeriver})
	}
	return &Derivation[T]{
		rt:      rt,
		id:      nextID(),
		deriver: f,
	}
}

// ID returns the unique identifier for this derivation.
func (d *Derivation[T]) ID() uint64 {
	return d.id
}

// Get returns the derivation's value, recomputing it if needed.
func (d *Derivation[T]) Get() T {
	idx := d.rt.captureParent(d)
	d.update()
	d.rt.captureEpoch(idx, d.epoch)
	return d.value
}

// Epoch returns the derivation's epoch after bringing it up to date.
func (d *Derivation[T]) Epoch() uint64 {
	return d.currentEpoch()
}

// WithEquality returns a new derivation over the same deriver that compares
// values with fn. A nil fn restores the runtime default.
func (d *Derivation[T]) WithEquality(fn func(T, T) bool) *Derivation[T] {
	clone := NewDerivation(d.rt, d.deriver)
	clone.equal = fn
	return clone
}

// update brings the derivation up to date.
func (d *Derivation[T]) update() {
	token := d.rt.token()
	if d.evaluated && d.checked == token {
		return
	}
	if !d.evaluated {
		d.forceEval()
	} else {
		for _, p := range d.parents {
			if p.node.currentEpoch() != p.epoch {
				d.forceEval()
				break
			}
		}
	}
	d.checked = token
}

// forceEval runs the deriver and records its reads. The epoch only moves when
// the new value differs from the old one.
func (d *Derivation[T]) forceEval() {
	var next T
	captured := d.rt.captureParents(func() {
		next = d.deriver()
	})

	if !d.evaluated || !d.equals(next, d.value) {
		d.epoch = d.rt.tick()
	}
	if d.refs > 0 {
		d.resubscribe(captured)
	}

	d.parents = captured
	d.value = next
	d.evaluated = true
	d.rt.probe.Recomputed(d.id)
}

// resubscribe moves the derivation's subscriptions to the reads in next.
// Reads made inside a transaction may belong to a branch that is later
// aborted, so there the old subscriptions are kept and new ones added.
func (d *Derivation[T]) resubscribe(next []parentEpoch) {
	if d.rt.txn == nil {
		d.reconcile(next)
		return
	}
	have := make(map[uint64]struct{}, len(d.subscribed))
	for _, n := range d.subscribed {
		have[n.ID()] = struct{}{}
	}
	for _, p := range next {
		id := p.node.ID()
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		d.subscribed = append(d.subscribed, p.node)
		d.rt.addChild(id, d)
		p.node.listen()
	}
	d.rt.deferResync(d)
}

// reconcile makes the subscriptions match the distinct parents in next.
func (d *Derivation[T]) reconcile(next []parentEpoch) {
	want := make([]node, 0, len(next))
	wantIDs := make(map[uint64]struct{}, len(next))
	for _, p := range next {
		id := p.node.ID()
		if _, dup := wantIDs[id]; dup {
			continue
		}
		wantIDs[id] = struct{}{}
		want = append(want, p.node)
	}

	have := make(map[uint64]struct{}, len(d.subscribed))
	for _, n := range d.subscribed {
		have[n.ID()] = struct{}{}
		if _, ok := wantIDs[n.ID()]; !ok {
			d.rt.removeChild(n.ID(), d)
			n.unlisten()
		}
	}
	for _, n := range want {
		if _, ok := have[n.ID()]; !ok {
			d.rt.addChild(n.ID(), d)
			n.listen()
		}
	}
	d.subscribed = want
}

func (d *Derivation[T]) enqueue() bool {
	if d.queued {
		return false
	}
	d.queued = true
	return true
}

// resync brings a derivation whose subscriptions grew inside a transaction
// up to date and drops the parents it no longer reads.
func (d *Derivation[T]) resync() {
	d.queued = false
	if d.refs == 0 {
		return
	}
	d.update()
	d.reconcile(d.parents)
}

func (d *Derivation[T]) currentEpoch() uint64 {
	d.update()
	return d.epoch
}

// listen subscribes the derivation to its parents on the first dependent.
func (d *Derivation[T]) listen() {
	d.refs++
	if d.refs != 1 {
		return
	}
	d.reconcile(d.parents)
	if d.rt.txn != nil {
		d.rt.deferResync(d)
	}
}

// unlisten drops the parent subscriptions when the last dependent leaves.
func (d *Derivation[T]) unlisten() {
	if d.refs == 0 {
		return
	}
	d.refs--
	if d.refs != 0 {
		return
	}
	for _, n := range d.subscribed {
		d.rt.removeChild(n.ID(), d)
		n.unlisten()
	}
	d.subscribed = nil
}

func (d *Derivation[T]) runtime() *Runtime {
	return d.rt
}

func (d *Derivation[T]) equals(x, y T) bool {
	if d.equal != nil {
		return d.equal(x, y)
	}
	return d.rt.equals(x, y)
}
