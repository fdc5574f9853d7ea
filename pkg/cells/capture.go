package cells

// node is the type-erased view of a cell used by the dependency graph.
type node interface {
	ID() uint64

	// currentEpoch returns the cell's effective epoch. Derivations bring
	// themselves up to date first; atoms honour transaction shadows.
	currentEpoch() uint64

	// listen and unlisten reference-count subscribed dependents.
	listen()
	unlisten()
}

// parentEpoch records one read: the cell and its epoch at read time.
type parentEpoch struct {
	node  node
	epoch uint64
}

// captureParents runs f in a fresh capture frame and returns the reads it
// performed, in order, one entry per read. The frame is popped even if f panics.
func (rt *Runtime) captureParents(f func()) []parentEpoch {
	rt.frames = append(rt.frames, nil)
	top := len(rt.frames) - 1
	defer func() {
		rt.frames[top] = nil
		rt.frames = rt.frames[:top]
	}()
	f()
	return rt.frames[top]
}

// captureParent reserves a slot for n in the current frame and returns its
// index, or -1 when nothing is being captured.
func (rt *Runtime) captureParent(n node) int {
	top := len(rt.frames) - 1
	if top < 0 {
		return -1
	}
	rt.frames[top] = append(rt.frames[top], parentEpoch{node: n})
	return len(rt.frames[top]) - 1
}

// captureEpoch fills the epoch of a slot reserved by captureParent.
func (rt *Runtime) captureEpoch(idx int, epoch uint64) {
	if idx < 0 {
		return
	}
	top := len(rt.frames) - 1
	rt.frames[top][idx].epoch = epoch
}
