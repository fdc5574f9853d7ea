package cells

// LensDescriptor defines a lens: Get computes the lens value from other
// cells, Set writes a new value back to them.
type LensDescriptor[T any] struct {
	Get func() T
	Set func(T) error
}

// Lens is a derivation that can also be written. Writes run the descriptor's
// Set atomically, so every atom it touches commits together or not at all.
type Lens[T any] struct {
	*Derivation[T]
	desc LensDescriptor[T]
}

// NewLens creates a lens from desc. Both functions are required.
func NewLens[T any](rt *Runtime, desc LensDescriptor[T]) *Lens[T] {
	if desc.Get == nil || desc.Set == nil {
		panic(&UsageError{Op: "NewLens", Err: ErrNilDeriver})
	}
	return &Lens[T]{
		Derivation: NewDerivation(rt, desc.Get),
		desc:       desc,
	}
}

// Set writes value through the descriptor inside a transaction, joining the
// active one if there is one. An error from the descriptor aborts it.
func (l *Lens[T]) Set(value T) error {
	return l.rt.Atomically(func() error {
		return l.desc.Set(value)
	})
}

// Swap sets the lens to f applied to its current value.
func (l *Lens[T]) Swap(f func(T) T) error {
	return l.Set(f(l.Get()))
}

// WithEquality returns a new lens with the same descriptor that compares
// values with fn.
func (l *Lens[T]) WithEquality(fn func(T, T) bool) *Lens[T] {
	clone := NewLens(l.rt, l.desc)
	clone.equal = fn
	return clone
}

// Focus builds a lens onto part of src: get extracts the part, set returns a
// copy of the whole with the part replaced.
func Focus[S, T any](src Mutable[S], get func(S) T, set func(S, T) S) *Lens[T] {
	return NewLens(src.runtime(), LensDescriptor[T]{
		Get: func() T {
			return get(src.Get())
		},
		Set: func(v T) error {
			return src.Set(set(src.Get(), v))
		},
	})
}
