package cells

// Derivable is a readable reactive cell: an Atom, Derivation, or Lens.
//
// Reading a Derivable while a derivation is recomputing registers it as a
// dependency of that derivation.
type Derivable[T any] interface {
	node

	// Get returns the cell's current value.
	Get() T

	// Epoch returns the cell's current epoch. It increases whenever the
	// cell's value changes and never decreases.
	Epoch() uint64

	runtime() *Runtime
	equals(a, b T) bool
}

// Mutable is a Derivable that can be written: an Atom or a Lens.
type Mutable[T any] interface {
	Derivable[T]

	// Set replaces the cell's value.
	Set(value T) error
}

// Swap sets m to f applied to its current value.
func Swap[T any](m Mutable[T], f func(T) T) error {
	return m.Set(f(m.Get()))
}

var (
	_ Mutable[int]   = (*Atom[int])(nil)
	_ Mutable[int]   = (*Lens[int])(nil)
	_ Derivable[int] = (*Derivation[int])(nil)
)
