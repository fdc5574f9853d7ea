package cells

type inputKind uint8

const (
	inputValue inputKind = iota
	inputCell
	inputFunc
)

// Input is a value that may or may not be reactive. Build one with Val, Ref,
// or Fn; the zero Input is Val of the zero value.
type Input[T any] struct {
	kind  inputKind
	value T
	cell  Derivable[T]
	fn    func() T
}

// Val wraps a plain value.
func Val[T any](v T) Input[T] {
	return Input[T]{kind: inputValue, value: v}
}

// Ref wraps a cell.
func Ref[T any](d Derivable[T]) Input[T] {
	return Input[T]{kind: inputCell, cell: d}
}

// Fn wraps a computation, which is treated as a derivation.
func Fn[T any](f func() T) Input[T] {
	return Input[T]{kind: inputFunc, fn: f}
}

// IsReactive reports whether the input reads other cells.
func (in Input[T]) IsReactive() bool {
	return in.kind != inputValue
}

// Cell resolves the input into a cell on rt: a new atom for a value, a new
// derivation for a computation, or the wrapped cell itself.
func (in Input[T]) Cell(rt *Runtime) Derivable[T] {
	switch in.kind {
	case inputCell:
		return in.cell
	case inputFunc:
		return NewDerivation(rt, in.fn)
	default:
		return NewAtom(rt, in.value)
	}
}

// Unpack returns the input's current value, reading (and so depending on)
// the wrapped cell or computation if there is one.
func Unpack[T any](in Input[T]) T {
	switch in.kind {
	case inputCell:
		return in.cell.Get()
	case inputFunc:
		return in.fn()
	default:
		return in.value
	}
}
