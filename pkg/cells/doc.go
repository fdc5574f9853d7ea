// Package cells is an incremental reactive-computation engine.
//
// Cells are memoized values that stay consistent under mutation. Atoms hold
// state, derivations compute from other cells, and reactors run side effects
// when the value they observe changes. Dependencies are recorded at runtime:
// reading a cell while a derivation recomputes makes it a parent of that
// derivation.
//
// # Core Types
//
// Atom[T] is a mutable leaf cell:
//
//	rt := cells.NewRuntime()
//	x := cells.NewAtom(rt, 1)
//	x.Set(3)
//
// Derivation[T] is a lazily recomputed, memoized value:
//
//	y := cells.NewDerivation(rt, func() int { return x.Get() * 2 })
//	y.Get() // 6, recomputed only when x changes
//
// Lens[T] is a derivation that can be written back:
//
//	f := cells.NewLens(rt, cells.LensDescriptor[float64]{
//	    Get: func() float64 { return c.Get()*9/5 + 32 },
//	    Set: func(v float64) error { return c.Set((v - 32) * 5 / 9) },
//	})
//
// Reactor[T] runs a callback when its source changes:
//
//	r := cells.NewReactor(y, func(v int) error {
//	    fmt.Println("y is now", v)
//	    return nil
//	}).Start()
//	defer r.Stop()
//
// # Transactions
//
// Writes made inside a transaction are invisible outside it until the
// outermost transaction commits, at which point affected reactors run once:
//
//	err := rt.Transact(func() error {
//	    if err := a.Set(1); err != nil {
//	        return err
//	    }
//	    return b.Set(2)
//	})
//
// Returning ErrAbort rolls back without an error; any other error rolls back
// and is returned.
//
// # Threading
//
// A Runtime is single-threaded and fully synchronous: there is no scheduler
// and no deferred work. Reactions may set atoms, which runs further reactions
// before Set returns. A reaction that re-enters itself fails with a
// *CycleError instead of recursing.
package cells
