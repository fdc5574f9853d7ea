package cells

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestReactorFiresOnChange(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	y := NewDerivation(rt, func() int { return x.Get() * 2 })

	var log []int
	r := NewReactor[int](y, func(v int) error {
		log = append(log, v)
		return nil
	})
	if r.IsActive() {
		t.Error("new reactor should be inactive")
	}

	x.Set(2)
	if len(log) != 0 {
		t.Errorf("inactive reactor should not fire, got %v", log)
	}

	r.Start()
	if !r.IsActive() {
		t.Error("expected reactor to be active")
	}
	if len(log) != 0 {
		t.Errorf("Start should not fire, got %v", log)
	}

	x.Set(4)
	x.Set(4)
	x.Set(5)
	if !reflect.DeepEqual(log, []int{8, 10}) {
		t.Errorf("expected [8 10], got %v", log)
	}

	r.Stop()
	x.Set(6)
	if len(log) != 2 {
		t.Errorf("stopped reactor should not fire, got %v", log)
	}
}

func TestReactorForce(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, "a")
	var log []string
	r := NewReactor[string](x, func(v string) error {
		log = append(log, v)
		return nil
	})

	if err := r.Force(); err != nil {
		t.Fatalf("Force: %v", err)
	}
	if err := r.Start().Force(); err != nil {
		t.Fatalf("Force: %v", err)
	}
	if !reflect.DeepEqual(log, []string{"a", "a"}) {
		t.Errorf("expected [a a], got %v", log)
	}
}

func TestReactorSkipsEqualValues(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, math.NaN())
	calls := 0
	NewReactor[float64](x, func(float64) error {
		calls++
		return nil
	}).Start()

	x.Set(math.NaN())
	if calls != 0 {
		t.Errorf("NaN over NaN should not react, got %d calls", calls)
	}

	x.Set(1.5)
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestReactorStopAndRestart(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	var log []int
	starts, stops := 0, 0
	r := NewReactor[int](x, func(v int) error {
		log = append(log, v)
		return nil
	}).OnStart(func() { starts++ }).OnStop(func() { stops++ })

	r.Start()
	r.Start()
	x.Set(2)
	r.Stop()
	r.Stop()
	x.Set(3)
	r.Start()
	x.Set(4)

	if !reflect.DeepEqual(log, []int{2, 4}) {
		t.Errorf("expected [2 4], got %v", log)
	}
	if starts != 2 || stops != 1 {
		t.Errorf("expected 2 starts and 1 stop, got %d/%d", starts, stops)
	}
}

func TestReactorErrorPropagates(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	bad := errors.New("bad")
	NewReactor[int](x, func(v int) error {
		if v < 0 {
			return bad
		}
		return nil
	}).Start()

	if err := x.Set(-1); err != bad {
		t.Errorf("expected bad, got %v", err)
	}
	if x.Get() != -1 {
		t.Errorf("the write itself stands, got %d", x.Get())
	}
}

func TestReactorCyclicalUpdate(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 0)
	var cycles []error
	rt.probe = probeFunc(func(err error) { cycles = append(cycles, err) })

	NewReactor[int](x, func(v int) error {
		return x.Set(v + 1)
	}).Start()

	err := x.Set(1)
	if !errors.Is(err, ErrCyclicalUpdate) {
		t.Fatalf("expected ErrCyclicalUpdate, got %v", err)
	}
	var ce *CycleError
	if !errors.As(err, &ce) || ce.Reactor == 0 {
		t.Errorf("expected *CycleError with a reactor ID, got %#v", err)
	}
	if len(cycles) != 1 {
		t.Errorf("expected the probe to see 1 cycle, got %d", len(cycles))
	}
}

func TestReactorParentCycle(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 0)
	noop := func(int) error { return nil }

	r1 := NewReactor[int](a, noop).Start()
	r2 := NewReactor[int](a, noop).Start()
	r1.Adopt(r2)
	r2.Adopt(r1)

	err := a.Set(1)
	if !errors.Is(err, ErrReactorCycle) {
		t.Errorf("expected ErrReactorCycle, got %v", err)
	}
	if r1.yielding || r2.yielding {
		t.Error("yielding flags should be cleared")
	}

	r2.Orphan()
	if err := a.Set(2); err != nil {
		t.Errorf("expected no error after Orphan, got %v", err)
	}
}

func TestReactorParentReactsFirst(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 0)
	var log []string

	child := NewReactor[int](x, func(int) error {
		log = append(log, "child")
		return nil
	}).Start()
	parent := NewReactor[int](x, func(int) error {
		log = append(log, "parent")
		return nil
	}).Start()
	parent.Adopt(child)

	x.Set(1)
	if !reflect.DeepEqual(log, []string{"parent", "child"}) {
		t.Errorf("expected [parent child], got %v", log)
	}
}

func TestReactorStartedInsideReactionIsChild(t *testing.T) {
	rt := NewRuntime()
	show := NewAtom(rt, false)
	x := NewAtom(rt, 0)
	var child *Reactor[int]
	var log []int

	parent := NewReactor[bool](show, func(on bool) error {
		if on && child == nil {
			child = NewReactor[int](x, func(v int) error {
				log = append(log, v)
				return nil
			}).Start()
		}
		if !on && child != nil {
			child.Stop()
		}
		return nil
	}).Start()

	show.Set(true)
	if child == nil || child.parent != parent.ID() {
		t.Fatal("expected child to be parented to the running reactor")
	}

	x.Set(1)
	show.Set(false)
	x.Set(2)
	if !reflect.DeepEqual(log, []int{1}) {
		t.Errorf("expected [1], got %v", log)
	}
	if child.parent != 0 {
		t.Error("Stop should clear the parent link")
	}
}

func TestParentStoppingChildSkipsIt(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 0)
	childCalls := 0

	child := NewReactor[int](x, func(int) error {
		childCalls++
		return nil
	}).Start()
	parent := NewReactor[int](x, func(v int) error {
		if v > 1 {
			child.Stop()
		}
		return nil
	}).Start()
	parent.Adopt(child)

	x.Set(1)
	x.Set(2)
	if childCalls != 1 {
		t.Errorf("expected 1 child call, got %d", childCalls)
	}
}

func TestParentPanicDoesNotWedgeChild(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 0)
	boom := NewDerivation(rt, func() int {
		v := x.Get()
		if v == 2 {
			panic("boom")
		}
		return v
	})

	var childLog, parentLog []int
	child := NewReactor[int](x, func(v int) error {
		childLog = append(childLog, v)
		return nil
	}).Start()
	parent := NewReactor[int](boom, func(v int) error {
		parentLog = append(parentLog, v)
		return nil
	}).Start()
	parent.Adopt(child)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the derivation panic to reach Set")
			}
		}()
		x.Set(2)
	}()
	if child.yielding {
		t.Error("child should not be left yielding after the panic")
	}

	if err := x.Set(3); err != nil {
		t.Fatalf("Set after recovered panic: %v", err)
	}
	if !reflect.DeepEqual(parentLog, []int{3}) {
		t.Errorf("expected parent [3], got %v", parentLog)
	}
	if !reflect.DeepEqual(childLog, []int{3}) {
		t.Errorf("expected child [3], got %v", childLog)
	}
}

func TestNewReactorNilPanics(t *testing.T) {
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrNilReaction) {
			t.Errorf("expected ErrNilReaction panic, got %v", err)
		}
	}()
	NewReactor[int](NewAtom(NewRuntime(), 0), nil)
}

// probeFunc records cycles and ignores everything else.
type probeFunc func(err error)

func (probeFunc) Recomputed(uint64)                  {}
func (probeFunc) Reacted(uint64)                     {}
func (probeFunc) TxnBegan(string, int)               {}
func (probeFunc) TxnEnded(string, int, Outcome, int) {}
func (f probeFunc) Cycle(err error)                  { f(err) }
