package cells

import (
	"errors"
	"reflect"
	"testing"
)

func recorder[T any](log *[]T) func(T) error {
	return func(v T) error {
		*log = append(*log, v)
		return nil
	}
}

func TestReactCallsImmediately(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	var log []int

	r, err := React[int](x, recorder(&log))
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if !r.IsActive() {
		t.Error("expected reactor to be active")
	}
	x.Set(2)
	x.Set(2)
	x.Set(3)
	if !reflect.DeepEqual(log, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", log)
	}
}

func TestReactSkipFirst(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	y := NewDerivation(rt, func() int { return x.Get() * 2 })
	var log []int

	if _, err := React[int](y, recorder(&log), SkipFirst()); err != nil {
		t.Fatalf("React: %v", err)
	}
	x.Set(4)
	if !reflect.DeepEqual(log, []int{8}) {
		t.Errorf("expected [8], got %v", log)
	}
}

func TestReactOnce(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, "a")
	var log []string

	r, _ := React[string](x, recorder(&log), SkipFirst(), Once())
	x.Set("b")
	x.Set("c")
	if !reflect.DeepEqual(log, []string{"b"}) {
		t.Errorf("expected [b], got %v", log)
	}
	if r.IsActive() {
		t.Error("expected reactor to stop after one call")
	}
}

func TestReactWhen(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	visible := NewAtom(rt, false)
	var log []int

	r, _ := React[int](x, recorder(&log), When(Ref[bool](visible)))
	if r.IsActive() || len(log) != 0 {
		t.Fatalf("expected an idle reaction, got %v", log)
	}

	x.Set(2)
	visible.Set(true)
	x.Set(3)
	visible.Set(false)
	x.Set(4)
	visible.Set(true)

	if !reflect.DeepEqual(log, []int{2, 3, 4}) {
		t.Errorf("expected [2 3 4], got %v", log)
	}
}

func TestReactUntil(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	done := NewAtom(rt, false)
	var log []int

	r, _ := React[int](x, recorder(&log), Until(Ref[bool](done)))
	x.Set(2)
	done.Set(true)
	x.Set(3)
	done.Set(false)
	x.Set(4)

	if !reflect.DeepEqual(log, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", log)
	}
	if r.IsActive() {
		t.Error("expected reactor to be stopped")
	}
}

func TestReactFrom(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 1)
	ready := NewAtom(rt, false)
	var log []int

	r, _ := React[int](x, recorder(&log), From(Ref[bool](ready)))
	x.Set(2)
	if r.IsActive() || len(log) != 0 {
		t.Fatalf("reaction should wait for ready, got %v", log)
	}

	ready.Set(true)
	x.Set(3)
	ready.Set(false)
	x.Set(4)

	if !reflect.DeepEqual(log, []int{2, 3, 4}) {
		t.Errorf("expected [2 3 4], got %v", log)
	}
}

func TestReactConditionFromFunc(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 0)
	var log []int

	React[int](x, recorder(&log), When(Fn(func() bool { return x.Get()%2 == 0 })))
	for i := 1; i <= 4; i++ {
		x.Set(i)
	}
	if !reflect.DeepEqual(log, []int{0, 2, 4}) {
		t.Errorf("expected [0 2 4], got %v", log)
	}
}

func TestReactHooks(t *testing.T) {
	rt := NewRuntime()
	x := NewAtom(rt, 0)
	on := NewAtom(rt, true)
	starts, stops := 0, 0

	React[int](x, func(int) error { return nil },
		When(Ref[bool](on)),
		OnStart(func() { starts++ }),
		OnStop(func() { stops++ }),
	)
	on.Set(false)
	on.Set(true)

	if starts != 2 || stops != 1 {
		t.Errorf("expected 2 starts and 1 stop, got %d/%d", starts, stops)
	}
}

func TestReactNilCallback(t *testing.T) {
	rt := NewRuntime()
	_, err := React[int](NewAtom(rt, 0), nil)
	if !errors.Is(err, ErrNilReaction) {
		t.Errorf("expected ErrNilReaction, got %v", err)
	}
	var ue *UsageError
	if !errors.As(err, &ue) || ue.Op != "React" {
		t.Errorf("expected *UsageError for React, got %#v", err)
	}
}

func TestReactInitialErrorReturned(t *testing.T) {
	rt := NewRuntime()
	fail := errors.New("fail")
	_, err := React[int](NewAtom(rt, 0), func(int) error { return fail })
	if err != fail {
		t.Errorf("expected fail, got %v", err)
	}
}
