package cells

import (
	"math"
	"reflect"
)

// Equaler is implemented by values that define their own equality.
// Equal is consulted by the default equality before any structural comparison.
type Equaler interface {
	Equal(other any) bool
}

// Equal is the default equality used by cells that have no override.
//
// Floats compare by value identity: NaN equals NaN, and +0 differs from -0.
// This includes named float types such as `type Celsius float64`. Scalars use
// ==, Equaler values delegate to their Equal method, and everything else falls
// back to reflect.DeepEqual. Floats nested in structs, slices or maps are
// compared by DeepEqual, where NaN never equals NaN; give such types an Equal
// method if they can hold NaN.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && sameFloat(av, bv)
	case float32:
		bv, ok := b.(float32)
		return ok && sameFloat(float64(av), float64(bv))
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case Equaler:
		return av.Equal(b)
	default:
		return equalReflect(a, b)
	}
}

func equalReflect(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !bv.IsValid() || av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Float32, reflect.Float64:
		return sameFloat(av.Float(), bv.Float())
	}
	return reflect.DeepEqual(a, b)
}

// sameFloat implements the SameValue comparison for floats.
func sameFloat(a, b float64) bool {
	if a == b {
		// +0 and -0 compare == but are distinct values.
		return a != 0 || math.Signbit(a) == math.Signbit(b)
	}
	return math.IsNaN(a) && math.IsNaN(b)
}
