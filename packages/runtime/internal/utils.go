package internal

import (
	"math"
	"reflect"
)

// Noop does nothing. Fragments use it for phases they do not implement.
func Noop() {}

// RunAll calls every function in order.
func RunAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// SafeNotEqual reports whether b should replace a. Maps, slices, pointers
// and functions are always considered changed because they can be mutated
// in place. NaN equals NaN.
func SafeNotEqual(a, b any) bool {
	if isObject(a) {
		return true
	}
	return !same(a, b)
}

// NotEqual is the comparison of immutable components: references compare
// by identity.
func NotEqual(a, b any) bool {
	if isObject(a) || isObject(b) {
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if va.Kind() != vb.Kind() || va.Type() != vb.Type() {
			return true
		}
		switch va.Kind() {
		case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
			if va.IsNil() != vb.IsNil() {
				return true
			}
			if va.Kind() == reflect.Slice && va.Len() != vb.Len() {
				return true
			}
			return va.Pointer() != vb.Pointer()
		}
	}
	return !same(a, b)
}

func isObject(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func same(a, b any) bool {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok && math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() || !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}
