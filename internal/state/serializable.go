package state

import (
	"fmt"
	"reflect"
)

// probeSerializable walks a value structurally and reports the first
// constituent that cannot survive a generic deep serialization: functions,
// channels, and unsafe pointers. Cyclic values are fine; the walk tracks
// visited pointers. The probe never mutates or encodes the value.
func probeSerializable(v any) error {
	if v == nil {
		return nil
	}
	return walkSerializable(reflect.ValueOf(v), make(map[uintptr]struct{}))
}

func walkSerializable(rv reflect.Value, visited map[uintptr]struct{}) error {
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return nil
		}
		return fmt.Errorf("function values cannot be serialized")
	case reflect.Chan:
		return fmt.Errorf("channel values cannot be serialized")
	case reflect.UnsafePointer:
		return fmt.Errorf("unsafe pointers cannot be serialized")
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			addr := rv.Pointer()
			if _, seen := visited[addr]; seen {
				return nil
			}
			visited[addr] = struct{}{}
		}
		return walkSerializable(rv.Elem(), visited)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		addr := rv.Pointer()
		if _, seen := visited[addr]; seen {
			return nil
		}
		visited[addr] = struct{}{}
		iter := rv.MapRange()
		for iter.Next() {
			if err := walkSerializable(iter.Key(), visited); err != nil {
				return err
			}
			if err := walkSerializable(iter.Value(), visited); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := walkSerializable(rv.Index(i), visited); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if err := walkSerializable(rv.Field(i), visited); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
