package state

import "reflect"

// ByteSize approximates the memory footprint of all three layers, for
// cache telemetry. The estimate is intentionally rough: exact byte values
// do not matter, only that growth tracks growth of the stored values.
func (s *SessionState) ByteSize() int {
	size := 0
	for k, v := range s.committed {
		size += len(k) + approxSize(v)
	}
	for k, v := range s.pendingDirect {
		size += len(k) + approxSize(v)
	}
	for _, id := range s.pendingWidget.IDs() {
		size += len(id)
		switch e := s.pendingWidget.entries[id].(type) {
		case valueEntry:
			size += approxSize(e.v)
		case serializedEntry:
			size += approxSize(e.ws)
		}
	}
	return size
}

func approxSize(v any) int {
	return approxSizeValue(reflect.ValueOf(v), 0)
}

const maxSizeDepth = 8

func approxSizeValue(rv reflect.Value, depth int) int {
	if !rv.IsValid() || depth > maxSizeDepth {
		return 0
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() + 16
	case reflect.Slice, reflect.Array:
		size := 24
		for i := 0; i < rv.Len(); i++ {
			size += approxSizeValue(rv.Index(i), depth+1)
		}
		return size
	case reflect.Map:
		size := 48
		iter := rv.MapRange()
		for iter.Next() {
			size += approxSizeValue(iter.Key(), depth+1)
			size += approxSizeValue(iter.Value(), depth+1)
		}
		return size
	case reflect.Struct:
		size := 0
		for i := 0; i < rv.NumField(); i++ {
			size += approxSizeValue(rv.Field(i), depth+1)
		}
		return size
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 8
		}
		return 8 + approxSizeValue(rv.Elem(), depth+1)
	default:
		return 8
	}
}
