package wire

import (
	"fmt"
	"slices"
)

// Kind identifies which variant of the wire encoding a widget value uses.
// The tag names mirror the field names of the transport message's oneof.
type Kind string

const (
	KindBool        Kind = "bool_value"
	KindInt         Kind = "int_value"
	KindDouble      Kind = "double_value"
	KindString      Kind = "string_value"
	KindTrigger     Kind = "trigger_value"
	KindBytes       Kind = "bytes_value"
	KindIntArray    Kind = "int_array_value"
	KindDoubleArray Kind = "double_array_value"
	KindStringArray Kind = "string_array_value"
	KindJSON        Kind = "json_value"
)

// Kinds lists every supported value kind.
var Kinds = []Kind{
	KindBool,
	KindInt,
	KindDouble,
	KindString,
	KindTrigger,
	KindBytes,
	KindIntArray,
	KindDoubleArray,
	KindStringArray,
	KindJSON,
}

// Valid reports whether k is a supported value kind.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// WidgetState is a single widget value in wire form. Exactly one payload
// field is meaningful, selected by Kind. JSON payloads are held as their
// canonical JSON text.
type WidgetState struct {
	ID   string
	Kind Kind

	Bool        bool
	Int         int64
	Double      float64
	Str         string
	Bytes       []byte
	IntArray    []int64
	DoubleArray []float64
	StringArray []string
	JSON        string
}

// New constructs a WidgetState carrying payload under the given kind.
// Numeric payloads are coerced across Go's integer widths; array payloads
// accept []any element-wise (as produced by YAML and JSON decoding).
func New(id string, kind Kind, payload any) (WidgetState, error) {
	ws := WidgetState{ID: id, Kind: kind}
	var err error
	switch kind {
	case KindBool, KindTrigger:
		b, ok := payload.(bool)
		if !ok {
			return ws, fmt.Errorf("widget %q: %s payload must be bool, got %T", id, kind, payload)
		}
		ws.Bool = b
	case KindInt:
		ws.Int, err = toInt64(payload)
		if err != nil {
			return ws, fmt.Errorf("widget %q: %w", id, err)
		}
	case KindDouble:
		ws.Double, err = toFloat64(payload)
		if err != nil {
			return ws, fmt.Errorf("widget %q: %w", id, err)
		}
	case KindString:
		s, ok := payload.(string)
		if !ok {
			return ws, fmt.Errorf("widget %q: string payload must be string, got %T", id, payload)
		}
		ws.Str = s
	case KindBytes:
		b, ok := payload.([]byte)
		if !ok {
			return ws, fmt.Errorf("widget %q: bytes payload must be []byte, got %T", id, payload)
		}
		ws.Bytes = slices.Clone(b)
	case KindIntArray:
		ws.IntArray, err = toInt64Slice(payload)
		if err != nil {
			return ws, fmt.Errorf("widget %q: %w", id, err)
		}
	case KindDoubleArray:
		ws.DoubleArray, err = toFloat64Slice(payload)
		if err != nil {
			return ws, fmt.Errorf("widget %q: %w", id, err)
		}
	case KindStringArray:
		ws.StringArray, err = toStringSlice(payload)
		if err != nil {
			return ws, fmt.Errorf("widget %q: %w", id, err)
		}
	case KindJSON:
		text, err := MarshalCanonical(payload)
		if err != nil {
			return ws, fmt.Errorf("widget %q: json payload: %w", id, err)
		}
		ws.JSON = string(text)
	default:
		return ws, fmt.Errorf("widget %q: unsupported value kind %q", id, kind)
	}
	return ws, nil
}

// Payload extracts the value carried under the message's kind. JSON
// payloads are decoded into Go values (integral numbers as int64,
// everything else as float64).
func (ws WidgetState) Payload() (any, error) {
	switch ws.Kind {
	case KindBool, KindTrigger:
		return ws.Bool, nil
	case KindInt:
		return ws.Int, nil
	case KindDouble:
		return ws.Double, nil
	case KindString:
		return ws.Str, nil
	case KindBytes:
		return slices.Clone(ws.Bytes), nil
	case KindIntArray:
		return slices.Clone(ws.IntArray), nil
	case KindDoubleArray:
		return slices.Clone(ws.DoubleArray), nil
	case KindStringArray:
		return slices.Clone(ws.StringArray), nil
	case KindJSON:
		return Unmarshal([]byte(ws.JSON))
	default:
		return nil, fmt.Errorf("widget %q: unsupported value kind %q", ws.ID, ws.Kind)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return 0, fmt.Errorf("int payload must be integral, got %v", n)
	default:
		return 0, fmt.Errorf("int payload must be an integer, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("double payload must be numeric, got %T", v)
	}
}

func toInt64Slice(v any) ([]int64, error) {
	switch s := v.(type) {
	case []int64:
		return slices.Clone(s), nil
	case []int:
		out := make([]int64, len(s))
		for i, n := range s {
			out[i] = int64(n)
		}
		return out, nil
	case []any:
		out := make([]int64, len(s))
		for i, e := range s {
			n, err := toInt64(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("int array payload must be a slice of integers, got %T", v)
	}
}

func toFloat64Slice(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return slices.Clone(s), nil
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			n, err := toFloat64(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("double array payload must be a slice of numbers, got %T", v)
	}
}

func toStringSlice(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return slices.Clone(s), nil
	case []any:
		out := make([]string, len(s))
		for i, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: string array payload must hold strings, got %T", i, e)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("string array payload must be a slice of strings, got %T", v)
	}
}
