package catalog

import (
	"time"

	"github.com/lucidrun/lucid/internal/state"
)

// Layouts for the string formats controls can declare.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Deserializer returns the codec turning wire payloads into the value
// the script sees. A nil payload materializes the control's default
// before decoding, so a declaration ahead of any client state yields a
// usable value.
func (ctrl Control) Deserializer() state.Deserializer {
	return func(raw any, _ string) any {
		if raw == nil {
			raw = ctrl.Default
		}
		s, ok := raw.(string)
		if !ok {
			return raw
		}
		switch ctrl.Format {
		case "date":
			if t, err := time.Parse(dateLayout, s); err == nil {
				return t
			}
		case "time":
			if t, err := time.Parse(timeLayout, s); err == nil {
				return t
			}
		case "datetime":
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
		return raw
	}
}

// Serializer returns the inverse codec, encoding script values back into
// the wire payload domain.
func (ctrl Control) Serializer() state.Serializer {
	return func(v any) any {
		t, ok := v.(time.Time)
		if !ok {
			return v
		}
		switch ctrl.Format {
		case "date":
			return t.Format(dateLayout)
		case "time":
			return t.Format(timeLayout)
		case "datetime":
			return t.Format(time.RFC3339)
		}
		return v
	}
}

// Metadata builds the registration metadata for one declared instance of
// the control.
func (ctrl Control) Metadata(id, fragmentID string) *state.Metadata {
	return &state.Metadata{
		ID:           id,
		Kind:         ctrl.Kind,
		Serializer:   ctrl.Serializer(),
		Deserializer: ctrl.Deserializer(),
		FragmentID:   fragmentID,
	}
}
