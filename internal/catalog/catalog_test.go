package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidrun/lucid/internal/wire"
)

func TestLoadBuiltin(t *testing.T) {
	cat, err := LoadBuiltin()
	require.NoError(t, err)
	assert.Equal(t, 19, cat.Len())

	cases := []struct {
		name   string
		kind   wire.Kind
		format string
		def    any
	}{
		{"checkbox", wire.KindBool, "", false},
		{"button", wire.KindTrigger, "", false},
		{"slider", wire.KindDouble, "", float64(0)},
		{"stepper", wire.KindInt, "", int64(0)},
		{"text_input", wire.KindString, "", ""},
		{"selectbox", wire.KindInt, "", int64(0)},
		{"multiselect", wire.KindIntArray, "", []int64{}},
		{"range_slider", wire.KindDoubleArray, "", []float64{0, 1}},
		{"tags_input", wire.KindStringArray, "", []string{}},
		{"date_input", wire.KindString, "date", "1970-01-01"},
		{"time_input", wire.KindString, "time", "00:00:00"},
		{"datetime_input", wire.KindString, "datetime", "1970-01-01T00:00:00Z"},
		{"color_picker", wire.KindString, "color", "#000000"},
		{"file_upload", wire.KindBytes, "", []byte{}},
		{"data_editor", wire.KindJSON, "", map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl, ok := cat.Lookup(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.name, ctrl.Name)
			assert.Equal(t, tc.kind, ctrl.Kind)
			assert.Equal(t, tc.format, ctrl.Format)
			assert.Equal(t, tc.def, ctrl.Default)
		})
	}
}

func TestLoadBuiltin_NamesSorted(t *testing.T) {
	cat, err := LoadBuiltin()
	require.NoError(t, err)

	names := cat.Names()
	require.Len(t, names, cat.Len())
	assert.IsNonDecreasing(t, names)

	controls := cat.Controls()
	require.Len(t, controls, cat.Len())
	for i, ctrl := range controls {
		assert.Equal(t, names[i], ctrl.Name)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name   string
		source string
	}{
		{"syntax error", `controls: {`},
		{"missing controls section", `widgets: {}`},
		{"missing kind", `controls: slider: {default: 0.0}`},
		{"unknown kind", `controls: slider: {kind: "float_value", default: 0.0}`},
		{"missing default", `controls: slider: {kind: "double_value"}`},
		{"default does not fit kind", `controls: slider: {kind: "double_value", default: "big"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.source)
			assert.Error(t, err)
		})
	}
}

func TestLoad_CustomCatalog(t *testing.T) {
	cat, err := Load(`controls: knob: {kind: "double_value", default: 0.5}`)
	require.NoError(t, err)

	ctrl, ok := cat.Lookup("knob")
	require.True(t, ok)
	assert.Equal(t, wire.KindDouble, ctrl.Kind)
	assert.Equal(t, 0.5, ctrl.Default)

	_, ok = cat.Lookup("slider")
	assert.False(t, ok)
}

func TestCatalogError_Format(t *testing.T) {
	_, err := Load(`controls: slider: {kind: "float_value", default: 0.0}`)
	var ce *CatalogError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "float_value")
	assert.Contains(t, ce.Error(), "controls.slider.kind")
}

func TestSerde_Defaults(t *testing.T) {
	cat, err := LoadBuiltin()
	require.NoError(t, err)

	cases := []struct {
		control string
		want    any
	}{
		{"checkbox", false},
		{"slider", float64(0)},
		{"text_input", ""},
		{"multiselect", []int64{}},
		{"date_input", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"color_picker", "#000000"},
		{"data_editor", map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.control, func(t *testing.T) {
			ctrl, ok := cat.Lookup(tc.control)
			require.True(t, ok)
			assert.Equal(t, tc.want, ctrl.Deserializer()(nil, ""))
		})
	}
}

func TestSerde_RoundTrip(t *testing.T) {
	cat, err := LoadBuiltin()
	require.NoError(t, err)

	cases := []struct {
		control string
		payload any
		value   any
	}{
		{"checkbox", true, true},
		{"slider", 7.5, 7.5},
		{"date_input", "2026-08-24", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)},
		{"time_input", "13:45:10", time.Date(0, 1, 1, 13, 45, 10, 0, time.UTC)},
		{"datetime_input", "2026-08-24T13:45:10Z", time.Date(2026, 8, 24, 13, 45, 10, 0, time.UTC)},
		{"color_picker", "#ff8800", "#ff8800"},
	}
	for _, tc := range cases {
		t.Run(tc.control, func(t *testing.T) {
			ctrl, ok := cat.Lookup(tc.control)
			require.True(t, ok)

			got := ctrl.Deserializer()(tc.payload, "")
			assert.Equal(t, tc.value, got)
			assert.Equal(t, tc.payload, ctrl.Serializer()(got))
		})
	}
}

func TestSerde_MalformedStringPassesThrough(t *testing.T) {
	cat, err := LoadBuiltin()
	require.NoError(t, err)

	ctrl, ok := cat.Lookup("date_input")
	require.True(t, ok)
	assert.Equal(t, "not a date", ctrl.Deserializer()("not a date", ""))
}

func TestControl_Metadata(t *testing.T) {
	cat, err := LoadBuiltin()
	require.NoError(t, err)

	ctrl, ok := cat.Lookup("slider")
	require.True(t, ok)

	meta := ctrl.Metadata("w1", "frag-a")
	assert.Equal(t, "w1", meta.ID)
	assert.Equal(t, wire.KindDouble, meta.Kind)
	assert.Equal(t, "frag-a", meta.FragmentID)
	assert.Equal(t, float64(0), meta.Deserializer(nil, ""))
	assert.Equal(t, 2.5, meta.Serializer(2.5))
}
