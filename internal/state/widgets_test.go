package state

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidrun/lucid/internal/testutil"
	"github.com/lucidrun/lucid/internal/wire"
)

func identityDeserializer(raw any, _ string) any { return raw }

func identitySerializer(v any) any { return v }

// newTestWidgetStore seeds one serialized entry (w1, stringified by its
// deserializer) and one value entry (w2).
func newTestWidgetStore(t *testing.T) *WidgetStore {
	t.Helper()
	w := NewWidgetStore()

	ws, err := wire.New("w1", wire.KindInt, int64(5))
	require.NoError(t, err)
	w.SetFromWire(ws)
	w.SetMetadata(&Metadata{
		ID:   "w1",
		Kind: wire.KindInt,
		Deserializer: func(raw any, _ string) any {
			return strconv.FormatInt(raw.(int64), 10)
		},
		Serializer: func(v any) any {
			n, _ := strconv.ParseInt(v.(string), 10, 64)
			return n
		},
	})

	w.SetFromValue("w2", int64(5))
	w.SetMetadata(&Metadata{
		ID:           "w2",
		Kind:         wire.KindInt,
		Deserializer: identityDeserializer,
		Serializer:   identitySerializer,
	})
	return w
}

func TestWidgetStore_GetMissingEntry(t *testing.T) {
	w := newTestWidgetStore(t)
	_, err := w.Get("nonexistent")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nonexistent", nf.Key)
}

func TestWidgetStore_GetMissingMetadata(t *testing.T) {
	w := newTestWidgetStore(t)
	delete(w.metadata, "w1")
	_, err := w.Get("w1")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestWidgetStore_GetDecodesAndMemoizes(t *testing.T) {
	w := newTestWidgetStore(t)

	_, isSerialized := w.entries["w1"].(serializedEntry)
	require.True(t, isSerialized)

	v, err := w.Get("w1")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	// The decoded form replaced the stored entry in place.
	e, isValue := w.entries["w1"].(valueEntry)
	require.True(t, isValue)
	assert.Equal(t, "5", e.v)
}

func TestWidgetStore_GetValueEntry(t *testing.T) {
	w := newTestWidgetStore(t)
	v, err := w.Get("w2")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestWidgetStore_GetJSONValue(t *testing.T) {
	w := NewWidgetStore()
	ws, err := wire.New("w3", wire.KindJSON, map[string]any{"foo": int64(5)})
	require.NoError(t, err)
	w.SetFromWire(ws)
	w.SetMetadata(&Metadata{ID: "w3", Kind: wire.KindJSON, Deserializer: identityDeserializer, Serializer: identitySerializer})

	v, err := w.Get("w3")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": int64(5)}, v)
}

func TestWidgetStore_WireForm(t *testing.T) {
	w := newTestWidgetStore(t)

	// Absent identifier and absent metadata both yield nothing.
	ws, err := w.WireForm("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, ws)

	delete(w.metadata, "w2")
	ws, err = w.WireForm("w2")
	require.NoError(t, err)
	assert.Nil(t, ws)
	w.SetMetadata(&Metadata{ID: "w2", Kind: wire.KindInt, Deserializer: identityDeserializer, Serializer: identitySerializer})

	// Serialized entry comes back as held.
	ws, err = w.WireForm("w1")
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, "w1", ws.ID)
	assert.Equal(t, int64(5), ws.Int)

	// Value entry is re-encoded through the serializer.
	ws, err = w.WireForm("w2")
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, "w2", ws.ID)
	assert.Equal(t, int64(5), ws.Int)
}

func TestWidgetStore_WireFormDecodedEntryReserializes(t *testing.T) {
	w := newTestWidgetStore(t)

	// Decode w1 ("5" as string) then re-encode through its serializer.
	_, err := w.Get("w1")
	require.NoError(t, err)

	ws, err := w.WireForm("w1")
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, int64(5), ws.Int)
}

func TestWidgetStore_WireFormArrayValue(t *testing.T) {
	w := NewWidgetStore()
	ws, err := wire.New("w1", wire.KindIntArray, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	w.SetFromWire(ws)
	w.SetMetadata(&Metadata{ID: "w1", Kind: wire.KindIntArray, Deserializer: identityDeserializer, Serializer: identitySerializer})

	got, err := w.WireForm("w1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []int64{1, 2, 3, 4}, got.IntArray)
}

func TestWidgetStore_WireFormJSONValue(t *testing.T) {
	w := NewWidgetStore()
	w.SetFromValue("w3", map[string]any{"foo": int64(5)})
	w.SetMetadata(&Metadata{ID: "w3", Kind: wire.KindJSON, Deserializer: identityDeserializer, Serializer: identitySerializer})

	got, err := w.WireForm("w3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"foo":5}`, got.JSON)
}

func TestWidgetStore_AsWireList(t *testing.T) {
	w := newTestWidgetStore(t)
	list, err := w.AsWireList()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "w1", list[0].ID)
	assert.Equal(t, int64(5), list[0].Int)
	assert.Equal(t, "w2", list[1].ID)
	assert.Equal(t, int64(5), list[1].Int)
}

func TestWidgetStore_EnumerationOrder(t *testing.T) {
	w := newTestWidgetStore(t)
	assert.Equal(t, []string{"w1", "w2"}, w.IDs())
	assert.Equal(t, 2, w.Len())

	items, err := w.Items()
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "w1", Value: "5"}, {ID: "w2", Value: int64(5)}}, items)

	values, err := w.Values()
	require.NoError(t, err)
	assert.Equal(t, []any{"5", int64(5)}, values)
}

func TestWidgetStore_InvokeCallback(t *testing.T) {
	w := newTestWidgetStore(t)

	var gotArgs []any
	var gotKwargs map[string]any
	w.SetMetadata(&Metadata{
		ID:           "w1",
		Kind:         wire.KindInt,
		Deserializer: identityDeserializer,
		Serializer:   identitySerializer,
		Callback: func(args []any, kwargs map[string]any) {
			gotArgs = args
			gotKwargs = kwargs
		},
		CallbackArgs:   []any{1},
		CallbackKwargs: map[string]any{"y": 2},
	})

	w.InvokeCallback("w1")
	assert.Equal(t, []any{1}, gotArgs)
	assert.Equal(t, map[string]any{"y": 2}, gotKwargs)

	// No callback and no metadata are both no-ops.
	w.InvokeCallback("w2")
	w.InvokeCallback("nonexistent")
}

func TestWidgetStore_RemoveStale(t *testing.T) {
	w := newTestWidgetStore(t)
	w.RemoveStale(testutil.IDSet("w1"), nil)
	assert.True(t, w.Has("w1"))
	assert.False(t, w.Has("w2"))
}

func TestWidgetStore_RemoveStaleFragmentRun(t *testing.T) {
	w := NewWidgetStore()
	widgets := []struct{ id, fragment string }{
		{"w1", "frag-a"},
		{"w2", "frag-a"},
		{"w3", "frag-b"},
	}
	for _, wd := range widgets {
		ws, err := wire.New(wd.id, wire.KindInt, int64(7))
		require.NoError(t, err)
		w.SetFromWire(ws)
		w.SetMetadata(&Metadata{
			ID:           wd.id,
			Kind:         wire.KindInt,
			Deserializer: identityDeserializer,
			Serializer:   identitySerializer,
			FragmentID:   wd.fragment,
		})
	}

	w.RemoveStale(testutil.IDSet("w1"), testutil.IDSet("frag-a"))
	assert.True(t, w.Has("w1"), "active widget in executed fragment survives")
	assert.False(t, w.Has("w2"), "stale widget in executed fragment is removed")
	assert.True(t, w.Has("w3"), "widget in a fragment that did not run is shielded")
}

func TestIsStaleWidget(t *testing.T) {
	meta := func(fragment string) *Metadata {
		return &Metadata{ID: "w1", Kind: wire.KindInt, FragmentID: fragment}
	}
	cases := []struct {
		name            string
		meta            *Metadata
		activeIDs       map[string]struct{}
		activeFragments map[string]struct{}
		want            bool
	}{
		{"missing metadata is unconditionally stale", nil, testutil.IDSet(), testutil.IDSet(), true},
		{"re-declared identifier is fresh", meta(""), testutil.IDSet("w1"), testutil.IDSet(), false},
		{"inactive fragment scope shields", meta("f1"), testutil.IDSet("w2"), testutil.IDSet(), false},
		{"unrelated fragment scope shields", meta("f1"), testutil.IDSet("w2"), testutil.IDSet("f2"), false},
		{"executed fragment without re-declaration is stale", meta("f1"), testutil.IDSet("w2"), testutil.IDSet("f1"), true},
		{"no fragment and not re-declared is stale", meta(""), testutil.IDSet("w2"), testutil.IDSet(), true},
		{"full rerun ignores fragment shielding", meta("f1"), testutil.IDSet("w2"), nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isStaleWidget(tc.meta, tc.activeIDs, tc.activeFragments))
		})
	}
}

func TestWidgetStore_DeleteAndClear(t *testing.T) {
	w := newTestWidgetStore(t)
	w.Delete("w1")
	assert.False(t, w.Has("w1"))
	assert.Equal(t, []string{"w2"}, w.IDs())
	w.Delete("w1") // no-op

	w.Clear()
	assert.Equal(t, 0, w.Len())
	_, ok := w.Metadata("w2")
	assert.False(t, ok)
}
