package state

import (
	"slices"

	"github.com/lucidrun/lucid/internal/wire"
)

// Serializer converts a deserialized widget value into the payload encoded
// under the metadata's value kind.
type Serializer func(value any) any

// Deserializer converts a wire payload into the widget's value. A nil raw
// payload materializes the control's default. The hint carries optional
// control-specific decoding context and may be empty.
type Deserializer func(raw any, hint string) any

// Callback is a change handler registered with a control declaration. It
// receives the positional and named arguments stored alongside it.
type Callback func(args []any, kwargs map[string]any)

// Metadata describes one declared control: its identity, wire encoding,
// serde pair, optional change callback, and the partial-rerun scope that
// owns it. Exactly one record exists per identifier; re-registration
// overwrites it.
type Metadata struct {
	ID           string
	Kind         wire.Kind
	Serializer   Serializer
	Deserializer Deserializer

	Callback       Callback
	CallbackArgs   []any
	CallbackKwargs map[string]any

	// FragmentID scopes the control to a named partial-rerun region.
	// Empty means the control belongs to the full script body.
	FragmentID string
}

// widgetEntry is the sealed two-variant union holding a widget's state:
// either the raw wire payload not yet deserialized, or the decoded value.
type widgetEntry interface {
	widgetEntry()
}

type serializedEntry struct {
	ws wire.WidgetState
}

func (serializedEntry) widgetEntry() {}

type valueEntry struct {
	v any
}

func (valueEntry) widgetEntry() {}

// WidgetStore holds the widget state accumulated during one run: an
// insertion-ordered mapping from widget identifier to entry plus the
// metadata records. Enumeration follows declaration order.
type WidgetStore struct {
	order    []string
	entries  map[string]widgetEntry
	metadata map[string]*Metadata
}

// NewWidgetStore creates an empty widget store.
func NewWidgetStore() *WidgetStore {
	return &WidgetStore{
		entries:  make(map[string]widgetEntry),
		metadata: make(map[string]*Metadata),
	}
}

func (w *WidgetStore) setEntry(id string, e widgetEntry) {
	if _, ok := w.entries[id]; !ok {
		w.order = append(w.order, id)
	}
	w.entries[id] = e
}

// SetFromWire stores a serialized entry, replacing any prior entry for the
// message's identifier.
func (w *WidgetStore) SetFromWire(ws wire.WidgetState) {
	w.setEntry(ws.ID, serializedEntry{ws: ws})
}

// SetFromValue stores an already-deserialized entry directly.
func (w *WidgetStore) SetFromValue(id string, v any) {
	w.setEntry(id, valueEntry{v: v})
}

// SetMetadata stores or overwrites the metadata record for meta.ID.
func (w *WidgetStore) SetMetadata(meta *Metadata) {
	w.metadata[meta.ID] = meta
}

// Metadata returns the metadata record for id, if any.
func (w *WidgetStore) Metadata(id string) (*Metadata, bool) {
	meta, ok := w.metadata[id]
	return meta, ok
}

// Has reports whether an entry exists for id.
func (w *WidgetStore) Has(id string) bool {
	_, ok := w.entries[id]
	return ok
}

// Get returns the deserialized value for id. A serialized entry is decoded
// through the metadata's deserializer and the decoded value replaces the
// stored form, so repeated reads decode once. Missing entries and entries
// without metadata fail with NotFoundError.
func (w *WidgetStore) Get(id string) (any, error) {
	e, ok := w.entries[id]
	if !ok {
		return nil, &NotFoundError{Key: id}
	}
	meta, ok := w.metadata[id]
	if !ok {
		return nil, &NotFoundError{Key: id}
	}
	switch entry := e.(type) {
	case valueEntry:
		return entry.v, nil
	case serializedEntry:
		raw, err := entry.ws.Payload()
		if err != nil {
			return nil, err
		}
		var v any = raw
		if meta.Deserializer != nil {
			v = meta.Deserializer(raw, "")
		}
		w.entries[id] = valueEntry{v: v}
		return v, nil
	default:
		return nil, &NotFoundError{Key: id}
	}
}

// WireForm returns the entry for id in wire form: serialized entries as
// held, value entries re-encoded through the metadata's serializer under
// its value kind. A missing identifier or missing metadata yields nil.
// Encoding failures propagate unchanged.
func (w *WidgetStore) WireForm(id string) (*wire.WidgetState, error) {
	e, ok := w.entries[id]
	if !ok {
		return nil, nil
	}
	meta, ok := w.metadata[id]
	if !ok {
		return nil, nil
	}
	switch entry := e.(type) {
	case serializedEntry:
		ws := entry.ws
		return &ws, nil
	case valueEntry:
		payload := entry.v
		if meta.Serializer != nil {
			payload = meta.Serializer(entry.v)
		}
		ws, err := wire.New(id, meta.Kind, payload)
		if err != nil {
			return nil, err
		}
		return &ws, nil
	default:
		return nil, nil
	}
}

// AsWireList returns one wire message per entry with resolvable metadata,
// in insertion order. Used by the transport layer to push the outgoing
// snapshot of widget values to the remote display.
func (w *WidgetStore) AsWireList() ([]wire.WidgetState, error) {
	out := make([]wire.WidgetState, 0, len(w.order))
	for _, id := range w.order {
		ws, err := w.WireForm(id)
		if err != nil {
			return nil, err
		}
		if ws != nil {
			out = append(out, *ws)
		}
	}
	return out, nil
}

// InvokeCallback invokes the change callback stored for id with its
// recorded arguments. No-op when the identifier, metadata, or callback is
// absent.
func (w *WidgetStore) InvokeCallback(id string) {
	meta, ok := w.metadata[id]
	if !ok || meta.Callback == nil {
		return
	}
	meta.Callback(meta.CallbackArgs, meta.CallbackKwargs)
}

// callback returns the stored callback and arguments without invoking it,
// so a synchronizing wrapper can run it outside its lock.
func (w *WidgetStore) callback(id string) (Callback, []any, map[string]any) {
	meta, ok := w.metadata[id]
	if !ok || meta.Callback == nil {
		return nil, nil, nil
	}
	return meta.Callback, meta.CallbackArgs, meta.CallbackKwargs
}

// isStaleWidget decides whether a widget survives the between-run sweep.
// Missing metadata is unconditionally stale. A re-declared identifier is
// fresh. A control scoped to a partial-rerun region that did not execute
// this cycle is presumed still valid and left alone. Everything else is
// stale. A nil activeFragmentIDs means a full rerun with no fragment
// shielding.
func isStaleWidget(meta *Metadata, activeIDs, activeFragmentIDs map[string]struct{}) bool {
	if meta == nil {
		return true
	}
	if _, ok := activeIDs[meta.ID]; ok {
		return false
	}
	if meta.FragmentID != "" && activeFragmentIDs != nil {
		if _, ran := activeFragmentIDs[meta.FragmentID]; !ran {
			return false
		}
	}
	return true
}

// RemoveStale removes every entry and metadata record judged stale against
// the identifiers re-declared this run and, for a fragment-scoped partial
// rerun, the fragment scopes that executed.
func (w *WidgetStore) RemoveStale(activeIDs, activeFragmentIDs map[string]struct{}) {
	for id := range w.entries {
		meta := w.metadata[id]
		if isStaleWidget(meta, activeIDs, activeFragmentIDs) {
			w.Delete(id)
		}
	}
	for id, meta := range w.metadata {
		if isStaleWidget(meta, activeIDs, activeFragmentIDs) {
			delete(w.metadata, id)
		}
	}
}

// Delete removes the entry and metadata for id. No-op when absent.
func (w *WidgetStore) Delete(id string) {
	if _, ok := w.entries[id]; ok {
		delete(w.entries, id)
		if i := slices.Index(w.order, id); i >= 0 {
			w.order = slices.Delete(w.order, i, i+1)
		}
	}
	delete(w.metadata, id)
}

// Len returns the number of entries.
func (w *WidgetStore) Len() int {
	return len(w.entries)
}

// IDs returns the widget identifiers in insertion order.
func (w *WidgetStore) IDs() []string {
	return slices.Clone(w.order)
}

// Item is one enumerated identifier/value pair.
type Item struct {
	ID    string
	Value any
}

// Items returns id/value pairs in insertion order, decoding lazily held
// entries as a side effect.
func (w *WidgetStore) Items() ([]Item, error) {
	out := make([]Item, 0, len(w.order))
	for _, id := range w.order {
		v, err := w.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, Item{ID: id, Value: v})
	}
	return out, nil
}

// Values returns decoded values in insertion order.
func (w *WidgetStore) Values() ([]any, error) {
	items, err := w.Items()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item.Value
	}
	return out, nil
}

// Clear drops all entries and metadata.
func (w *WidgetStore) Clear() {
	w.order = nil
	clear(w.entries)
	clear(w.metadata)
}

// resetEntries drops all entries but keeps metadata so the between-run
// staleness sweep can still judge controls that were compacted into the
// committed snapshot.
func (w *WidgetStore) resetEntries() {
	w.order = nil
	clear(w.entries)
}
