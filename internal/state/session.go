package state

import (
	"reflect"
	"sort"
	"strings"

	"github.com/lucidrun/lucid/internal/wire"
)

// Reserved keys naming the store's own layers. They are not deletable and
// behave like ordinary missing keys when deletion is attempted.
const (
	committedLayerKey = "_committed"
	directLayerKey    = "_pending_direct"
	widgetLayerKey    = "_pending_widget"
)

func isReservedKey(key string) bool {
	switch key {
	case committedLayerKey, directLayerKey, widgetLayerKey:
		return true
	}
	return false
}

// RegistrationResult reports the outcome of a control declaration: the
// widget's current value and whether the remote display needs an updated
// value pushed to it.
type RegistrationResult struct {
	Value        any
	ValueChanged bool
}

// SessionState is the three-layer merge engine for one session. It is not
// safe for concurrent use; see SafeSessionState.
type SessionState struct {
	committed     map[string]any
	pendingDirect map[string]any
	pendingWidget *WidgetStore
	registry      *Registry

	// Identifiers declared as widgets or forms in the current run.
	// Direct writes to these are rejected until the next run begins.
	widgetIDsThisRun map[string]struct{}
	formIDsThisRun   map[string]struct{}
}

// NewSessionState creates an empty store for a fresh session.
func NewSessionState() *SessionState {
	return &SessionState{
		committed:        make(map[string]any),
		pendingDirect:    make(map[string]any),
		pendingWidget:    NewWidgetStore(),
		registry:         NewRegistry(),
		widgetIDsThisRun: make(map[string]struct{}),
		formIDsThisRun:   make(map[string]struct{}),
	}
}

// BeginRun opens a new script run: the previous run's declarations are
// forgotten, lifting the direct-write protection window until this run's
// declarations arrive.
func (s *SessionState) BeginRun() {
	s.widgetIDsThisRun = make(map[string]struct{})
	s.formIDsThisRun = make(map[string]struct{})
}

// RegisterForm marks a form container as declared this run. Form IDs are
// write-protected the same way widget identifiers are.
func (s *SessionState) RegisterForm(formID string) {
	s.formIDsThisRun[formID] = struct{}{}
}

// resolveID maps a caller key to its widget identifier, falling back to
// the key itself for orphan widgets addressed by their bare identifier.
func (s *SessionState) resolveID(key string) string {
	if id, ok := s.registry.IDForKey(key); ok {
		return id
	}
	return key
}

// Get resolves key across the three layers: a direct write recorded this
// run wins, then a registered widget's pending value, then the committed
// snapshot. A widget lookup that fails on missing metadata falls through
// to the committed layer.
func (s *SessionState) Get(key string) (any, error) {
	if v, ok := s.pendingDirect[key]; ok {
		return v, nil
	}
	id := s.resolveID(key)
	if s.pendingWidget.Has(id) {
		if v, err := s.pendingWidget.Get(id); err == nil {
			return v, nil
		}
	}
	if v, ok := s.committed[key]; ok {
		return v, nil
	}
	return nil, &NotFoundError{Key: key}
}

// Set records a direct write under key. Writing to a key bound to a widget
// or form declared earlier in the current run fails with
// ProtectedWriteError.
func (s *SessionState) Set(key string, value any) error {
	id := s.resolveID(key)
	if _, ok := s.widgetIDsThisRun[id]; ok {
		return &ProtectedWriteError{Key: key}
	}
	if _, ok := s.formIDsThisRun[key]; ok {
		return &ProtectedWriteError{Key: key}
	}
	s.pendingDirect[key] = value
	return nil
}

// Delete removes key from every layer currently holding it along with its
// registry binding. Reserved layer keys and missing keys fail with
// NotFoundError.
func (s *SessionState) Delete(key string) error {
	if isReservedKey(key) {
		return &NotFoundError{Key: key}
	}
	if !s.Has(key) {
		return &NotFoundError{Key: key}
	}
	delete(s.pendingDirect, key)
	delete(s.committed, key)
	id := s.resolveID(key)
	if s.pendingWidget.Has(id) {
		s.pendingWidget.Delete(id)
	}
	s.registry.Delete(key)
	return nil
}

// Has reports whether key is visible in any layer.
func (s *SessionState) Has(key string) bool {
	if _, ok := s.pendingDirect[key]; ok {
		return true
	}
	if _, ok := s.committed[key]; ok {
		return true
	}
	return s.pendingWidget.Has(s.resolveID(key))
}

// Keys returns the sorted union of keys visible across all three layers.
// Widgets with a caller key appear under it; orphan widgets appear under
// their generated identifier.
func (s *SessionState) Keys() []string {
	set := make(map[string]struct{})
	for k := range s.committed {
		if !isReservedKey(k) {
			set[k] = struct{}{}
		}
	}
	for k := range s.pendingDirect {
		set[k] = struct{}{}
	}
	for _, id := range s.pendingWidget.IDs() {
		if key, err := s.registry.KeyForID(id); err == nil {
			set[key] = struct{}{}
		} else {
			set[id] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of visible keys.
func (s *SessionState) Len() int {
	return len(s.Keys())
}

// IsNewValue reports whether key was directly assigned this run and not
// yet reconciled with a widget registration or compaction.
func (s *SessionState) IsNewValue(key string) bool {
	_, ok := s.pendingDirect[key]
	return ok
}

// Clear empties every layer and the registry. Run-scoped declaration
// tracking is left alone; protection lifts at the next BeginRun.
func (s *SessionState) Clear() {
	clear(s.committed)
	clear(s.pendingDirect)
	s.pendingWidget.Clear()
	s.registry.Clear()
}

// committedValue returns the value held for the widget as of the last
// compaction. Registration change detection compares against it: it is
// what the remote display last reconciled with.
func (s *SessionState) committedValue(id, key string) (any, bool) {
	if v, ok := s.committed[key]; ok {
		return v, true
	}
	if v, ok := s.committed[id]; ok {
		return v, true
	}
	return nil, false
}

// RegisterWidget records a control declaration. When userKey is non-empty
// it is bound to the metadata's identifier. A direct write pending under
// the resolving key is folded in as the widget's current value and removed
// from the direct layer; otherwise a first sighting materializes the
// control's default via the deserializer. ValueChanged is true only when
// a committed value exists from an earlier run and the value now held
// differs from it; a first-ever registration has no prior remote state to
// reconcile against and never reports a change.
func (s *SessionState) RegisterWidget(meta *Metadata, userKey string) (RegistrationResult, error) {
	id := meta.ID
	if userKey != "" {
		s.registry.SetMapping(userKey, id)
	}
	key := userKey
	if key == "" {
		if k, err := s.registry.KeyForID(id); err == nil {
			key = k
		} else {
			key = id
		}
	}

	prior, hadPrior := s.committedValue(id, key)

	if v, ok := s.pendingDirect[key]; ok {
		s.pendingWidget.SetFromValue(id, v)
		delete(s.pendingDirect, key)
	} else if !s.pendingWidget.Has(id) {
		var def any
		if meta.Deserializer != nil {
			def = meta.Deserializer(nil, "")
		}
		s.pendingWidget.SetFromValue(id, def)
	}

	s.pendingWidget.SetMetadata(meta)
	s.widgetIDsThisRun[id] = struct{}{}

	value, err := s.pendingWidget.Get(id)
	if err != nil {
		return RegistrationResult{}, err
	}
	changed := hadPrior && !reflect.DeepEqual(value, prior)
	return RegistrationResult{Value: value, ValueChanged: changed}, nil
}

// SetWidgetFromWire stores widget state delivered by the remote display
// ahead of a rerun.
func (s *SessionState) SetWidgetFromWire(ws wire.WidgetState) {
	s.pendingWidget.SetFromWire(ws)
}

// WidgetChanged reports whether the pending value for id differs from the
// committed value under its caller key (or bare identifier).
func (s *SessionState) WidgetChanged(id string) bool {
	key := id
	if k, err := s.registry.KeyForID(id); err == nil {
		key = k
	}
	v, err := s.pendingWidget.Get(id)
	if err != nil {
		return true
	}
	old, ok := s.committed[key]
	if !ok {
		return true
	}
	return !reflect.DeepEqual(v, old)
}

// Compact folds both pending layers into the committed snapshot at the end
// of a successful run. Widget entries drain under their caller key when
// bound, else under their bare identifier; entries whose metadata vanished
// mid-run are skipped rather than aborting the commit. Both pending layers
// are reset afterwards, so compacting twice in a row is a no-op the second
// time.
func (s *SessionState) Compact() {
	for _, id := range s.pendingWidget.IDs() {
		v, err := s.pendingWidget.Get(id)
		if err != nil {
			continue
		}
		key := id
		if k, kerr := s.registry.KeyForID(id); kerr == nil {
			key = k
		}
		s.committed[key] = v
	}
	for k, v := range s.pendingDirect {
		s.committed[k] = v
	}
	clear(s.pendingDirect)
	s.pendingWidget.resetEntries()
}

// RemoveStaleWidgets sweeps out widget state whose declaring control was
// not re-declared in the run just completed (or whose partial-rerun scope
// executed without re-declaring it). Committed values under generated
// identifiers are purged by the same staleness rule; caller-keyed
// committed values are left for the script to manage.
func (s *SessionState) RemoveStaleWidgets(activeIDs, activeFragmentIDs map[string]struct{}) {
	s.pendingWidget.RemoveStale(activeIDs, activeFragmentIDs)
	for k := range s.committed {
		if !strings.HasPrefix(k, GeneratedIDPrefix) {
			continue
		}
		meta, _ := s.pendingWidget.Metadata(k)
		if isStaleWidget(meta, activeIDs, activeFragmentIDs) {
			delete(s.committed, k)
		}
	}
}

// AsWireList returns the outgoing snapshot of widget values in declaration
// order, for the transport layer to push to the remote display.
func (s *SessionState) AsWireList() ([]wire.WidgetState, error) {
	return s.pendingWidget.AsWireList()
}

// InvokeCallback runs the change callback registered for id, if any.
func (s *SessionState) InvokeCallback(id string) {
	s.pendingWidget.InvokeCallback(id)
}

// FilteredState returns the caller-visible view of the session: every key
// except orphan widgets addressed only by generated identifier. Entries
// that cannot be read (missing metadata) are omitted.
func (s *SessionState) FilteredState() map[string]any {
	out := make(map[string]any)
	for _, key := range s.Keys() {
		if strings.HasPrefix(key, GeneratedIDPrefix) {
			continue
		}
		v, err := s.Get(key)
		if err != nil {
			continue
		}
		out[key] = v
	}
	return out
}

// CheckSerializable probes every visible value with a generic deep
// serialization check, independent of the per-widget serde pair. It fails
// on the first offending key. Opt-in; not run on every write.
func (s *SessionState) CheckSerializable() error {
	for _, key := range s.Keys() {
		v, err := s.Get(key)
		if err != nil {
			continue
		}
		if perr := probeSerializable(v); perr != nil {
			return &UnserializableValueError{Key: key, Err: perr}
		}
	}
	return nil
}
