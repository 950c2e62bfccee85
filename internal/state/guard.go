package state

import (
	"sync"

	"github.com/lucidrun/lucid/internal/wire"
)

// SafeSessionState serializes access to a SessionState shared between the
// run thread, callback invocation, and background message enqueueing. The
// lock is held per call, never across caller-visible suspension: change
// callbacks are invoked after the lock is released, so a callback may call
// back into the store without deadlocking.
type SafeSessionState struct {
	mu    sync.Mutex
	state *SessionState
}

// NewSafeSessionState wraps s. The wrapped SessionState must not be used
// directly afterwards.
func NewSafeSessionState(s *SessionState) *SafeSessionState {
	return &SafeSessionState{state: s}
}

// BeginRun opens a new script run.
func (s *SafeSessionState) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BeginRun()
}

// RegisterForm marks a form container as declared this run.
func (s *SafeSessionState) RegisterForm(formID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RegisterForm(formID)
}

// Get resolves key across the store's layers.
func (s *SafeSessionState) Get(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Get(key)
}

// Set records a direct write under key.
func (s *SafeSessionState) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Set(key, value)
}

// Delete removes key from every layer holding it.
func (s *SafeSessionState) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Delete(key)
}

// Has reports whether key is visible.
func (s *SafeSessionState) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Has(key)
}

// Keys returns the sorted visible keys.
func (s *SafeSessionState) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Keys()
}

// Len returns the number of visible keys.
func (s *SafeSessionState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Len()
}

// IsNewValue reports whether key holds an unreconciled direct write.
func (s *SafeSessionState) IsNewValue(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsNewValue(key)
}

// Clear empties the store.
func (s *SafeSessionState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Clear()
}

// RegisterWidget records a control declaration.
func (s *SafeSessionState) RegisterWidget(meta *Metadata, userKey string) (RegistrationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RegisterWidget(meta, userKey)
}

// SetWidgetFromWire stores widget state delivered by the remote display.
func (s *SafeSessionState) SetWidgetFromWire(ws wire.WidgetState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetWidgetFromWire(ws)
}

// WidgetChanged reports drift between the pending and committed value.
func (s *SafeSessionState) WidgetChanged(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.WidgetChanged(id)
}

// Compact folds the pending layers into the committed snapshot.
func (s *SafeSessionState) Compact() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Compact()
}

// RemoveStaleWidgets sweeps out widgets not re-declared this run.
func (s *SafeSessionState) RemoveStaleWidgets(activeIDs, activeFragmentIDs map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RemoveStaleWidgets(activeIDs, activeFragmentIDs)
}

// AsWireList returns the outgoing snapshot of widget values.
func (s *SafeSessionState) AsWireList() ([]wire.WidgetState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AsWireList()
}

// FilteredState returns the caller-visible view of the session.
func (s *SafeSessionState) FilteredState() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FilteredState()
}

// CheckSerializable probes every visible value.
func (s *SafeSessionState) CheckSerializable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CheckSerializable()
}

// ByteSize approximates the store's memory footprint.
func (s *SafeSessionState) ByteSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ByteSize()
}

// InvokeCallback runs the change callback registered for id. The callback
// itself executes outside the lock so it can read and write session state.
func (s *SafeSessionState) InvokeCallback(id string) {
	s.mu.Lock()
	cb, args, kwargs := s.state.pendingWidget.callback(id)
	s.mu.Unlock()
	if cb != nil {
		cb(args, kwargs)
	}
}
