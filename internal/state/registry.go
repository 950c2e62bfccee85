package state

// Registry is the bijection between caller-chosen keys and generated
// widget identifiers. Both directions are kept mutually consistent on
// every mutation: at most one key maps to a given identifier and vice
// versa at any time.
type Registry struct {
	keyToID map[string]string
	idToKey map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		keyToID: make(map[string]string),
		idToKey: make(map[string]string),
	}
}

// SetMapping inserts or overwrites the binding in both directions. Stale
// reverse entries from a previous binding of either side are removed
// first so the bijection holds.
func (r *Registry) SetMapping(key, id string) {
	if oldID, ok := r.keyToID[key]; ok && oldID != id {
		delete(r.idToKey, oldID)
	}
	if oldKey, ok := r.idToKey[id]; ok && oldKey != key {
		delete(r.keyToID, oldKey)
	}
	r.keyToID[key] = id
	r.idToKey[id] = key
}

// IDForKey resolves a caller key to its widget identifier. An unbound key
// is a valid outcome, not an error.
func (r *Registry) IDForKey(key string) (string, bool) {
	id, ok := r.keyToID[key]
	return id, ok
}

// KeyForID resolves a widget identifier back to its caller key.
func (r *Registry) KeyForID(id string) (string, error) {
	key, ok := r.idToKey[id]
	if !ok {
		return "", &NotFoundError{Key: id}
	}
	return key, nil
}

// Delete removes the binding for key in both directions. Deleting a key
// that was never bound is a no-op.
func (r *Registry) Delete(key string) {
	id, ok := r.keyToID[key]
	if !ok {
		return
	}
	delete(r.keyToID, key)
	delete(r.idToKey, id)
}

// Merge applies every mapping of other onto r with per-mapping overwrite
// semantics. Used to fold one run's registrations into the session-wide
// registry.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for key, id := range other.keyToID {
		r.SetMapping(key, id)
	}
}

// Clear empties both directions.
func (r *Registry) Clear() {
	clear(r.keyToID)
	clear(r.idToKey)
}

// Len returns the number of bound keys.
func (r *Registry) Len() int {
	return len(r.keyToID)
}
