package state

import "fmt"

// NotFoundError reports a key or widget identifier that was absent where a
// value was required. It is always surfaced to the immediate caller; the
// only tolerated absences are compaction skipping metadata-less widget
// entries and the staleness sweep treating missing metadata as stale.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session state has no key %q", e.Key)
}

// ProtectedWriteError reports a direct write to a key already claimed by a
// widget or form declaration earlier in the current run. The script run
// must not race its own declarations; this is fatal to the run.
type ProtectedWriteError struct {
	Key string
}

func (e *ProtectedWriteError) Error() string {
	return fmt.Sprintf("state key %q cannot be modified after its widget or form is declared this run", e.Key)
}

// UnserializableValueError is raised only by the opt-in serializability
// probe; it names the first offending key.
type UnserializableValueError struct {
	Key string
	Err error
}

func (e *UnserializableValueError) Error() string {
	return fmt.Sprintf("value for state key %q cannot be serialized: %v", e.Key, e.Err)
}

func (e *UnserializableValueError) Unwrap() error {
	return e.Err
}
