// Package state implements the session-state reconciliation engine for a
// runtime that re-executes a script top to bottom on every interaction.
//
// One SessionState instance serves one session. It holds three layers:
//
//   - the committed snapshot, authoritative as of the last compaction
//   - direct writes made by the script this run under caller-chosen keys
//   - widget state accumulated from this run's control declarations
//
// Reads resolve across the layers with pending-this-run values winning
// over committed ones; Compact folds both pending layers into the
// committed snapshot at the end of a successful run, and RemoveStaleWidgets
// sweeps out entries whose declaring control was not re-declared.
//
// SessionState itself is not safe for concurrent use; wrap it in
// SafeSessionState when callbacks or background senders share the store
// with the run thread.
package state
