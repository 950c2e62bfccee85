// Package wire defines the in-memory shape of widget state messages
// exchanged with the remote display surface.
//
// The actual network encoding is owned by the transport layer; the state
// engine only needs a kind-tagged message it can construct from a decoded
// value and extract a payload from. Each value kind has a matching
// construction/extraction pair, and every kind round-trips:
// extracting the payload of a message built from a value yields an equal
// value.
package wire
