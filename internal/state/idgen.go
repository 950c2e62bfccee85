package state

import (
	"fmt"

	"github.com/google/uuid"
)

// GeneratedIDPrefix marks widget identifiers minted by the runtime for
// controls the caller did not assign an explicit key to. Committed values
// under such keys are subject to the staleness sweep.
const GeneratedIDPrefix = "$$WIDGET_ID"

// IDGenerator mints widget identifiers. Implemented by UUIDv7IDGenerator
// (production) and testutil.FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7IDGenerator generates time-sortable UUIDv7 identifiers, so widget
// ids sort by declaration time in logs and traces.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7IDGenerator struct{}

// Generate creates a new UUIDv7 as a hyphenated string. Panics if UUID
// generation fails (should never happen in practice).
func (UUIDv7IDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratedWidgetID builds the full identifier for a declared control:
// the generated-ID prefix, a fresh token from gen, and the caller key
// ("none" when the control is an orphan).
func GeneratedWidgetID(gen IDGenerator, userKey string) string {
	if userKey == "" {
		userKey = "none"
	}
	return fmt.Sprintf("%s-%s-%s", GeneratedIDPrefix, gen.Generate(), userKey)
}
