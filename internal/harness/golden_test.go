package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucidrun/lucid/internal/catalog"
)

// TestGoldenScenarios replays every scenario under testdata/ and compares
// the full trace snapshot against its golden file. Regenerate with:
//
//	go test ./internal/harness -update
func TestGoldenScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	cat, err := catalog.LoadBuiltin()
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			h := New(cat)
			require.NoError(t, RunWithGolden(t, h, scenario))
		})
	}
}
