package testutil

import (
	"path/filepath"
	"testing"

	"github.com/p-arndt/gotcc/internal/config"
	"github.com/p-arndt/gotcc/internal/store"
)

// TestConfig returns a Config with test defaults: memory output, no trap,
// no journal and no output limit.
func TestConfig() *config.Config {
	return &config.Config{
		Compiler: config.Compiler{
			Defines:    make(map[string]string),
			Flags:      make(map[string]bool),
			OutputType: "memory",
		},
		Trap:          false,
		MaxOutputSize: "0",
		LogLevel:      "debug",
	}
}

// TestStore opens a journal in a temp dir that is closed with the test.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "builds.db"), 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
