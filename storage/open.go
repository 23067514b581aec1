package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Open returns a database for the named backend rooted at dataDir.
func Open(backend, dataDir string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemDB(), nil
	case "", BackendLevelDB:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return NewLevelDB(filepath.Join(dataDir, "state"))
	case BackendBolt:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return NewBoltDB(filepath.Join(dataDir, "state.db"), nil)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
