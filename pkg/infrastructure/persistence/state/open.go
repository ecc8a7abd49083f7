package state

import (
	"github.com/craftwatch/statusbot/pkg/domain/state"
	"github.com/rs/zerolog"
)

// Open returns a MemoryStore for MemoryPath and a BoltStore otherwise.
func Open(path string, logger zerolog.Logger) (state.Store, error) {
	if path == MemoryPath {
		return NewMemoryStore(), nil
	}
	return NewBoltStore(path, logger)
}
