package snapshot

import (
	"fmt"

	"github.com/redikv/redikv-go/internal/store"
)

// Saver binds a Manager to a store so callers that only need "persist now"
// get a single method. Each Save writes a fresh snapshot and then applies
// the retention policy.
type Saver struct {
	manager *Manager
	st      *store.Store
}

// NewSaver creates a Saver.
func NewSaver(manager *Manager, st *store.Store) *Saver {
	return &Saver{manager: manager, st: st}
}

// Save writes a snapshot of the current store contents.
func (s *Saver) Save() error {
	if _, err := s.manager.Create(s.st); err != nil {
		return err
	}
	if err := s.manager.Prune(); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
