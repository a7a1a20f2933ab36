package ingest

import (
	"sync"
	"time"

	"github.com/jmylchreest/tvcat/internal/models"
)

// StateManager tracks in-flight syncs so that concurrent syncs of the same
// source cannot race on the purge-then-insert sequence.
type StateManager struct {
	mu     sync.Mutex
	active map[models.ULID]time.Time
}

// NewStateManager creates a new state manager.
func NewStateManager() *StateManager {
	return &StateManager{
		active: make(map[models.ULID]time.Time),
	}
}

// Begin marks a sync as started for a source. Returns ErrSyncInProgress
// when a sync for the same source is already running.
func (m *StateManager) Begin(id models.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[id]; exists {
		return models.ErrSyncInProgress
	}
	m.active[id] = time.Now()
	return nil
}

// End marks a sync as finished for a source.
func (m *StateManager) End(id models.ULID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
}

// Active returns the IDs of sources with a sync currently running.
func (m *StateManager) Active() []models.ULID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]models.ULID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// IsActive reports whether a sync is running for the given source.
func (m *StateManager) IsActive(id models.ULID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.active[id]
	return exists
}
