package flatstate

import "sync"

// FlatStorageManager owns the process-wide gate that serializes FlatState
// writes against the inlining migration's re-read and commit window.
//
// Updates start enabled. Every FlatState commit path must call GuardUpdates
// before committing; while the migration holds the window, writers block
// there until the mode is flipped back.
type FlatStorageManager struct {
	mu             sync.Mutex
	cond           *sync.Cond
	updatesEnabled bool
}

// NewFlatStorageManager creates a manager with updates enabled.
func NewFlatStorageManager() *FlatStorageManager {
	m := &FlatStorageManager{updatesEnabled: true}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// SetFlatStateUpdatesMode pauses (false) or resumes (true) FlatState
// updates. Resuming wakes every writer blocked in GuardUpdates.
func (m *FlatStorageManager) SetFlatStateUpdatesMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatesEnabled = enabled
	if enabled {
		m.cond.Broadcast()
	}
}

// GuardUpdates blocks while updates are paused.
func (m *FlatStorageManager) GuardUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.updatesEnabled {
		m.cond.Wait()
	}
}

// UpdatesEnabled reports the current mode.
func (m *FlatStorageManager) UpdatesEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatesEnabled
}
