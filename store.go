package jsonedit

import "sync"

// Store owns the full document. Every read is a fresh snapshot and every
// write replaces the whole document.
type Store interface {
	DocumentText() string
	SetDocumentText(text string, dirty bool)
	SetRecomputing(on bool)
}

// Swapper is implemented by stores that can replace the document only if it
// still equals the snapshot a commit was computed from.
type Swapper interface {
	CompareAndSwap(old, next string, dirty bool) bool
}

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	text        string
	dirty       bool
	recomputing bool
	revision    uint64
}

// NewMemoryStore returns a clean store holding text.
func NewMemoryStore(text string) *MemoryStore {
	return &MemoryStore{text: text}
}

// DocumentText returns the current document.
func (m *MemoryStore) DocumentText() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text
}

// SetDocumentText replaces the document. A dirty write sets the unsaved marker.
func (m *MemoryStore) SetDocumentText(text string, dirty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(text, dirty)
}

// CompareAndSwap replaces the document only if it still equals old.
func (m *MemoryStore) CompareAndSwap(old, next string, dirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.text != old {
		return false
	}
	m.replace(next, dirty)
	return true
}

func (m *MemoryStore) replace(text string, dirty bool) {
	m.text = text
	m.dirty = m.dirty || dirty
	m.revision++
}

// SetRecomputing records whether dependent views are being rebuilt.
func (m *MemoryStore) SetRecomputing(on bool) {
	m.mu.Lock()
	m.recomputing = on
	m.mu.Unlock()
}

// Dirty reports whether a write marked the document as having unsaved changes.
func (m *MemoryStore) Dirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

// MarkClean clears the unsaved-changes marker.
func (m *MemoryStore) MarkClean() {
	m.mu.Lock()
	m.dirty = false
	m.mu.Unlock()
}

// Recomputing reports the last SetRecomputing value.
func (m *MemoryStore) Recomputing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recomputing
}

// Revision counts document writes.
func (m *MemoryStore) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}
