package services

import (
	"context"
	"errors"
	"sync"
)

// MockEventArchive is an in-memory EventArchive for testing
type MockEventArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
	fail    bool
}

// NewMockEventArchive creates an empty mock archive
func NewMockEventArchive() *MockEventArchive {
	return &MockEventArchive{objects: make(map[string][]byte)}
}

// FailUploads makes every subsequent Archive call return an error
func (m *MockEventArchive) FailUploads() {
	m.mu.Lock()
	m.fail = true
	m.mu.Unlock()
}

func (m *MockEventArchive) Archive(_ context.Context, deliveryID string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("mock archive unavailable")
	}
	m.objects[ArchiveKey(deliveryID)] = append([]byte(nil), body...)
	return nil
}

// Get returns an archived body by delivery id
func (m *MockEventArchive) Get(deliveryID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.objects[ArchiveKey(deliveryID)]
	return body, ok
}

// Count returns the number of archived envelopes
func (m *MockEventArchive) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
