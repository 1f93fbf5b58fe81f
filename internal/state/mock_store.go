package state

import (
	"sync"

	"github.com/TheMichaelB/calcvault/internal/models"
)

// MockStore provides an in-memory Store with fault injection for testing.
type MockStore struct {
	mu      sync.Mutex
	records []models.EncryptedRecord
	saves   int

	// Injected failures; nil means success
	LoadErr error
	SaveErr error
}

// NewMockStore creates a mock index store holding records.
func NewMockStore(records ...models.EncryptedRecord) *MockStore {
	return &MockStore{records: models.CloneRecords(records)}
}

// Load returns a copy of the stored records.
func (m *MockStore) Load() ([]models.EncryptedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return models.CloneRecords(m.records), nil
}

// Save replaces the stored records.
func (m *MockStore) Save(records []models.EncryptedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records = models.CloneRecords(records)
	m.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (m *MockStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SetSaveErr changes the injected save failure.
func (m *MockStore) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveErr = err
}

// Close releases resources.
func (m *MockStore) Close() error {
	return nil
}
