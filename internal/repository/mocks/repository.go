// Package mocks provides in-memory implementations of the repository
// interfaces for testing services without a real database.
package mocks

import (
	"context"
	"sort"
	"sync"

	"proclog-backend/internal/domain"
	"proclog-backend/internal/repository"
	appErrors "proclog-backend/pkg/errors"
)

// MockRepository is an in-memory RecordRepository. Records are held in
// insertion order and sorted on read the way the real indexes would return
// them.
type MockRepository struct {
	mu      sync.RWMutex
	records []domain.Record

	// For testing error scenarios
	shouldFailOn map[string]error
}

// NewMockRepository creates a new mock repository instance.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		shouldFailOn: make(map[string]error),
	}
}

// SetError configures the mock to return an error for a specific method.
func (m *MockRepository) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *MockRepository) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

func (m *MockRepository) checkError(method string) error {
	if err, exists := m.shouldFailOn[method]; exists {
		return err
	}
	return nil
}

// All returns a copy of every stored record, for test assertions.
func (m *MockRepository) All() []domain.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Record(nil), m.records...)
}

func (m *MockRepository) SaveRecords(ctx context.Context, records []domain.Record) error {
	if err := m.checkError("SaveRecords"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Puts overwrite items with the same primary key.
	for _, rec := range records {
		replaced := false
		for i := range m.records {
			if m.records[i].ActionID == rec.ActionID && m.records[i].RecordKey == rec.RecordKey {
				m.records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			m.records = append(m.records, rec)
		}
	}
	return nil
}

func (m *MockRepository) QueryByObjectKey(ctx context.Context, query repository.RecordQuery) ([]domain.Record, error) {
	if err := m.checkError("QueryByObjectKey"); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Record
	for _, rec := range m.records {
		if rec.ObjectKey != query.ObjectKey {
			continue
		}
		if query.BeginDate != nil && rec.OccurredAt.Before(*query.BeginDate) {
			continue
		}
		if query.EndDate != nil && rec.OccurredAt.After(*query.EndDate) {
			continue
		}
		if query.ActivityID != "" && rec.ActivityID != query.ActivityID {
			continue
		}
		if query.Confidentiality != "" && rec.Confidentiality != query.Confidentiality {
			continue
		}
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockRepository) QueryAction(ctx context.Context, actionID string) ([]domain.Record, error) {
	if err := m.checkError("QueryAction"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Record
	for _, rec := range m.records {
		if rec.ActionID == actionID {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockRepository) QueryByProcessingID(ctx context.Context, processingID string) ([]domain.Record, error) {
	if err := m.checkError("QueryByProcessingID"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Record
	for _, rec := range m.records {
		if rec.ProcessingID == processingID {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockRepository) UpdateClassification(ctx context.Context, actionID, recordKey string, update repository.ClassificationUpdate) error {
	if err := m.checkError("UpdateClassification"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ActionID != actionID || m.records[i].RecordKey != recordKey {
			continue
		}
		if update.Confidentiality != nil {
			m.records[i].Confidentiality = *update.Confidentiality
		}
		if update.RetentionPeriod != nil {
			m.records[i].RetentionPeriod = *update.RetentionPeriod
		}
		return nil
	}
	return appErrors.NewNotFound("record not found")
}

func sortNewestFirst(records []domain.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RegisteredAt.Equal(records[j].RegisteredAt) {
			return records[i].RecordKey > records[j].RecordKey
		}
		return records[i].RegisteredAt.After(records[j].RegisteredAt)
	})
}

// MockIdentityStore is an in-memory IdentityStore with first-writer-wins
// semantics matching the conditional-write implementation.
type MockIdentityStore struct {
	mu         sync.Mutex
	identities map[string]string
	failWith   error
}

// NewMockIdentityStore creates a new mock identity store.
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{identities: make(map[string]string)}
}

// SetError makes every Claim call fail with err until cleared with nil.
func (m *MockIdentityStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Seed installs an existing binding, simulating a prior winner.
func (m *MockIdentityStore) Seed(objectKey, syntheticID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[objectKey] = syntheticID
}

func (m *MockIdentityStore) Claim(ctx context.Context, objectKey, syntheticID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return "", m.failWith
	}
	if existing, ok := m.identities[objectKey]; ok {
		return existing, nil
	}
	m.identities[objectKey] = syntheticID
	return syntheticID, nil
}
