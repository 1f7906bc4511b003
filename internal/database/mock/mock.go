// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockStore is an in-memory implementation of database.Store
type MockStore struct {
	mu         sync.RWMutex
	identities map[int64]*database.Identity
	embeddings map[int64]database.EnrolledFace
	facts      map[string]*database.AttendanceFact
	leaves     map[string]*database.LeaveRequest
	nextID     int64

	// Error injection
	GetIdentityError    error
	ListIdentitiesError error
	ListEnrolledError   error
	CreateIdentityError error
	SaveEmbeddingError  error
	AddClassTagError    error
	UpsertError         error
	ListAttendanceError error
	CreateLeaveError    error
	GetLeaveError       error
	UpdateLeaveError    error
	ListLeavesError     error
}

var _ database.Store = (*MockStore)(nil)

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[int64]*database.Identity),
		embeddings: make(map[int64]database.EnrolledFace),
		facts:      make(map[string]*database.AttendanceFact),
		leaves:     make(map[string]*database.LeaveRequest),
	}
}

// AddIdentity adds an identity with its ID as given, optionally with an embedding
func (m *MockStore) AddIdentity(identity database.Identity, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity.ClassTags = slices.Clone(identity.ClassTags)
	if embedding != nil {
		identity.Enrolled = true
		m.embeddings[identity.ID] = database.EnrolledFace{IdentityID: identity.ID, Embedding: embedding}
	}
	m.identities[identity.ID] = &identity
	if identity.ID > m.nextID {
		m.nextID = identity.ID
	}
}

// AddMalformedEmbedding stores an undecodable embedding for an identity
func (m *MockStore) AddMalformedEmbedding(identityID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[identityID] = database.EnrolledFace{IdentityID: identityID, Malformed: err}
}

// Facts returns every stored attendance fact
func (m *MockStore) Facts() []database.AttendanceFact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceFact, 0, len(m.facts))
	for _, f := range m.facts {
		out = append(out, *f)
	}
	sortFacts(out)
	return out
}

func factKey(identityID int64, date time.Time, period, classTag string) string {
	return fmt.Sprintf("%d|%s|%s|%s", identityID, database.FormatDate(date), period, classTag)
}

func copyIdentity(i *database.Identity) *database.Identity {
	c := *i
	c.ClassTags = slices.Clone(i.ClassTags)
	return &c
}

// GetIdentity retrieves an identity by ID
func (m *MockStore) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	return copyIdentity(i), nil
}

// GetIdentityByExternalID retrieves an identity by roster number
func (m *MockStore) GetIdentityByExternalID(ctx context.Context, externalID string) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.identities {
		if i.ExternalID == externalID {
			return copyIdentity(i), nil
		}
	}
	return nil, nil
}

// ListIdentities returns all identities ordered by ID
func (m *MockStore) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListIdentitiesError != nil {
		return nil, m.ListIdentitiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Identity, 0, len(m.identities))
	for _, i := range m.identities {
		out = append(out, *copyIdentity(i))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// ListEnrolled returns stored embeddings ordered by identity ID
func (m *MockStore) ListEnrolled(ctx context.Context) ([]database.EnrolledFace, error) {
	if m.ListEnrolledError != nil {
		return nil, m.ListEnrolledError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.EnrolledFace, 0, len(m.embeddings))
	for _, e := range m.embeddings {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].IdentityID < out[b].IdentityID })
	return out, nil
}

// CreateIdentity inserts a new identity
func (m *MockStore) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	if m.CreateIdentityError != nil {
		return m.CreateIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.identities {
		if i.ExternalID == identity.ExternalID {
			return database.ErrDuplicateIdentity
		}
	}
	m.nextID++
	identity.ID = m.nextID
	m.identities[identity.ID] = copyIdentity(identity)
	return nil
}

// SaveEmbedding stores an embedding
func (m *MockStore) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if m.SaveEmbeddingError != nil {
		return m.SaveEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[id]
	if !ok {
		return database.ErrNotFound
	}
	i.Enrolled = true
	m.embeddings[id] = database.EnrolledFace{IdentityID: id, Embedding: slices.Clone(embedding)}
	return nil
}

// AddClassTag appends a class tag if absent
func (m *MockStore) AddClassTag(ctx context.Context, id int64, tag string) (bool, error) {
	if m.AddClassTagError != nil {
		return false, m.AddClassTagError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[id]
	if !ok {
		return false, database.ErrNotFound
	}
	if i.HasClass(tag) {
		return false, nil
	}
	i.ClassTags = append(i.ClassTags, tag)
	return true, nil
}

// UpsertAttendance creates or overwrites the fact for its key
func (m *MockStore) UpsertAttendance(ctx context.Context, fact *database.AttendanceFact) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := factKey(fact.IdentityID, fact.Date, fact.Period, fact.ClassTag)
	if existing, ok := m.facts[key]; ok {
		fact.ID = existing.ID
	}
	stored := *fact
	m.facts[key] = &stored
	return nil
}

// ListAttendance returns facts matching the filter
func (m *MockStore) ListAttendance(ctx context.Context, filter database.RangeFilter) ([]database.AttendanceFact, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceFact
	for _, f := range m.facts {
		if matchesRange(filter, f.Date, f.ClassTag, f.IdentityID) {
			out = append(out, *f)
		}
	}
	sortFacts(out)
	return out, nil
}

// CreateLeave inserts a leave request
func (m *MockStore) CreateLeave(ctx context.Context, leave *database.LeaveRequest) error {
	if m.CreateLeaveError != nil {
		return m.CreateLeaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := factKey(leave.IdentityID, leave.Date, leave.Period, leave.ClassTag)
	for _, l := range m.leaves {
		if factKey(l.IdentityID, l.Date, l.Period, l.ClassTag) == key {
			return database.ErrDuplicateLeaveRequest
		}
	}
	stored := *leave
	m.leaves[leave.ID] = &stored
	return nil
}

// GetLeave retrieves a leave request by ID
func (m *MockStore) GetLeave(ctx context.Context, id string) (*database.LeaveRequest, error) {
	if m.GetLeaveError != nil {
		return nil, m.GetLeaveError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leaves[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

// UpdateLeaveStatus sets the review status and note
func (m *MockStore) UpdateLeaveStatus(ctx context.Context, id string, status database.LeaveStatus, note string) error {
	if m.UpdateLeaveError != nil {
		return m.UpdateLeaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leaves[id]
	if !ok {
		return database.ErrNotFound
	}
	l.Status = status
	l.Note = note
	l.UpdatedAt = time.Now()
	return nil
}

// ListLeaves returns leave requests matching the filter
func (m *MockStore) ListLeaves(ctx context.Context, filter database.RangeFilter) ([]database.LeaveRequest, error) {
	if m.ListLeavesError != nil {
		return nil, m.ListLeavesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.LeaveRequest
	for _, l := range m.leaves {
		if !matchesRange(filter, l.Date, l.ClassTag, l.IdentityID) {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.Before(out[b].Date)
		}
		if out[a].IdentityID != out[b].IdentityID {
			return out[a].IdentityID < out[b].IdentityID
		}
		return out[a].Period < out[b].Period
	})
	return out, nil
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

func matchesRange(filter database.RangeFilter, date time.Time, classTag string, identityID int64) bool {
	if !filter.Start.IsZero() && date.Before(database.DateOnly(filter.Start)) {
		return false
	}
	if !filter.End.IsZero() && date.After(database.DateOnly(filter.End)) {
		return false
	}
	if filter.ClassTag != "" && classTag != filter.ClassTag {
		return false
	}
	if filter.IdentityID != 0 && identityID != filter.IdentityID {
		return false
	}
	return true
}

func sortFacts(facts []database.AttendanceFact) {
	sort.Slice(facts, func(a, b int) bool {
		if !facts[a].Date.Equal(facts[b].Date) {
			return facts[a].Date.Before(facts[b].Date)
		}
		if facts[a].IdentityID != facts[b].IdentityID {
			return facts[a].IdentityID < facts[b].IdentityID
		}
		if facts[a].Period != facts[b].Period {
			return facts[a].Period < facts[b].Period
		}
		return facts[a].ClassTag < facts[b].ClassTag
	})
}
