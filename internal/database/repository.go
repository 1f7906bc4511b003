package database

import (
	"context"
)

// IdentityReader provides read-only access to the roster
type IdentityReader interface {
	// GetIdentity retrieves an identity by ID, returns nil if not found
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// GetIdentityByExternalID retrieves an identity by roster number, returns nil if not found
	GetIdentityByExternalID(ctx context.Context, externalID string) (*Identity, error)
	// ListIdentities returns the whole roster ordered by ID
	ListIdentities(ctx context.Context) ([]Identity, error)
	// ListEnrolled returns the stored embedding of every enrolled identity ordered by ID
	ListEnrolled(ctx context.Context) ([]EnrolledFace, error)
}

// IdentityWriter provides write access to the roster
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity inserts a new identity and sets its ID
	CreateIdentity(ctx context.Context, identity *Identity) error
	// SaveEmbedding stores (or replaces) the face embedding of an identity
	SaveEmbedding(ctx context.Context, id int64, embedding []float32) error
	// AddClassTag appends the tag unless already present.
	// Returns true if the tag was added.
	AddClassTag(ctx context.Context, id int64, tag string) (bool, error)
}

// AttendanceStore persists attendance facts
type AttendanceStore interface {
	// UpsertAttendance creates the fact or overwrites the existing fact with
	// the same (identity, date, period, class) key. Sets fact.ID.
	UpsertAttendance(ctx context.Context, fact *AttendanceFact) error
	// ListAttendance returns facts matching the filter ordered by date, identity
	ListAttendance(ctx context.Context, filter RangeFilter) ([]AttendanceFact, error)
}

// LeaveStore persists leave requests
type LeaveStore interface {
	// CreateLeave inserts a leave request, returns ErrDuplicateLeaveRequest
	// when one already exists for the same key
	CreateLeave(ctx context.Context, leave *LeaveRequest) error
	// GetLeave retrieves a leave request by ID, returns nil if not found
	GetLeave(ctx context.Context, id string) (*LeaveRequest, error)
	// UpdateLeaveStatus sets the review status and note
	UpdateLeaveStatus(ctx context.Context, id string, status LeaveStatus, note string) error
	// ListLeaves returns leave requests matching the filter ordered by date, identity
	ListLeaves(ctx context.Context, filter RangeFilter) ([]LeaveRequest, error)
}

// Store is the full storage collaborator used by the attendance core
type Store interface {
	IdentityWriter
	AttendanceStore
	LeaveStore

	Close() error
}
