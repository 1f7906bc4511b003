package database

import "errors"

var (
	// ErrDuplicateLeaveRequest is returned when a leave request already exists
	// for the same (identity, date, period, class) key.
	ErrDuplicateLeaveRequest = errors.New("leave request already exists for this identity, date and period")

	// ErrDuplicateIdentity is returned when the external ID is already taken.
	ErrDuplicateIdentity = errors.New("identity with this external ID already exists")

	// ErrNotFound is returned by updates targeting a missing row.
	ErrNotFound = errors.New("not found")
)
