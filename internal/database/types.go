package database

import (
	"time"
)

// DateLayout is the canonical textual form of attendance dates.
const DateLayout = "2006-01-02"

// Gender values used to partition the roster.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// ValidGender reports whether g is one of the recognised gender values.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// AttendanceStatus is the derived status of one attendance fact.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate1   AttendanceStatus = "late_1" // 0-5 minutes after late counting started
	StatusLate2   AttendanceStatus = "late_2" // 5-15 minutes
	StatusLate3   AttendanceStatus = "late_3" // more than 15 minutes
)

// LeaveStatus is the review state of a leave request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// Identity is an enrolled person the system can recognize.
type Identity struct {
	ID         int64
	ExternalID string // roster number printed on the student card
	Name       string
	Gender     string
	ClassTags  []string // accumulated, never replaced
	Enrolled   bool     // true when a face embedding is stored
	CreatedAt  time.Time
}

// HasClass reports whether the identity carries the given class tag.
func (i *Identity) HasClass(tag string) bool {
	for _, t := range i.ClassTags {
		if t == tag {
			return true
		}
	}
	return false
}

// EnrolledFace is one stored embedding as read back from storage.
// Malformed is set when the stored value could not be decoded; such
// records are skipped by the matcher rather than failing the whole pass.
type EnrolledFace struct {
	IdentityID int64
	Embedding  []float32
	Malformed  error
}

// AttendanceFact records one recognition for (identity, date, period, class).
type AttendanceFact struct {
	ID         string
	IdentityID int64
	Date       time.Time
	Period     string
	ClassTag   string
	Status     AttendanceStatus
	RecordedAt time.Time
	RecordedBy string
}

// LeaveRequest is a permission to miss one (date, period, class) slot.
type LeaveRequest struct {
	ID         string
	IdentityID int64
	Date       time.Time
	Period     string
	ClassTag   string
	Reason     string
	Status     LeaveStatus
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RangeFilter selects facts or leave requests by date range and class.
// An empty ClassTag matches every class.
type RangeFilter struct {
	Start      time.Time
	End        time.Time
	ClassTag   string
	IdentityID int64       // 0 = any identity
	Status     LeaveStatus // leave requests only, empty = any status
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
