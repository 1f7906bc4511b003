package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicFactRecorded     = "attendance.fact.recorded"
	TopicSessionOpened    = "attendance.session.opened"
	TopicLateCounting     = "attendance.session.late_counting"
	TopicSessionClosed    = "attendance.session.closed"
	TopicLeaveCreated     = "attendance.leave.created"
	TopicLeaveReviewed    = "attendance.leave.reviewed"
	TopicIdentityEnrolled = "attendance.identity.enrolled"
)

// Event types

type FactRecorded struct {
	FactID     string    `json:"fact_id"`
	IdentityID int64     `json:"identity_id"`
	Name       string    `json:"name"`
	Date       string    `json:"date"`
	Period     string    `json:"period"`
	ClassTag   string    `json:"class_tag,omitempty"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by,omitempty"`
}

type SessionChanged struct {
	Date          string     `json:"date,omitempty"`
	Period        string     `json:"period,omitempty"`
	OpenedAt      *time.Time `json:"opened_at,omitempty"`
	LateStartedAt *time.Time `json:"late_started_at,omitempty"`
}

type LeaveChanged struct {
	LeaveID    string `json:"leave_id"`
	IdentityID int64  `json:"identity_id"`
	Date       string `json:"date"`
	Period     string `json:"period"`
	ClassTag   string `json:"class_tag,omitempty"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
}

type IdentityEnrolled struct {
	IdentityID int64  `json:"identity_id"`
	ExternalID string `json:"external_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
