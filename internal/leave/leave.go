// Package leave manages leave requests: permission for an identity to miss
// one (date, period, class) slot.
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
)

var (
	// ErrLeaveNotFound is returned when the referenced leave request does not exist.
	ErrLeaveNotFound = errors.New("leave request not found")

	// ErrInvalidReview is returned for review statuses other than approved or rejected.
	ErrInvalidReview = errors.New("review status must be approved or rejected")

	// ErrInvalidLeave is returned when a new request is missing required fields.
	ErrInvalidLeave = errors.New("invalid leave request")
)

// Store is the storage the leave service needs.
type Store interface {
	database.LeaveStore
	GetIdentity(ctx context.Context, id int64) (*database.Identity, error)
}

// Service creates, reviews and lists leave requests.
type Service struct {
	store     Store
	publisher events.Publisher
	periods   config.PeriodsConfig
	now       func() time.Time
}

// NewService creates a leave service. A nil publisher disables events.
func NewService(store Store, publisher events.Publisher, periods config.PeriodsConfig) *Service {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	return &Service{store: store, publisher: publisher, periods: periods, now: time.Now}
}

// Create stores a new request. It starts as pending unless preApproved,
// which is the path used by staff entering a request on someone's behalf.
func (s *Service) Create(ctx context.Context, req *database.LeaveRequest, preApproved bool) error {
	req.Period = strings.TrimSpace(req.Period)
	req.ClassTag = strings.TrimSpace(req.ClassTag)
	req.Reason = strings.TrimSpace(req.Reason)

	switch {
	case req.IdentityID == 0:
		return fmt.Errorf("%w: identity is required", ErrInvalidLeave)
	case req.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidLeave)
	case req.Reason == "":
		return fmt.Errorf("%w: reason is required", ErrInvalidLeave)
	case len(s.periods.Periods) > 0 && !s.periods.Valid(req.Period):
		return fmt.Errorf("%w: unknown period %q", ErrInvalidLeave, req.Period)
	}

	identity, err := s.store.GetIdentity(ctx, req.IdentityID)
	if err != nil {
		return eris.Wrapf(err, "failed to load identity %d", req.IdentityID)
	}
	if identity == nil {
		return attendance.ErrIdentityNotFound
	}

	now := s.now()
	req.ID = uuid.NewString()
	req.Date = database.DateOnly(req.Date)
	req.Status = database.LeavePending
	if preApproved {
		req.Status = database.LeaveApproved
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.store.CreateLeave(ctx, req); err != nil {
		if errors.Is(err, database.ErrDuplicateLeaveRequest) {
			return err
		}
		return eris.Wrap(err, "failed to create leave request")
	}

	zap.L().Info("leave request created",
		zap.String("leave_id", req.ID),
		zap.Int64("identity_id", req.IdentityID),
		zap.String("status", string(req.Status)),
	)
	s.publish(ctx, events.TopicLeaveCreated, req)
	return nil
}

// Review approves or rejects a request. A request may be reviewed again.
func (s *Service) Review(ctx context.Context, id string, status database.LeaveStatus, note string) (*database.LeaveRequest, error) {
	if status != database.LeaveApproved && status != database.LeaveRejected {
		return nil, ErrInvalidReview
	}

	req, err := s.store.GetLeave(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load leave request %s", id)
	}
	if req == nil {
		return nil, ErrLeaveNotFound
	}

	note = strings.TrimSpace(note)
	if err := s.store.UpdateLeaveStatus(ctx, id, status, note); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, eris.Wrapf(err, "failed to update leave request %s", id)
	}
	req.Status = status
	req.Note = note
	req.UpdatedAt = s.now()

	zap.L().Info("leave request reviewed", zap.String("leave_id", id), zap.String("status", string(status)))
	s.publish(ctx, events.TopicLeaveReviewed, req)
	return req, nil
}

// List returns requests matching the filter ordered by date and identity.
func (s *Service) List(ctx context.Context, filter database.RangeFilter) ([]database.LeaveRequest, error) {
	leaves, err := s.store.ListLeaves(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list leave requests")
	}
	return leaves, nil
}

func (s *Service) publish(ctx context.Context, topic string, req *database.LeaveRequest) {
	event := events.LeaveChanged{
		LeaveID:    req.ID,
		IdentityID: req.IdentityID,
		Date:       database.FormatDate(req.Date),
		Period:     req.Period,
		ClassTag:   req.ClassTag,
		Status:     string(req.Status),
		Note:       req.Note,
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		zap.L().Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}
