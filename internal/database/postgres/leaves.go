package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

const leaveColumns = `id, identity_id, date, period, class_tag, reason, status, note, created_at, updated_at`

func scanLeave(scanner interface{ Scan(...any) error }) (database.LeaveRequest, error) {
	var l database.LeaveRequest
	var status string
	err := scanner.Scan(&l.ID, &l.IdentityID, &l.Date, &l.Period, &l.ClassTag, &l.Reason, &status, &l.Note, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return database.LeaveRequest{}, err
	}
	l.Date = database.DateOnly(l.Date)
	l.Status = database.LeaveStatus(status)
	return l, nil
}

// CreateLeave inserts a leave request
func (s *Store) CreateLeave(ctx context.Context, leave *database.LeaveRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leave_requests (id, identity_id, date, period, class_tag, reason, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		leave.ID,
		leave.IdentityID,
		database.FormatDate(leave.Date),
		leave.Period,
		leave.ClassTag,
		leave.Reason,
		string(leave.Status),
		leave.Note,
		leave.CreatedAt,
		leave.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return database.ErrDuplicateLeaveRequest
	}
	if err != nil {
		return fmt.Errorf("create leave: %w", err)
	}
	return nil
}

// GetLeave retrieves a leave request by ID, returns nil if not found
func (s *Store) GetLeave(ctx context.Context, id string) (*database.LeaveRequest, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	l, err := scanLeave(s.pool.QueryRow(ctx, `SELECT `+leaveColumns+` FROM leave_requests WHERE id = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get leave: %w", err)
	}
	return &l, nil
}

// UpdateLeaveStatus sets the review status and note
func (s *Store) UpdateLeaveStatus(ctx context.Context, id string, status database.LeaveStatus, note string) error {
	key, err := uuid.Parse(id)
	if err != nil {
		return database.ErrNotFound
	}
	result, err := s.pool.Exec(ctx,
		`UPDATE leave_requests SET status = $2, note = $3, updated_at = NOW() WHERE id = $1`,
		key, string(status), note,
	)
	if err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListLeaves returns leave requests matching the filter ordered by date, identity
func (s *Store) ListLeaves(ctx context.Context, filter database.RangeFilter) ([]database.LeaveRequest, error) {
	where, args := rangeWhere(filter, true)
	rows, err := s.pool.Query(ctx, `SELECT `+leaveColumns+` FROM leave_requests`+where+` ORDER BY date, identity_id, period`, args...)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	defer rows.Close()

	var out []database.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leave: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaves: %w", err)
	}
	return out, nil
}
