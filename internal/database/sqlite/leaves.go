package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const leaveColumns = `id, identity_id, date, period, class_tag, reason, status, note, created_at, updated_at`

func scanLeave(row scannable) (*database.LeaveRequest, error) {
	var l database.LeaveRequest
	var date, status, createdAt, updatedAt string
	if err := row.Scan(&l.ID, &l.IdentityID, &date, &l.Period, &l.ClassTag, &l.Reason, &status, &l.Note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if l.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	l.Status = database.LeaveStatus(status)
	return &l, nil
}

func (s *Store) CreateLeave(ctx context.Context, leave *database.LeaveRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests (`+leaveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		leave.ID, leave.IdentityID, database.FormatDate(leave.Date), leave.Period, leave.ClassTag,
		leave.Reason, string(leave.Status), leave.Note, formatTime(leave.CreatedAt), formatTime(leave.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return database.ErrDuplicateLeaveRequest
	}
	return eris.Wrap(err, "sqlite: insert leave")
}

func (s *Store) GetLeave(ctx context.Context, id string) (*database.LeaveRequest, error) {
	l, err := scanLeave(s.db.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM leave_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get leave %s", id)
	}
	return l, nil
}

func (s *Store) UpdateLeaveStatus(ctx context.Context, id string, status database.LeaveStatus, note string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leave_requests SET status = ?, note = ?, updated_at = ? WHERE id = ?`,
		string(status), note, formatTime(time.Now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update leave status %s", id)
	}
	return checkRowsAffected(res)
}

func (s *Store) ListLeaves(ctx context.Context, filter database.RangeFilter) ([]database.LeaveRequest, error) {
	where, args := rangeWhere(filter, true)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leaveColumns+` FROM leave_requests`+where+` ORDER BY date, identity_id, period`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leaves")
	}
	defer rows.Close()

	var out []database.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan leave")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate leaves")
}
