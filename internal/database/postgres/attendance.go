package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// UpsertAttendance creates the fact or overwrites the one with the same
// (identity, date, period, class) key. fact.ID is set to the stored ID.
func (s *Store) UpsertAttendance(ctx context.Context, fact *database.AttendanceFact) error {
	query := `
		INSERT INTO attendance_facts (id, identity_id, date, period, class_tag, status, recorded_at, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (identity_id, date, period, class_tag) DO UPDATE SET
			status = EXCLUDED.status,
			recorded_at = EXCLUDED.recorded_at,
			recorded_by = EXCLUDED.recorded_by
		RETURNING id
	`
	err := s.pool.QueryRow(ctx, query,
		fact.ID,
		fact.IdentityID,
		database.FormatDate(fact.Date),
		fact.Period,
		fact.ClassTag,
		string(fact.Status),
		fact.RecordedAt,
		fact.RecordedBy,
	).Scan(&fact.ID)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// ListAttendance returns facts matching the filter ordered by date, identity
func (s *Store) ListAttendance(ctx context.Context, filter database.RangeFilter) ([]database.AttendanceFact, error) {
	where, args := rangeWhere(filter, false)
	rows, err := s.pool.Query(ctx, `
		SELECT id, identity_id, date, period, class_tag, status, recorded_at, recorded_by
		FROM attendance_facts`+where+`
		ORDER BY date, identity_id, period, class_tag
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceFact
	for rows.Next() {
		var f database.AttendanceFact
		var status string
		if err := rows.Scan(&f.ID, &f.IdentityID, &f.Date, &f.Period, &f.ClassTag, &status, &f.RecordedAt, &f.RecordedBy); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		f.Date = database.DateOnly(f.Date)
		f.Status = database.AttendanceStatus(status)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}
