package sqlite

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func (s *Store) UpsertAttendance(ctx context.Context, fact *database.AttendanceFact) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance_facts (id, identity_id, date, period, class_tag, status, recorded_at, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity_id, date, period, class_tag) DO UPDATE SET
			status = excluded.status,
			recorded_at = excluded.recorded_at,
			recorded_by = excluded.recorded_by
		RETURNING id
	`,
		fact.ID, fact.IdentityID, database.FormatDate(fact.Date), fact.Period, fact.ClassTag,
		string(fact.Status), formatTime(fact.RecordedAt), fact.RecordedBy,
	).Scan(&fact.ID)
	return eris.Wrap(err, "sqlite: upsert attendance")
}

func (s *Store) ListAttendance(ctx context.Context, filter database.RangeFilter) ([]database.AttendanceFact, error) {
	where, args := rangeWhere(filter, false)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, date, period, class_tag, status, recorded_at, recorded_by
		FROM attendance_facts`+where+`
		ORDER BY date, identity_id, period, class_tag
	`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list attendance")
	}
	defer rows.Close()

	var out []database.AttendanceFact
	for rows.Next() {
		var f database.AttendanceFact
		var date, status, recordedAt string
		if err := rows.Scan(&f.ID, &f.IdentityID, &date, &f.Period, &f.ClassTag, &status, &recordedAt, &f.RecordedBy); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attendance")
		}
		if f.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if f.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		f.Status = database.AttendanceStatus(status)
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate attendance")
}
