package attendance

import (
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestDeriveStatus(t *testing.T) {
	start := time.Date(2024, 1, 1, 4, 45, 0, 0, time.UTC)
	minutes := func(m float64) time.Time {
		return start.Add(time.Duration(m * float64(time.Minute)))
	}

	tests := []struct {
		name     string
		late     bool
		now      time.Time
		expected database.AttendanceStatus
	}{
		{"late counting not started", false, minutes(30), database.StatusPresent},
		{"at late start", true, minutes(0), database.StatusLate1},
		{"before late start", true, minutes(-1), database.StatusLate1},
		{"3 minutes", true, minutes(3), database.StatusLate1},
		{"exactly 5 minutes", true, minutes(5.0), database.StatusLate1},
		{"5.01 minutes", true, minutes(5.01), database.StatusLate2},
		{"10 minutes", true, minutes(10), database.StatusLate2},
		{"exactly 15 minutes", true, minutes(15.0), database.StatusLate2},
		{"15.01 minutes", true, minutes(15.01), database.StatusLate3},
		{"one hour", true, minutes(60), database.StatusLate3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := Session{OpenedAt: start.Add(-15 * time.Minute)}
			if tc.late {
				session.LateStartedAt = &start
			}
			if got := DeriveStatus(session, tc.now); got != tc.expected {
				t.Errorf("DeriveStatus() = %q, want %q", got, tc.expected)
			}
		})
	}
}
