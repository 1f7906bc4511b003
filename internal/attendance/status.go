package attendance

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// DeriveStatus computes the attendance status for a recognition at now.
//
//	late counting not started  -> present
//	elapsed <= 5 minutes       -> late_1
//	5 < elapsed <= 15 minutes  -> late_2
//	elapsed > 15 minutes       -> late_3
//
// A recognition timestamped before the late start counts as late_1.
func DeriveStatus(session Session, now time.Time) database.AttendanceStatus {
	if session.LateStartedAt == nil {
		return database.StatusPresent
	}

	elapsed := now.Sub(*session.LateStartedAt).Minutes()
	switch {
	case elapsed <= constants.LateTier1Minutes:
		return database.StatusLate1
	case elapsed <= constants.LateTier2Minutes:
		return database.StatusLate2
	default:
		return database.StatusLate3
	}
}
