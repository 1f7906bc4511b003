// Package handlers provides HTTP handlers for the web API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/imageutil"
	"github.com/kozaktomas/face-attendance/internal/leave"
	"github.com/kozaktomas/face-attendance/internal/matcher"
	"github.com/kozaktomas/face-attendance/internal/recap"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

const msgSessionNotOpen = "attendance is not open, ask staff to start a session"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes*2)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// parseDateParam parses an optional YYYY-MM-DD value; empty yields the zero time.
func parseDateParam(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := database.ParseDate(value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// respondDomainError maps a service error to a status code and message.
// Unknown errors are logged and reported as 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attendance.ErrSessionNotOpen):
		respondError(w, http.StatusConflict, msgSessionNotOpen)
	case errors.Is(err, matcher.ErrNoMatch), errors.Is(err, matcher.ErrLowConfidence):
		respondError(w, http.StatusNotFound, "face not recognized")
	case errors.Is(err, matcher.ErrNoEnrollmentData), errors.Is(err, matcher.ErrInsufficientEnrollment):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, attendance.ErrNoFaceDetected),
		errors.Is(err, attendance.ErrEmbeddingDimension),
		errors.Is(err, matcher.ErrProbeDimension),
		errors.Is(err, matcher.ErrNonFiniteInput):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, attendance.ErrIdentityNotFound), errors.Is(err, leave.ErrLeaveNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrDuplicateIdentity), errors.Is(err, database.ErrDuplicateLeaveRequest):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, imageutil.ErrImageDecode),
		errors.Is(err, attendance.ErrInvalidPeriod),
		errors.Is(err, attendance.ErrInvalidClass),
		errors.Is(err, attendance.ErrInvalidIdentity),
		errors.Is(err, leave.ErrInvalidLeave),
		errors.Is(err, leave.ErrInvalidReview),
		errors.Is(err, recap.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", sanitizeForLog(r.URL.Path)),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
