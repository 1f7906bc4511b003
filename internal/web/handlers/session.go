package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// SessionHandler handles attendance session control.
type SessionHandler struct {
	service *attendance.Service
}

func NewSessionHandler(service *attendance.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

type startSessionRequest struct {
	Date   string `json:"date"`
	Period string `json:"period"`
}

// SessionResponse is the JSON form of an attendance session.
type SessionResponse struct {
	Open          bool       `json:"open"`
	Date          string     `json:"date,omitempty"`
	Period        string     `json:"period,omitempty"`
	OpenedAt      *time.Time `json:"opened_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LateStartedAt *time.Time `json:"late_started_at,omitempty"`
}

func sessionResponse(s attendance.Session) SessionResponse {
	return SessionResponse{
		Open:          true,
		Date:          database.FormatDate(s.Date),
		Period:        s.Period,
		OpenedAt:      &s.OpenedAt,
		ExpiresAt:     &s.ExpiresAt,
		LateStartedAt: s.LateStartedAt,
	}
}

// Start opens a session. An empty date means today.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, ok := parseDateParam(req.Date)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if date.IsZero() {
		date = time.Now()
	}

	session, err := h.service.StartSession(r.Context(), date, req.Period)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

// Late starts late counting for the open session.
func (h *SessionHandler) Late(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.StartLateCounting(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

// End closes the session.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	h.service.EndSession(r.Context())
	respondJSON(w, http.StatusOK, SessionResponse{Open: false})
}

// Get returns the open session or {"open": false}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.service.CurrentSession()
	if !ok {
		respondJSON(w, http.StatusOK, SessionResponse{Open: false})
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}
