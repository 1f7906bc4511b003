package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/imageutil"
)

// IdentitiesHandler handles roster management.
type IdentitiesHandler struct {
	service *attendance.Service
}

func NewIdentitiesHandler(service *attendance.Service) *IdentitiesHandler {
	return &IdentitiesHandler{service: service}
}

type createIdentityRequest struct {
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Gender     string   `json:"gender"`
	Classes    []string `json:"classes"`
}

type enrollFaceRequest struct {
	Image string `json:"image"`
}

type assignClassRequest struct {
	Class string `json:"class"`
}

func identityIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List returns the roster ordered by name.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.service.ListIdentities(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]IdentityResponse, 0, len(identities))
	for i := range identities {
		out = append(out, identityResponse(&identities[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Create adds an identity to the roster.
func (h *IdentitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIdentityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identity := &database.Identity{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Gender:     req.Gender,
		ClassTags:  req.Classes,
	}
	if err := h.service.CreateIdentity(r.Context(), identity); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, identityResponse(identity))
}

// EnrollFace stores the face in the posted image for the identity.
func (h *IdentitiesHandler) EnrollFace(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}
	var req enrollFaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	image, err := imageutil.DecodeDataURL(req.Image)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	enrollment, err := h.service.EnrollFace(r.Context(), id, image)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identity": identityResponse(enrollment.Identity),
		"bbox":     enrollment.BBox,
		"faces":    enrollment.Faces,
	})
}

// AssignClass adds a class tag to the identity.
func (h *IdentitiesHandler) AssignClass(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}
	var req assignClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	added, err := h.service.AssignClass(r.Context(), id, req.Class)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"added": added})
}
