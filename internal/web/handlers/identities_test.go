package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIdentitiesHandler_List(t *testing.T) {
	env := newTestEnv(t)
	h := NewIdentitiesHandler(env.attendance)

	recorder := httptest.NewRecorder()
	h.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/identities", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var got []IdentityResponse
	parseJSONResponse(t, recorder, &got)
	if len(got) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(got))
	}
	if got[0].Name != "Ahmad" || got[1].Name != "Siti" {
		t.Errorf("unexpected order %v, %v", got[0].Name, got[1].Name)
	}
	if !got[0].Enrolled {
		t.Error("expected enrolled identity")
	}
}

func TestIdentitiesHandler_Create(t *testing.T) {
	env := newTestEnv(t)
	h := NewIdentitiesHandler(env.attendance)

	recorder := httptest.NewRecorder()
	h.Create(recorder, jsonRequest(t, http.MethodPost, "/api/v1/identities", map[string]any{
		"external_id": "S-003",
		"name":        "Budi",
		"gender":      "Male",
		"classes":     []string{"8B"},
	}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var got IdentityResponse
	parseJSONResponse(t, recorder, &got)
	if got.ID == 0 || got.Gender != "male" || len(got.Classes) != 1 {
		t.Errorf("unexpected identity %+v", got)
	}

	recorder = httptest.NewRecorder()
	h.Create(recorder, jsonRequest(t, http.MethodPost, "/api/v1/identities", map[string]any{
		"external_id": "S-003",
		"name":        "Budi again",
		"gender":      "male",
	}))
	assertStatusCode(t, recorder, http.StatusConflict)

	recorder = httptest.NewRecorder()
	h.Create(recorder, jsonRequest(t, http.MethodPost, "/api/v1/identities", map[string]any{
		"external_id": "S-004",
		"name":        "Rina",
		"gender":      "P",
	}))
	assertStatusCode(t, recorder, http.StatusBadRequest)

	recorder = httptest.NewRecorder()
	h.Create(recorder, jsonRequest(t, http.MethodPost, "/api/v1/identities", map[string]any{"name": "No ID"}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestIdentitiesHandler_EnrollFace(t *testing.T) {
	env := newTestEnv(t)
	env.faceAt(0, 0, 1, 0)
	h := NewIdentitiesHandler(env.attendance)

	req := jsonRequest(t, http.MethodPost, "/api/v1/identities/2/face", map[string]string{"image": testImageDataURL(t)})
	recorder := httptest.NewRecorder()
	h.EnrollFace(recorder, requestWithChiParams(req, map[string]string{"id": "2"}))

	assertStatusCode(t, recorder, http.StatusOK)
	enrolled, _ := env.store.ListEnrolled(req.Context())
	for _, e := range enrolled {
		if e.IdentityID == 2 && e.Embedding[2] != 1 {
			t.Errorf("embedding not replaced: %v", e.Embedding)
		}
	}
}

func TestIdentitiesHandler_EnrollFaceErrors(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		embedding []float32
		expected  int
	}{
		{"invalid id", "abc", []float32{1, 0, 0, 0}, http.StatusBadRequest},
		{"unknown identity", "99", []float32{1, 0, 0, 0}, http.StatusNotFound},
		{"wrong dimension", "1", []float32{1, 0}, http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.faceAt(tc.embedding...)
			req := jsonRequest(t, http.MethodPost, "/api/v1/identities/"+tc.id+"/face", map[string]string{"image": testImageDataURL(t)})
			recorder := httptest.NewRecorder()

			NewIdentitiesHandler(env.attendance).EnrollFace(recorder, requestWithChiParams(req, map[string]string{"id": tc.id}))

			assertStatusCode(t, recorder, tc.expected)
		})
	}
}

func TestIdentitiesHandler_AssignClass(t *testing.T) {
	env := newTestEnv(t)
	h := NewIdentitiesHandler(env.attendance)

	assign := func(class string) *httptest.ResponseRecorder {
		req := jsonRequest(t, http.MethodPost, "/api/v1/identities/1/classes", map[string]string{"class": class})
		recorder := httptest.NewRecorder()
		h.AssignClass(recorder, requestWithChiParams(req, map[string]string{"id": "1"}))
		return recorder
	}

	recorder := assign("Tahfidz")
	assertStatusCode(t, recorder, http.StatusOK)
	var got map[string]bool
	parseJSONResponse(t, recorder, &got)
	if !got["added"] {
		t.Error("expected class to be added")
	}

	recorder = assign("Tahfidz")
	got = nil
	parseJSONResponse(t, recorder, &got)
	if got["added"] {
		t.Error("expected second assignment to be a no-op")
	}

	assertStatusCode(t, assign("all"), http.StatusBadRequest)
}
