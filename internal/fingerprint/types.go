package fingerprint

// Face is one detected face with its embedding.
type Face struct {
	Embedding []float32
	BBox      []float64 // [x1, y1, x2, y2] in pixels of the posted image
	DetScore  float64
}

// faceDetection represents a single detected face as returned by the server
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}
