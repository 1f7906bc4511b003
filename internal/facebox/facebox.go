// Package facebox converts detector bounding boxes between pixel and
// relative coordinates for capture-station overlays.
package facebox

// Relative converts a pixel box [x1, y1, x2, y2] to 0-1 coordinates of a
// width x height image. Coordinates outside the image are clamped. Malformed
// boxes and empty images are returned unchanged.
func Relative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	w, h := float64(width), float64(height)
	return []float64{
		clamp01(bbox[0] / w),
		clamp01(bbox[1] / h),
		clamp01(bbox[2] / w),
		clamp01(bbox[3] / h),
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
