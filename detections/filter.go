package detections

import (
	"math"

	"github.com/Tutortoise/microplastic-detection-service/models"

	"github.com/sirupsen/logrus"
)

// FilterCandidates keeps candidates scoring at least threshold and drops
// degenerate or non-finite boxes. Model order is preserved.
func FilterCandidates(candidates []models.Candidate, threshold float32, log logrus.FieldLogger) []models.Detection {
	detections := make([]models.Detection, 0, len(candidates))
	for _, c := range candidates {
		if !finite(c.Score) || c.Score < threshold {
			continue
		}
		x1, y1, x2, y2 := c.Box[0], c.Box[1], c.Box[2], c.Box[3]
		if !finite(x1, y1, x2, y2) || x1 >= x2 || y1 >= y2 {
			log.WithField("bbox", c.Box).Warn("Skipping invalid bbox")
			continue
		}
		detections = append(detections, models.Detection{
			BBox:  c.Box,
			Score: c.Score,
			Label: int(c.Label),
		})
	}
	return detections
}

func finite(values ...float32) bool {
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
