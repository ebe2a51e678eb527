package geometry

import (
	"math"

	"github.com/mh-salari/psa-data-quality/internal/camera"
	"github.com/mh-salari/psa-data-quality/internal/model"
)

// DistanceEstimate is the viewing distance derived for one frame from the
// apparent pixel size of the physical target.
type DistanceEstimate struct {
	Frame      int
	FromWidth  float64
	FromHeight float64
	Average    float64
}

func dist(a, b model.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// EstimateDistances computes, per sample, the viewing distance implied by
// the pinhole model: distance = realDimension_mm * focalLength / pixelDimension.
// Width and height each give an independent estimate from the mean of
// their two edges; Average is their mean.
func EstimateDistances(ds model.Dataset, cal *camera.Calibration, table *TargetDimensions) []DistanceEstimate {
	focal := cal.FocalLength()
	out := make([]DistanceEstimate, len(ds))

	for i := range ds {
		s := &ds[i]
		dims := table.Lookup(s.EyeTracker, s.ParticipantID, s.TrialCondition)

		avgWidth := (dist(s.TopRight, s.TopLeft) + dist(s.BottomRight, s.BottomLeft)) / 2
		avgHeight := (dist(s.BottomLeft, s.TopLeft) + dist(s.BottomRight, s.TopRight)) / 2

		fromWidth := dims.WidthMM * focal / avgWidth
		fromHeight := dims.HeightMM * focal / avgHeight

		out[i] = DistanceEstimate{
			Frame:      s.Frame,
			FromWidth:  fromWidth,
			FromHeight: fromHeight,
			Average:    (fromWidth + fromHeight) / 2,
		}
	}
	return out
}
