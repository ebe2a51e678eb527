package geometry

import (
	"errors"
	"math"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

// ErrDistanceMismatch means the distance series does not line up with the
// dataset frame by frame, so angles cannot be computed.
var ErrDistanceMismatch = errors.New("distance estimates do not match dataset frames")

// ScalingFactor derives a mm-per-pixel scale for one frame as the mean of
// four independent edge-based estimates (top, bottom, left, right), each a
// Euclidean pixel distance converted through the known physical dimension.
func ScalingFactor(s *model.Sample, dims Dimensions) float64 {
	topWidth := dist(s.TopRight, s.TopLeft)
	bottomWidth := dist(s.BottomRight, s.BottomLeft)
	leftHeight := dist(s.BottomLeft, s.TopLeft)
	rightHeight := dist(s.BottomRight, s.TopRight)

	return (dims.WidthMM/topWidth +
		dims.WidthMM/bottomWidth +
		dims.HeightMM/leftHeight +
		dims.HeightMM/rightHeight) / 4
}

// ToVisualAngles converts stabilized pixel coordinates to visual angles in
// degrees. Pixel offsets from the target center become millimeters via the
// per-frame scaling factor, then angles via atan(offset/viewingDistance)
// on each axis independently. This is the small-angle path; AngleBetween
// is the chord path, and the two are deliberately distinct.
func ToVisualAngles(ds model.Dataset, table *TargetDimensions, distances []DistanceEstimate) (model.Dataset, error) {
	if len(distances) != len(ds) {
		return nil, ErrDistanceMismatch
	}
	for i := range ds {
		if ds[i].Frame != distances[i].Frame {
			return nil, ErrDistanceMismatch
		}
	}

	out := ds.Clone()
	for i := range out {
		s := &out[i]
		dims := table.Lookup(s.EyeTracker, s.ParticipantID, s.TrialCondition)
		scale := ScalingFactor(s, dims)

		// The stabilized target is the reference center.
		center := s.Target
		distanceMM := distances[i].Average

		gazeXmm := (s.Gaze.X - center.X) * scale
		gazeYmm := (s.Gaze.Y - center.Y) * scale
		targetXmm := (s.Target.X - center.X) * scale
		targetYmm := (s.Target.Y - center.Y) * scale

		s.DistanceMM = distanceMM
		s.GazeAngle.X = deg(math.Atan(gazeXmm / distanceMM))
		s.GazeAngle.Y = deg(math.Atan(gazeYmm / distanceMM))
		s.TargetAngle.X = deg(math.Atan(targetXmm / distanceMM))
		s.TargetAngle.Y = deg(math.Atan(targetYmm / distanceMM))
	}
	return out, nil
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
