package geometry

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mh-salari/psa-data-quality/internal/camera"
	"github.com/mh-salari/psa-data-quality/internal/model"
)

// Unproject lifts an undistorted pixel position into a camera-frame ray.
func Unproject(p model.Point, cal *camera.Calibration) r3.Vector {
	n := cal.Normalize(p)
	return r3.Vector{X: n.X, Y: n.Y, Z: 1}
}

// AngleBetween returns the angle between two rays in degrees. This is the
// object-to-object (chord) formula; it is not interchangeable with the
// small-angle conversion in ToVisualAngles.
func AngleBetween(a, b r3.Vector) float64 {
	cos := a.Dot(b) / (a.Norm() * b.Norm())
	// Guard acos against floating-point drift just outside [-1, 1].
	cos = math.Max(-1, math.Min(1, cos))
	return deg(math.Acos(cos))
}

// GazeTargetAngles corrects lens distortion on the gaze and target
// positions of every sample, unprojects them, and records the angle
// between the two rays. Used when raw camera-frame pixels are available
// but corner geometry is not. Fails when the calibration carries no
// distortion coefficients.
func GazeTargetAngles(ds model.Dataset, cal *camera.Calibration) (model.Dataset, error) {
	out := ds.Clone()

	flat := make([]model.Point, 0, 2*len(out))
	for i := range out {
		flat = append(flat, out[i].Target, out[i].Gaze)
	}
	corrected, err := cal.UndistortPoints(flat)
	if err != nil {
		return nil, err
	}

	for i := range out {
		target := Unproject(corrected[2*i], cal)
		gaze := Unproject(corrected[2*i+1], cal)
		out[i].GazeTargetAngle = AngleBetween(target, gaze)
	}
	return out, nil
}

// Stabilize compensates for head movement by re-centering every frame on
// the first frame's target position. The per-row offset that would move
// the target back onto the reference is applied to every coordinate
// column, so relative geometry within a frame is preserved.
func Stabilize(ds model.Dataset) model.Dataset {
	out := ds.Clone()
	if len(out) == 0 {
		return out
	}

	ref := out[0].Target
	for i := range out {
		dx := ref.X - out[i].Target.X
		dy := ref.Y - out[i].Target.Y
		for _, f := range model.CoordinateFields(&out[i]) {
			f.X += dx
			f.Y += dy
		}
	}
	return out
}
