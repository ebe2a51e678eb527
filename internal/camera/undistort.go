package camera

import (
	"fmt"
	"math"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

// Fixed-point iteration bounds for inverting the distortion model.
const (
	undistortIterations = 20
	undistortEpsilon    = 1e-12
)

// UndistortPoints corrects lens distortion for a batch of pixel positions
// and re-projects the result through the same intrinsic matrix, so input
// and output share the pixel coordinate system. The inverse of the
// Brown-Conrady model is solved by fixed-point iteration: the undistorted
// normalized point is the one that reproduces the observed point when the
// known forward model is applied.
//
// Accepts 4, 5 or 8 coefficients (k1 k2 p1 p2 [k3 [k4 k5 k6]]).
func (c *Calibration) UndistortPoints(points []model.Point) ([]model.Point, error) {
	norm, err := c.undistortNormalized(points)
	if err != nil {
		return nil, err
	}
	out := make([]model.Point, len(norm))
	for i, p := range norm {
		out[i] = model.Point{
			X: c.fx()*p.X + c.cx(),
			Y: c.fy()*p.Y + c.cy(),
		}
	}
	return out, nil
}

// undistortNormalized returns undistorted positions on the normalized
// image plane, the form unprojection needs.
func (c *Calibration) undistortNormalized(points []model.Point) ([]model.Point, error) {
	switch len(c.Dist) {
	case 4, 5, 8:
	case 0:
		return nil, fmt.Errorf("%w: distortion coefficients not present", ErrCalibrationMalformed)
	default:
		return nil, fmt.Errorf("%w: unsupported distortion vector length %d", ErrCalibrationMalformed, len(c.Dist))
	}

	var k [8]float64
	copy(k[:], c.Dist)

	out := make([]model.Point, len(points))
	for i, p := range points {
		x0 := (p.X - c.cx()) / c.fx()
		y0 := (p.Y - c.cy()) / c.fy()

		x, y := x0, y0
		for iter := 0; iter < undistortIterations; iter++ {
			r2 := x*x + y*y
			icdist := (1 + ((k[7]*r2+k[6])*r2+k[5])*r2) /
				(1 + ((k[4]*r2+k[1])*r2+k[0])*r2)
			deltaX := 2*k[2]*x*y + k[3]*(r2+2*x*x)
			deltaY := k[2]*(r2+2*y*y) + 2*k[3]*x*y

			nx := (x0 - deltaX) * icdist
			ny := (y0 - deltaY) * icdist
			if math.Abs(nx-x) < undistortEpsilon && math.Abs(ny-y) < undistortEpsilon {
				x, y = nx, ny
				break
			}
			x, y = nx, ny
		}
		out[i] = model.Point{X: x, Y: y}
	}
	return out, nil
}

// UndistortSamples undistorts every coordinate field of every sample in
// one batch. All spatial fields of a sample move to the undistorted-pixel
// coordinate system together; the input dataset is not modified.
func (c *Calibration) UndistortSamples(ds model.Dataset) (model.Dataset, error) {
	out := ds.Clone()

	// One flat batch keeps this a single pass over the distortion model.
	var fieldsPerSample int
	if len(out) > 0 {
		fieldsPerSample = len(model.CoordinateFields(&out[0]))
	}
	flat := make([]model.Point, 0, len(out)*fieldsPerSample)
	for i := range out {
		for _, f := range model.CoordinateFields(&out[i]) {
			flat = append(flat, *f)
		}
	}

	corrected, err := c.UndistortPoints(flat)
	if err != nil {
		return nil, err
	}

	pos := 0
	for i := range out {
		for _, f := range model.CoordinateFields(&out[i]) {
			*f = corrected[pos]
			pos++
		}
	}
	return out, nil
}
