package camera

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

const calibrationXML = `<?xml version="1.0"?>
<opencv_storage>
  <cameraMatrix type_id="opencv-matrix">
    <rows>3</rows><cols>3</cols><dt>d</dt>
    <data>800 0 640 0 800 360 0 0 1</data>
  </cameraMatrix>
  <distCoeff type_id="opencv-matrix">
    <rows>5</rows><cols>1</cols><dt>d</dt>
    <data>-0.25 0.08 0.0005 -0.0003 0.01</data>
  </distCoeff>
</opencv_storage>`

func writeCalibration(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// distort applies the forward Brown-Conrady model, the inverse of what
// UndistortPoints solves for.
func distort(cal *Calibration, p model.Point) model.Point {
	var k [8]float64
	copy(k[:], cal.Dist)

	x := (p.X - cal.cx()) / cal.fx()
	y := (p.Y - cal.cy()) / cal.fy()

	r2 := x*x + y*y
	radial := (1 + ((k[4]*r2+k[1])*r2+k[0])*r2) /
		(1 + ((k[7]*r2+k[6])*r2+k[5])*r2)
	dx := 2*k[2]*x*y + k[3]*(r2+2*x*x)
	dy := k[2]*(r2+2*y*y) + 2*k[3]*x*y

	xd := x*radial + dx
	yd := y*radial + dy

	return model.Point{X: cal.fx()*xd + cal.cx(), Y: cal.fy()*yd + cal.cy()}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("parses matrix and coefficients", func(t *testing.T) {
		t.Parallel()
		cal, err := Load(writeCalibration(t, calibrationXML))
		require.NoError(t, err)

		assert.InDelta(t, 800, cal.FocalLength(), 1e-12)
		assert.InDelta(t, 640, cal.Matrix[0][2], 1e-12)
		assert.InDelta(t, 1, cal.Matrix[2][2], 1e-12)
		require.Len(t, cal.Dist, 5)
		assert.InDelta(t, -0.25, cal.Dist[0], 1e-12)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "calibration.xml"))
		assert.ErrorIs(t, err, ErrCalibrationMissing)
	})

	t.Run("malformed matrix", func(t *testing.T) {
		t.Parallel()
		path := writeCalibration(t, `<opencv_storage><cameraMatrix><data>1 2 3</data></cameraMatrix></opencv_storage>`)
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrCalibrationMalformed)
	})

	t.Run("unparseable values", func(t *testing.T) {
		t.Parallel()
		path := writeCalibration(t, `<opencv_storage><cameraMatrix><data>a b c d e f g h i</data></cameraMatrix></opencv_storage>`)
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrCalibrationMalformed)
	})

	t.Run("distortion optional at load", func(t *testing.T) {
		t.Parallel()
		path := writeCalibration(t, `<opencv_storage><cameraMatrix><data>800 0 640 0 800 360 0 0 1</data></cameraMatrix></opencv_storage>`)
		cal, err := Load(path)
		require.NoError(t, err)
		assert.Empty(t, cal.Dist)
	})
}

func TestUndistortPoints(t *testing.T) {
	t.Parallel()

	t.Run("inverts the forward model", func(t *testing.T) {
		t.Parallel()
		cal, err := Load(writeCalibration(t, calibrationXML))
		require.NoError(t, err)

		originals := []model.Point{
			{X: 640, Y: 360}, // principal point: no distortion
			{X: 500, Y: 300},
			{X: 900, Y: 500},
			{X: 200, Y: 100},
		}
		distorted := make([]model.Point, len(originals))
		for i, p := range originals {
			distorted[i] = distort(cal, p)
		}

		recovered, err := cal.UndistortPoints(distorted)
		require.NoError(t, err)
		require.Len(t, recovered, len(originals))
		for i := range originals {
			assert.InDelta(t, originals[i].X, recovered[i].X, 1e-6)
			assert.InDelta(t, originals[i].Y, recovered[i].Y, 1e-6)
		}
	})

	t.Run("requires distortion coefficients", func(t *testing.T) {
		t.Parallel()
		cal := &Calibration{Matrix: [3][3]float64{{800, 0, 640}, {0, 800, 360}, {0, 0, 1}}}
		_, err := cal.UndistortPoints([]model.Point{{X: 1, Y: 1}})
		assert.ErrorIs(t, err, ErrCalibrationMalformed)
	})

	t.Run("zero coefficients are the identity", func(t *testing.T) {
		t.Parallel()
		cal := &Calibration{
			Matrix: [3][3]float64{{800, 0, 640}, {0, 800, 360}, {0, 0, 1}},
			Dist:   []float64{0, 0, 0, 0},
		}
		in := []model.Point{{X: 123.5, Y: 456.25}}
		out, err := cal.UndistortPoints(in)
		require.NoError(t, err)
		assert.InDelta(t, in[0].X, out[0].X, 1e-9)
		assert.InDelta(t, in[0].Y, out[0].Y, 1e-9)
	})
}

func TestUndistortSamples(t *testing.T) {
	t.Parallel()

	cal, err := Load(writeCalibration(t, calibrationXML))
	require.NoError(t, err)

	ds := model.Dataset{{
		Target:      distort(cal, model.Point{X: 640, Y: 360}),
		TopLeft:     distort(cal, model.Point{X: 400, Y: 200}),
		TopRight:    distort(cal, model.Point{X: 880, Y: 200}),
		BottomLeft:  distort(cal, model.Point{X: 400, Y: 520}),
		BottomRight: distort(cal, model.Point{X: 880, Y: 520}),
		Gaze:        distort(cal, model.Point{X: 700, Y: 400}),
	}}

	out, err := cal.UndistortSamples(ds)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.InDelta(t, 640, out[0].Target.X, 1e-6)
	assert.InDelta(t, 360, out[0].Target.Y, 1e-6)
	assert.InDelta(t, 400, out[0].TopLeft.X, 1e-6)
	assert.InDelta(t, 880, out[0].BottomRight.X, 1e-6)
	assert.InDelta(t, 700, out[0].Gaze.X, 1e-6)

	// Input dataset is untouched.
	assert.False(t, math.Abs(ds[0].Gaze.X-700) < 1e-9)
}
