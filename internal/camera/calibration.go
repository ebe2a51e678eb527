package camera

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

var (
	// ErrCalibrationMissing means the per-directory calibration file does
	// not exist. Fatal for that directory, recoverable for the batch.
	ErrCalibrationMissing = errors.New("calibration file not found")

	// ErrCalibrationMalformed means a required element is absent or
	// unparseable. Same recovery policy as ErrCalibrationMissing.
	ErrCalibrationMalformed = errors.New("calibration file malformed")
)

// Calibration holds the intrinsic matrix and distortion coefficients read
// from an OpenCV-style XML file. Immutable after Load; shared read-only
// across all samples of a device directory.
type Calibration struct {
	Matrix [3][3]float64
	Dist   []float64
}

type xmlMatrix struct {
	Data string `xml:"data"`
}

type xmlCalibration struct {
	CameraMatrix xmlMatrix `xml:"cameraMatrix"`
	DistCoeff    xmlMatrix `xml:"distCoeff"`
}

// Load reads calibration from path. The 3x3 cameraMatrix is required; the
// distCoeff vector is optional here and checked again by UndistortPoints,
// which cannot run without it.
func Load(path string) (*Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCalibrationMissing, path)
		}
		return nil, fmt.Errorf("read calibration %s: %w", path, err)
	}

	var doc xmlCalibration
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCalibrationMalformed, path, err)
	}

	values, err := parseFloats(doc.CameraMatrix.Data)
	if err != nil || len(values) != 9 {
		return nil, fmt.Errorf("%w: %s: cameraMatrix needs 9 values", ErrCalibrationMalformed, path)
	}

	cal := &Calibration{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cal.Matrix[i][j] = values[i*3+j]
		}
	}

	if strings.TrimSpace(doc.DistCoeff.Data) != "" {
		dist, err := parseFloats(doc.DistCoeff.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad distCoeff data", ErrCalibrationMalformed, path)
		}
		cal.Dist = dist
	}

	return cal, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errors.New("empty data element")
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FocalLength is the (0,0) element of the intrinsic matrix, in pixels.
func (c *Calibration) FocalLength() float64 { return c.Matrix[0][0] }

func (c *Calibration) fx() float64 { return c.Matrix[0][0] }
func (c *Calibration) fy() float64 { return c.Matrix[1][1] }
func (c *Calibration) cx() float64 { return c.Matrix[0][2] }
func (c *Calibration) cy() float64 { return c.Matrix[1][2] }

// Normalize maps a pixel position onto the normalized image plane using
// the intrinsic matrix only (no distortion handling).
func (c *Calibration) Normalize(p model.Point) model.Point {
	return model.Point{
		X: (p.X - c.cx()) / c.fx(),
		Y: (p.Y - c.cy()) / c.fy(),
	}
}
