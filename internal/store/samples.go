package store

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/mh-salari/psa-data-quality/internal/geometry"
	"github.com/mh-salari/psa-data-quality/internal/model"
)

// Column sets for the pipeline's CSV artifacts.
var (
	// IntermediateColumns is the schema of undistorted.csv and
	// stabilized.csv: identity, raw pixel geometry and pupil sizes.
	IntermediateColumns = []string{
		"eye_tracker", "participant_id", "trial_number", "frame",
		"trial_condition", "target_x", "target_y",
		"top_left_x", "top_left_y", "top_right_x", "top_right_y",
		"bottom_left_x", "bottom_left_y", "bottom_right_x", "bottom_right_y",
		"pup_diam_l", "pup_diam_r", "gaze_x", "gaze_y",
	}

	// HeadMountedDataColumns is the final head-mounted data.csv schema.
	HeadMountedDataColumns = append(append([]string{}, IntermediateColumns...),
		"distance_mm", "gaze_angle_x", "gaze_angle_y", "target_angle_x", "target_angle_y")

	// ChordDataColumns is the final schema of the unprojection variant.
	ChordDataColumns = append(append([]string{}, IntermediateColumns...),
		"gaze_target_angle")

	// PupilSizeColumns is the schema of the combined pupil_size.csv
	// handed to the downstream aggregation step.
	PupilSizeColumns = []string{
		"eye_tracker", "participant_id", "trial_number", "trial_condition",
		"pup_diam_l", "pup_diam_r",
	}

	// ScreenDataColumns is the final EyeLink data.csv schema.
	ScreenDataColumns = []string{
		"eye_tracker", "participant_id", "trial_number", "trial_condition",
		"target_x", "target_y", "gaze_x", "gaze_y",
		"gaze_angle_x", "gaze_angle_y", "target_angle_x", "target_angle_y",
		"pup_diam_l", "pup_diam_r",
	}
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// fieldAccess binds every known column name to its Sample field.
func fieldAccess(name string, s *model.Sample) (get func() string, set func(*Table, int)) {
	f := func(p *float64) (func() string, func(*Table, int)) {
		return func() string { return formatFloat(*p) },
			func(t *Table, row int) { *p = t.Float(row, name) }
	}

	switch name {
	case "eye_tracker":
		return func() string { return s.EyeTracker },
			func(t *Table, row int) { s.EyeTracker = t.String(row, name) }
	case "participant_id":
		return func() string { return s.ParticipantID },
			func(t *Table, row int) { s.ParticipantID = t.String(row, name) }
	case "trial_number":
		return func() string { return strconv.Itoa(s.TrialNumber) },
			func(t *Table, row int) { s.TrialNumber = t.Int(row, name) }
	case "frame":
		return func() string { return strconv.Itoa(s.Frame) },
			func(t *Table, row int) { s.Frame = t.Int(row, name) }
	case "trial_condition":
		return func() string { return s.TrialCondition },
			func(t *Table, row int) { s.TrialCondition = t.String(row, name) }
	case "target_x":
		return f(&s.Target.X)
	case "target_y":
		return f(&s.Target.Y)
	case "gaze_x":
		return f(&s.Gaze.X)
	case "gaze_y":
		return f(&s.Gaze.Y)
	case "top_left_x":
		return f(&s.TopLeft.X)
	case "top_left_y":
		return f(&s.TopLeft.Y)
	case "top_right_x":
		return f(&s.TopRight.X)
	case "top_right_y":
		return f(&s.TopRight.Y)
	case "bottom_left_x":
		return f(&s.BottomLeft.X)
	case "bottom_left_y":
		return f(&s.BottomLeft.Y)
	case "bottom_right_x":
		return f(&s.BottomRight.X)
	case "bottom_right_y":
		return f(&s.BottomRight.Y)
	case "pup_diam_l":
		return f(&s.PupDiamL)
	case "pup_diam_r":
		return f(&s.PupDiamR)
	case "gaze_angle_x":
		return f(&s.GazeAngle.X)
	case "gaze_angle_y":
		return f(&s.GazeAngle.Y)
	case "target_angle_x":
		return f(&s.TargetAngle.X)
	case "target_angle_y":
		return f(&s.TargetAngle.Y)
	case "gaze_target_angle":
		return f(&s.GazeTargetAngle)
	case "distance_mm":
		return f(&s.DistanceMM)
	default:
		return nil, nil
	}
}

// WriteSamples writes ds to path with the given column set.
func WriteSamples(path string, ds model.Dataset, columns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}

	row := make([]string, len(columns))
	for i := range ds {
		for j, col := range columns {
			get, _ := fieldAccess(col, &ds[i])
			if get == nil {
				return fmt.Errorf("write %s: unknown column %q", path, col)
			}
			row[j] = get()
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// ReadSamples loads a previously written sample CSV. Columns the file does
// not carry stay at their zero/NaN defaults.
func ReadSamples(path string) (model.Dataset, error) {
	t, err := ReadTable(path, ',')
	if err != nil {
		return nil, err
	}

	ds := make(model.Dataset, t.Len())
	for i := range ds {
		s := &ds[i]
		nanFill(s)
		for _, col := range t.Columns {
			_, set := fieldAccess(col, s)
			if set != nil {
				set(t, i)
			}
		}
	}
	return ds, nil
}

// nanFill marks every float field missing before column assignment, so an
// absent column reads as NaN rather than zero.
func nanFill(s *model.Sample) {
	nan := math.NaN()
	for _, p := range model.CoordinateFields(s) {
		p.X, p.Y = nan, nan
	}
	s.GazeAngle = model.Point{X: nan, Y: nan}
	s.TargetAngle = model.Point{X: nan, Y: nan}
	s.PupDiamL, s.PupDiamR = nan, nan
	s.GazeTargetAngle = nan
	s.DistanceMM = nan
}

// WriteDistances writes the per-frame viewing distance estimates.
func WriteDistances(path string, distances []geometry.DistanceEstimate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"frame", "distance_from_width", "distance_from_height", "distance_average"}); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for _, d := range distances {
		row := []string{
			strconv.Itoa(d.Frame),
			formatFloat(d.FromWidth),
			formatFloat(d.FromHeight),
			formatFloat(d.Average),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadDistances loads a distance.csv written by WriteDistances.
func ReadDistances(path string) ([]geometry.DistanceEstimate, error) {
	t, err := ReadTable(path, ',')
	if err != nil {
		return nil, err
	}
	if err := t.Require("frame", "distance_average"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]geometry.DistanceEstimate, t.Len())
	for i := range out {
		out[i] = geometry.DistanceEstimate{
			Frame:      t.Int(i, "frame"),
			FromWidth:  t.Float(i, "distance_from_width"),
			FromHeight: t.Float(i, "distance_from_height"),
			Average:    t.Float(i, "distance_average"),
		}
	}
	return out, nil
}
