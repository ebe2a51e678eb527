// Package filter implements the multi-stage per-trial outlier rejection:
// temporal windowing, edge trimming, missing-data removal, spatial distance
// thresholding and trial-local z-score filtering, in that fixed order.
package filter

import (
	"math"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

// Options are the tunable thresholds of the cleaning pipeline.
type Options struct {
	// TrialDurationMS keeps only the last TrialDurationMS milliseconds of
	// each trial (timestamp sources only).
	TrialDurationMS float64
	// TimeTrim is the total percentage trimmed off the window, split
	// evenly between its start and end.
	TimeTrim float64
	// DistanceThreshold is the maximum gaze-to-target distance, in the
	// unit space current at filtering time (degrees or normalized offset).
	DistanceThreshold float64
	// ZThreshold rejects samples whose |z| meets or exceeds it on any axis.
	ZThreshold float64
}

// DefaultOptions mirrors the recording protocol: a 5 s stimulus window,
// 25% total edge trim, 10-unit distance cutoff, 3 SD outlier cutoff.
func DefaultOptions() Options {
	return Options{
		TrialDurationMS:   5000,
		TimeTrim:          25,
		DistanceThreshold: 10,
		ZThreshold:        3,
	}
}

// Axis selects one spatial value from a sample for distance or z-score
// filtering.
type Axis struct {
	Name string
	Get  func(*model.Sample) float64
}

// GazeAngleAxes are the filtering axes once samples carry visual angles.
var GazeAngleAxes = []Axis{
	{Name: "gaze_angle_x", Get: func(s *model.Sample) float64 { return s.GazeAngle.X }},
	{Name: "gaze_angle_y", Get: func(s *model.Sample) float64 { return s.GazeAngle.Y }},
}

// ChordAngleAxis filters on the precomputed gaze-target ray angle.
var ChordAngleAxis = []Axis{
	{Name: "gaze_target_angle", Get: func(s *model.Sample) float64 { return s.GazeTargetAngle }},
}

// WindowLast keeps the samples whose time-from-trial-start lies within the
// last durationMS milliseconds of the trial's maximum. An empty result is
// the caller's signal to drop the trial with a warning.
func WindowLast(ds model.Dataset, durationMS float64) model.Dataset {
	if len(ds) == 0 {
		return nil
	}
	maxTime := math.Inf(-1)
	for i := range ds {
		if ds[i].TimeFromStartMS > maxTime {
			maxTime = ds[i].TimeFromStartMS
		}
	}
	minTime := maxTime - durationMS

	var out model.Dataset
	for _, s := range ds {
		if s.TimeFromStartMS >= minTime && s.TimeFromStartMS <= maxTime {
			out = append(out, s)
		}
	}
	return out
}

// TrimByTime removes trimPercent/2 percent of the window's time range from
// each end. Bounds come from the min/max of the remaining window, not the
// whole trial.
func TrimByTime(ds model.Dataset, trimPercent float64) model.Dataset {
	if len(ds) == 0 || trimPercent <= 0 {
		return ds
	}

	minTime, maxTime := math.Inf(1), math.Inf(-1)
	for i := range ds {
		t := ds[i].TimeFromStartMS
		minTime = math.Min(minTime, t)
		maxTime = math.Max(maxTime, t)
	}

	edge := (maxTime - minTime) * (trimPercent / 2) / 100
	start := minTime + edge
	end := maxTime - edge

	var out model.Dataset
	for _, s := range ds {
		if s.TimeFromStartMS >= start && s.TimeFromStartMS <= end {
			out = append(out, s)
		}
	}
	return out
}

// TrimByIndex is the frame-indexed analog of TrimByTime: it trims by row
// position within the trial instead of by timestamp.
func TrimByIndex(ds model.Dataset, trimPercent float64) model.Dataset {
	if len(ds) == 0 || trimPercent <= 0 {
		return ds
	}

	last := len(ds) - 1
	edge := int(float64(last) * (trimPercent / 2) / 100)
	start := edge
	end := last - edge
	if start > end {
		return nil
	}

	out := make(model.Dataset, end-start+1)
	copy(out, ds[start:end+1])
	return out
}

// DropMissing removes samples with a NaN in any critical field and reports
// how many were dropped. Callers record statistics before calling this.
func DropMissing(ds model.Dataset, missing model.MissingFunc) (model.Dataset, int) {
	var out model.Dataset
	dropped := 0
	for _, s := range ds {
		if missing(&s) {
			dropped++
			continue
		}
		out = append(out, s)
	}
	return out, dropped
}

// FilterByDistance keeps samples whose Euclidean gaze-to-target distance in
// angle space is within threshold.
func FilterByDistance(ds model.Dataset, threshold float64) model.Dataset {
	var out model.Dataset
	for _, s := range ds {
		d := math.Hypot(s.GazeAngle.X-s.TargetAngle.X, s.GazeAngle.Y-s.TargetAngle.Y)
		if d <= threshold {
			out = append(out, s)
		}
	}
	return out
}

// FilterByChordAngle keeps samples whose precomputed gaze-target ray angle
// is within threshold.
func FilterByChordAngle(ds model.Dataset, threshold float64) model.Dataset {
	var out model.Dataset
	for _, s := range ds {
		if s.GazeTargetAngle <= threshold {
			out = append(out, s)
		}
	}
	return out
}

// FilterByZScore drops samples whose |z| meets or exceeds threshold on any
// axis. Statistics are trial-local: the mean and population standard
// deviation come from the dataset passed in, with NaNs omitted.
//
// Degenerate statistics (fewer than two valid samples, or zero/NaN SD on
// an axis) make that axis a no-op rather than an error: the z-score is
// unavailable, so no sample is rejected by it. The returned flag reports
// whether any axis degenerated, so the caller can log it.
func FilterByZScore(ds model.Dataset, threshold float64, axes []Axis) (model.Dataset, bool) {
	if len(ds) == 0 {
		return ds, false
	}

	keep := make([]bool, len(ds))
	for i := range keep {
		keep[i] = true
	}

	degenerate := false
	for _, axis := range axes {
		mean, sd, n := meanStd(ds, axis.Get)
		if n < 2 || sd == 0 || math.IsNaN(sd) {
			degenerate = true
			continue
		}
		for i := range ds {
			v := axis.Get(&ds[i])
			if model.NaN(v) {
				continue
			}
			if math.Abs((v-mean)/sd) >= threshold {
				keep[i] = false
			}
		}
	}

	var out model.Dataset
	for i, s := range ds {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out, degenerate
}

// meanStd returns the mean and population standard deviation of the axis
// values, skipping NaNs, plus the count of valid samples.
func meanStd(ds model.Dataset, get func(*model.Sample) float64) (mean, sd float64, n int) {
	var sum float64
	for i := range ds {
		v := get(&ds[i])
		if model.NaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN(), 0
	}
	mean = sum / float64(n)

	var sq float64
	for i := range ds {
		v := get(&ds[i])
		if model.NaN(v) {
			continue
		}
		diff := v - mean
		sq += diff * diff
	}
	sd = math.Sqrt(sq / float64(n))
	return mean, sd, n
}
