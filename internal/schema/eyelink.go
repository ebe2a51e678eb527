// Package schema maps device-specific raw exports into the common sample
// schema and computes the derived fields.
package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/mh-salari/psa-data-quality/internal/model"
	"github.com/mh-salari/psa-data-quality/internal/store"
)

// EyeLink pupil measurements arrive in arbitrary area units; the recording
// used a calibration target of known size to fix the conversion.
const (
	eyelinkReferenceArea       = 11815
	eyelinkReferenceDiameterMM = 15
)

// The stimulus screen of the EyeLink setup. The target sat at its center.
const (
	screenWidthPx  = 1920
	screenHeightPx = 1080
)

var eyelinkRawColumns = []string{
	"RECORDING_SESSION_LABEL", "TRIAL_INDEX", "TIMESTAMP",
	"AVERAGE_GAZE_X", "AVERAGE_GAZE_Y",
	"RESOLUTION_X", "RESOLUTION_Y",
	"LEFT_PUPIL_SIZE", "RIGHT_PUPIL_SIZE",
}

// SanitizeParticipantID strips everything but digits from a raw session
// label.
func SanitizeParticipantID(label string) string {
	var b strings.Builder
	for _, r := range label {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ConditionForTrial derives the screen-based trial condition from trial
// index parity. This is a strict protocol rule, not a label read from the
// raw data: odd trials presented the dark (dilating) stimulus.
func ConditionForTrial(trialNumber int) string {
	if trialNumber%2 == 1 {
		return model.ConditionDilated
	}
	return model.ConditionConstricted
}

// PupilAreaToDiameter converts a raw pupil area reading to a diameter in
// millimeters, assuming the fixed calibration target:
// diameter = referenceDiameter * sqrt(area / referenceArea).
func PupilAreaToDiameter(area float64) float64 {
	return eyelinkReferenceDiameterMM * math.Sqrt(area/eyelinkReferenceArea)
}

// NormalizeEyeLink maps the raw EyeLink export into the common schema:
// identity fields, parity-derived condition, screen-center target,
// normalized-offset pseudo-angles, area-to-diameter pupil conversion and
// per-trial time-from-start.
//
// The pseudo-angle (pixel - center) / resolution is the screen-based
// device's linear approximation; it is intentionally different from the
// trigonometric conversion used for head-mounted devices.
func NormalizeEyeLink(t *store.Table) (model.Dataset, error) {
	if err := t.Require(eyelinkRawColumns...); err != nil {
		return nil, fmt.Errorf("eyelink export: %w", err)
	}

	// Per-(session, trial) minimum timestamps, first pass.
	type trialKey struct {
		label string
		trial int
	}
	minTime := map[trialKey]float64{}
	for i := 0; i < t.Len(); i++ {
		k := trialKey{t.String(i, "RECORDING_SESSION_LABEL"), t.Int(i, "TRIAL_INDEX")}
		ts := t.Float(i, "TIMESTAMP")
		if cur, ok := minTime[k]; !ok || ts < cur {
			minTime[k] = ts
		}
	}

	ds := make(model.Dataset, t.Len())
	for i := 0; i < t.Len(); i++ {
		label := t.String(i, "RECORDING_SESSION_LABEL")
		trial := t.Int(i, "TRIAL_INDEX")
		gazeX := t.Float(i, "AVERAGE_GAZE_X")
		gazeY := t.Float(i, "AVERAGE_GAZE_Y")

		ds[i] = model.Sample{
			EyeTracker:      model.EyeLink1000Plus,
			ParticipantID:   SanitizeParticipantID(label),
			TrialNumber:     trial,
			TrialCondition:  ConditionForTrial(trial),
			TimestampMS:     t.Float(i, "TIMESTAMP"),
			TimeFromStartMS: t.Float(i, "TIMESTAMP") - minTime[trialKey{label, trial}],
			Target:          model.Point{X: screenWidthPx / 2, Y: screenHeightPx / 2},
			Gaze:            model.Point{X: gazeX, Y: gazeY},
			GazeAngle: model.Point{
				X: (gazeX - screenWidthPx/2) / t.Float(i, "RESOLUTION_X"),
				Y: (gazeY - screenHeightPx/2) / t.Float(i, "RESOLUTION_Y"),
			},
			TargetAngle: model.Point{X: 0, Y: 0},
			PupDiamL:    PupilAreaToDiameter(t.Float(i, "LEFT_PUPIL_SIZE")),
			PupDiamR:    PupilAreaToDiameter(t.Float(i, "RIGHT_PUPIL_SIZE")),
		}
	}
	return ds, nil
}

// NormalizeCommon re-derives the fields that are functions of identity
// data: sanitized participant ids and parity conditions for the
// screen-based device. Running it on already-normalized data is a no-op.
func NormalizeCommon(ds model.Dataset) model.Dataset {
	out := ds.Clone()
	for i := range out {
		out[i].ParticipantID = SanitizeParticipantID(out[i].ParticipantID)
		if out[i].EyeTracker == model.EyeLink1000Plus {
			out[i].TrialCondition = ConditionForTrial(out[i].TrialNumber)
		}
	}
	return out
}
