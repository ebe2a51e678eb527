package schema

import (
	"fmt"
	"math"
	"sort"

	"github.com/mh-salari/psa-data-quality/internal/model"
	"github.com/mh-salari/psa-data-quality/internal/store"
)

var targetRequiredColumns = []string{
	"frame", "trial_condition", "segment", "target_x", "target_y",
}

var gazeRequiredColumns = []string{
	"frame_idx", "gaze_pos_vid_x", "gaze_pos_vid_y",
}

// MergeHeadMounted left-joins the per-frame target annotations with the
// gaze export on frame == frame_idx and maps the result into the common
// schema: segment becomes the trial number, gaze_pos_vid_* becomes the
// gaze position, and columns a tracker does not export read as NaN. The
// output is sorted by frame.
func MergeHeadMounted(target, gaze *store.Table, eyeTracker, participantID string) (model.Dataset, error) {
	if err := target.Require(targetRequiredColumns...); err != nil {
		return nil, fmt.Errorf("target export: %w", err)
	}
	if err := gaze.Require(gazeRequiredColumns...); err != nil {
		return nil, fmt.Errorf("gaze export: %w", err)
	}

	gazeByFrame := make(map[int]int, gaze.Len())
	for i := 0; i < gaze.Len(); i++ {
		gazeByFrame[gaze.Int(i, "frame_idx")] = i
	}

	nan := math.NaN()
	ds := make(model.Dataset, target.Len())
	for i := 0; i < target.Len(); i++ {
		s := model.Sample{
			EyeTracker:     eyeTracker,
			ParticipantID:  participantID,
			Frame:          target.Int(i, "frame"),
			TrialNumber:    target.Int(i, "segment"),
			TrialCondition: target.String(i, "trial_condition"),
			Target: model.Point{
				X: target.Float(i, "target_x"),
				Y: target.Float(i, "target_y"),
			},
			TopLeft: model.Point{
				X: target.Float(i, "top_left_x"),
				Y: target.Float(i, "top_left_y"),
			},
			TopRight: model.Point{
				X: target.Float(i, "top_right_x"),
				Y: target.Float(i, "top_right_y"),
			},
			BottomLeft: model.Point{
				X: target.Float(i, "bottom_left_x"),
				Y: target.Float(i, "bottom_left_y"),
			},
			BottomRight: model.Point{
				X: target.Float(i, "bottom_right_x"),
				Y: target.Float(i, "bottom_right_y"),
			},
			Gaze:     model.Point{X: nan, Y: nan},
			PupDiamL: nan,
			PupDiamR: nan,
		}

		if j, ok := gazeByFrame[s.Frame]; ok {
			s.Gaze.X = gaze.Float(j, "gaze_pos_vid_x")
			s.Gaze.Y = gaze.Float(j, "gaze_pos_vid_y")
			s.PupDiamL = gaze.Float(j, "pup_diam_l")
			s.PupDiamR = gaze.Float(j, "pup_diam_r")
		}
		ds[i] = s
	}

	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Frame < ds[j].Frame })
	return ds, nil
}
