package schema

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mh-salari/psa-data-quality/internal/model"
	"github.com/mh-salari/psa-data-quality/internal/store"
)

func writeTable(t *testing.T, name, content string) *store.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	comma := ','
	if filepath.Ext(name) == ".tsv" {
		comma = '\t'
	}
	table, err := store.ReadTable(path, comma)
	require.NoError(t, err)
	return table
}

func TestSanitizeParticipantID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "101", SanitizeParticipantID("sub_101"))
	assert.Equal(t, "101", SanitizeParticipantID("101"))
	assert.Equal(t, "2023101", SanitizeParticipantID("P-2023/101 "))
	assert.Equal(t, "", SanitizeParticipantID("pilot"))
}

func TestConditionForTrial(t *testing.T) {
	t.Parallel()

	for trial := 1; trial <= 8; trial++ {
		want := model.ConditionConstricted
		if trial%2 == 1 {
			want = model.ConditionDilated
		}
		assert.Equal(t, want, ConditionForTrial(trial), "trial %d", trial)
	}
}

func TestPupilAreaToDiameter(t *testing.T) {
	t.Parallel()

	// The reference area maps exactly to the reference diameter.
	assert.InDelta(t, 15, PupilAreaToDiameter(11815), 1e-9)
	// Quadrupled area doubles the diameter.
	assert.InDelta(t, 30, PupilAreaToDiameter(4*11815), 1e-9)
	assert.InDelta(t, 0, PupilAreaToDiameter(0), 1e-12)

	// Larger area always means larger diameter.
	assert.Less(t, PupilAreaToDiameter(5000), PupilAreaToDiameter(5001))
	assert.True(t, math.IsNaN(PupilAreaToDiameter(math.NaN())))
}

const eyelinkExport = "RECORDING_SESSION_LABEL\tTRIAL_INDEX\tTIMESTAMP\tAVERAGE_GAZE_X\tAVERAGE_GAZE_Y\tRESOLUTION_X\tRESOLUTION_Y\tLEFT_PUPIL_SIZE\tRIGHT_PUPIL_SIZE\n" +
	"sub_101\t1\t50000\t960\t540\t25\t25\t11815\t11815\n" +
	"sub_101\t1\t50004\t1060\t490\t25\t25\t.\t11815\n" +
	"sub_101\t2\t90000\t960\t540\t25\t25\t11815\t11815\n"

func TestNormalizeEyeLink(t *testing.T) {
	t.Parallel()

	table := writeTable(t, "export.tsv", eyelinkExport)
	ds, err := NormalizeEyeLink(table)
	require.NoError(t, err)
	require.Len(t, ds, 3)

	first := ds[0]
	assert.Equal(t, model.EyeLink1000Plus, first.EyeTracker)
	assert.Equal(t, "101", first.ParticipantID)
	assert.Equal(t, 1, first.TrialNumber)
	assert.Equal(t, model.ConditionDilated, first.TrialCondition)
	assert.Equal(t, model.ConditionConstricted, ds[2].TrialCondition)

	// Time runs from each trial's own first timestamp.
	assert.InDelta(t, 0, ds[0].TimeFromStartMS, 1e-12)
	assert.InDelta(t, 4, ds[1].TimeFromStartMS, 1e-12)
	assert.InDelta(t, 0, ds[2].TimeFromStartMS, 1e-12)

	// The target is the screen center and gaze at center has zero
	// pseudo-angle.
	assert.InDelta(t, 960, first.Target.X, 1e-12)
	assert.InDelta(t, 540, first.Target.Y, 1e-12)
	assert.InDelta(t, 0, first.GazeAngle.X, 1e-12)
	assert.InDelta(t, 0, first.GazeAngle.Y, 1e-12)

	// 100 px right and 50 px up at 25 px/deg resolution.
	assert.InDelta(t, 4, ds[1].GazeAngle.X, 1e-12)
	assert.InDelta(t, -2, ds[1].GazeAngle.Y, 1e-12)

	// Reference area converts to the reference diameter; the missing
	// token becomes NaN.
	assert.InDelta(t, 15, first.PupDiamL, 1e-9)
	assert.True(t, math.IsNaN(ds[1].PupDiamL))
	assert.InDelta(t, 15, ds[1].PupDiamR, 1e-9)
}

func TestNormalizeEyeLinkMissingColumn(t *testing.T) {
	t.Parallel()

	table := writeTable(t, "export.tsv", "RECORDING_SESSION_LABEL\tTRIAL_INDEX\nsub_101\t1\n")
	_, err := NormalizeEyeLink(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMESTAMP")
}

func TestNormalizeCommon(t *testing.T) {
	t.Parallel()

	ds := model.Dataset{
		{EyeTracker: model.EyeLink1000Plus, ParticipantID: "sub_101", TrialNumber: 3},
		{EyeTracker: model.PupilCore, ParticipantID: "460", TrialNumber: 2, TrialCondition: model.ConditionDark},
	}

	out := NormalizeCommon(ds)
	assert.Equal(t, "101", out[0].ParticipantID)
	assert.Equal(t, model.ConditionDilated, out[0].TrialCondition)

	// Head-mounted conditions come from the recording, not parity.
	assert.Equal(t, model.ConditionDark, out[1].TrialCondition)

	// Idempotent: a second pass changes nothing.
	again := NormalizeCommon(out)
	assert.Equal(t, out, again)
}

const targetExport = "frame,trial_condition,segment,target_x,target_y,top_left_x,top_left_y,top_right_x,top_right_y,bottom_left_x,bottom_left_y,bottom_right_x,bottom_right_y\n" +
	"2,dark,1,640,360,400,200,880,200,400,520,880,520\n" +
	"0,dark,1,642,361,402,201,882,201,402,521,882,521\n" +
	"1,dark,1,641,360,401,200,881,200,401,520,881,520\n"

const gazeExport = "frame_idx,gaze_pos_vid_x,gaze_pos_vid_y,pup_diam_l,pup_diam_r\n" +
	"0,650,350,3.1,3.2\n" +
	"2,655,355,3.3,3.4\n"

func TestMergeHeadMounted(t *testing.T) {
	t.Parallel()

	t.Run("joins on frame and sorts", func(t *testing.T) {
		t.Parallel()
		target := writeTable(t, "target.csv", targetExport)
		gaze := writeTable(t, "gazeData.tsv", "frame_idx\tgaze_pos_vid_x\tgaze_pos_vid_y\tpup_diam_l\tpup_diam_r\n0\t650\t350\t3.1\t3.2\n2\t655\t355\t3.3\t3.4\n")

		ds, err := MergeHeadMounted(target, gaze, model.PupilCore, "101")
		require.NoError(t, err)
		require.Len(t, ds, 3)

		// Sorted by frame regardless of the target file's row order.
		assert.Equal(t, 0, ds[0].Frame)
		assert.Equal(t, 1, ds[1].Frame)
		assert.Equal(t, 2, ds[2].Frame)

		assert.Equal(t, model.PupilCore, ds[0].EyeTracker)
		assert.Equal(t, "101", ds[0].ParticipantID)
		assert.Equal(t, 1, ds[0].TrialNumber)
		assert.Equal(t, model.ConditionDark, ds[0].TrialCondition)

		assert.InDelta(t, 650, ds[0].Gaze.X, 1e-12)
		assert.InDelta(t, 3.2, ds[0].PupDiamR, 1e-12)
		assert.InDelta(t, 655, ds[2].Gaze.X, 1e-12)

		// Frame 1 has no gaze row: left join pads with NaN.
		assert.True(t, math.IsNaN(ds[1].Gaze.X))
		assert.True(t, math.IsNaN(ds[1].PupDiamL))

		// Corner geometry comes through.
		assert.InDelta(t, 402, ds[0].TopLeft.X, 1e-12)
		assert.InDelta(t, 880, ds[2].BottomRight.X, 1e-12)
	})

	t.Run("columns the tracker does not export read as NaN", func(t *testing.T) {
		t.Parallel()
		target := writeTable(t, "target.csv", targetExport)
		gaze := writeTable(t, "gazeData.tsv", "frame_idx\tgaze_pos_vid_x\tgaze_pos_vid_y\n0\t650\t350\n")

		ds, err := MergeHeadMounted(target, gaze, model.SMIETG, "101")
		require.NoError(t, err)
		assert.InDelta(t, 650, ds[0].Gaze.X, 1e-12)
		assert.True(t, math.IsNaN(ds[0].PupDiamL))
		assert.True(t, math.IsNaN(ds[0].PupDiamR))
	})

	t.Run("missing required columns are rejected", func(t *testing.T) {
		t.Parallel()
		target := writeTable(t, "target.csv", "frame,target_x\n0,640\n")
		gaze := writeTable(t, "gazeData.tsv", "frame_idx\tgaze_pos_vid_x\tgaze_pos_vid_y\n")

		_, err := MergeHeadMounted(target, gaze, model.PupilCore, "101")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trial_condition")
	})
}
