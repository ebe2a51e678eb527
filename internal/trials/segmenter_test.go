package trials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	ds := model.Dataset{
		{ParticipantID: "101", TrialNumber: 2, Frame: 0},
		{ParticipantID: "101", TrialNumber: 2, Frame: 1},
		{ParticipantID: "101", TrialNumber: 1, Frame: 0},
		{ParticipantID: "203", TrialNumber: 2, Frame: 0},
		{ParticipantID: "101", TrialNumber: 2, Frame: 2},
	}

	segments := Split(ds)
	require.Len(t, segments, 3)

	// First-appearance order, not sorted order.
	assert.Equal(t, Key{ParticipantID: "101", TrialNumber: 2}, segments[0].Key)
	assert.Equal(t, Key{ParticipantID: "101", TrialNumber: 1}, segments[1].Key)
	assert.Equal(t, Key{ParticipantID: "203", TrialNumber: 2}, segments[2].Key)

	// Relative order within a group is preserved.
	require.Len(t, segments[0].Samples, 3)
	assert.Equal(t, 0, segments[0].Samples[0].Frame)
	assert.Equal(t, 1, segments[0].Samples[1].Frame)
	assert.Equal(t, 2, segments[0].Samples[2].Frame)

	assert.Empty(t, Split(nil))
}

func TestMerge(t *testing.T) {
	t.Parallel()

	ds := model.Dataset{
		{ParticipantID: "101", TrialNumber: 1, Frame: 0},
		{ParticipantID: "101", TrialNumber: 1, Frame: 1},
		{ParticipantID: "101", TrialNumber: 2, Frame: 0},
	}

	merged := Merge(Split(ds))
	require.Len(t, merged, len(ds))
	for i := range ds {
		assert.Equal(t, ds[i], merged[i])
	}

	assert.Empty(t, Merge(nil))
}
