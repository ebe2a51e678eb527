// Package trials groups a continuous sample stream into per-trial segments.
package trials

import "github.com/mh-salari/psa-data-quality/internal/model"

// Key identifies one trial of one participant.
type Key struct {
	ParticipantID string
	TrialNumber   int
}

// Segment is the ordered sample sequence of one trial. Segments are never
// empty: they only arise from existing rows.
type Segment struct {
	Key     Key
	Samples model.Dataset
}

// Split groups ds by (participant, trial number), preserving the original
// relative order within each group. Segments come back in first-appearance
// order so downstream output is deterministic. No reordering, no
// interpolation.
func Split(ds model.Dataset) []Segment {
	index := make(map[Key]int)
	var segments []Segment

	for _, s := range ds {
		k := Key{ParticipantID: s.ParticipantID, TrialNumber: s.TrialNumber}
		i, ok := index[k]
		if !ok {
			i = len(segments)
			index[k] = i
			segments = append(segments, Segment{Key: k})
		}
		segments[i].Samples = append(segments[i].Samples, s)
	}
	return segments
}

// Merge concatenates segments back into a single dataset, in segment order.
func Merge(segments []Segment) model.Dataset {
	var n int
	for _, seg := range segments {
		n += len(seg.Samples)
	}
	out := make(model.Dataset, 0, n)
	for _, seg := range segments {
		out = append(out, seg.Samples...)
	}
	return out
}
