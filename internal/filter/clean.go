package filter

import (
	"go.uber.org/zap"

	"github.com/mh-salari/psa-data-quality/internal/model"
	"github.com/mh-salari/psa-data-quality/internal/stats"
	"github.com/mh-salari/psa-data-quality/internal/trials"
)

// CleanScreenTrials runs the full screen-based (timestamped) cleaning
// sequence: per-trial temporal windowing and edge trimming, NaN accounting
// and removal across the windowed set, then per-trial distance and z-score
// filtering.
func CleanScreenTrials(ds model.Dataset, opts Options, collector *stats.Collector, log *zap.Logger) model.Dataset {
	// Steps 1-2: window and trim per trial.
	var windowed model.Dataset
	for _, seg := range trials.Split(ds) {
		window := WindowLast(seg.Samples, opts.TrialDurationMS)
		if len(window) == 0 {
			log.Warn("no samples in temporal window, dropping trial",
				zap.String("participant", seg.Key.ParticipantID),
				zap.Int("trial", seg.Key.TrialNumber))
			continue
		}
		windowed = append(windowed, TrimByTime(window, opts.TimeTrim)...)
	}

	// Step 3: account for missing data before removing it.
	byParticipant := map[string]model.Dataset{}
	var participantOrder []string
	for _, s := range windowed {
		if _, ok := byParticipant[s.ParticipantID]; !ok {
			participantOrder = append(participantOrder, s.ParticipantID)
		}
		byParticipant[s.ParticipantID] = append(byParticipant[s.ParticipantID], s)
	}
	for _, id := range participantOrder {
		collector.CountDataset(model.EyeLink1000Plus, id, byParticipant[id], model.MissingScreenFields)
	}

	complete, _ := DropMissing(windowed, model.MissingScreenFields)

	// Steps 4-5: spatial filtering, trial by trial.
	var out model.Dataset
	for _, seg := range trials.Split(complete) {
		kept := FilterByDistance(seg.Samples, opts.DistanceThreshold)
		kept, degenerate := FilterByZScore(kept, opts.ZThreshold, GazeAngleAxes)
		if degenerate {
			logDegenerate(log, seg.Key)
		}
		out = append(out, kept...)
	}
	return out
}

// CleanHeadMountedTrials runs the frame-indexed cleaning sequence used
// after visual-angle conversion: positional edge trimming, then distance
// and z-score filtering on the angle axes, per trial.
func CleanHeadMountedTrials(ds model.Dataset, opts Options, log *zap.Logger) model.Dataset {
	return cleanByIndex(ds, opts, log, FilterByDistance, GazeAngleAxes)
}

// CleanChordAngleTrials is the variant that filters on the precomputed
// gaze-target ray angle, used when corner geometry is unavailable and
// angles came from unprojection instead.
func CleanChordAngleTrials(ds model.Dataset, opts Options, log *zap.Logger) model.Dataset {
	return cleanByIndex(ds, opts, log, FilterByChordAngle, ChordAngleAxis)
}

func cleanByIndex(ds model.Dataset, opts Options, log *zap.Logger,
	distanceFilter func(model.Dataset, float64) model.Dataset, axes []Axis) model.Dataset {

	var out model.Dataset
	for _, seg := range trials.Split(ds) {
		kept := TrimByIndex(seg.Samples, opts.TimeTrim)
		kept = distanceFilter(kept, opts.DistanceThreshold)
		kept, degenerate := FilterByZScore(kept, opts.ZThreshold, axes)
		if degenerate {
			logDegenerate(log, seg.Key)
		}
		out = append(out, kept...)
	}
	return out
}

func logDegenerate(log *zap.Logger, key trials.Key) {
	log.Warn("degenerate trial statistics, z-score filter skipped",
		zap.String("participant", key.ParticipantID),
		zap.Int("trial", key.TrialNumber))
}
