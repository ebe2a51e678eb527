package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mh-salari/psa-data-quality/internal/camera"
	"github.com/mh-salari/psa-data-quality/internal/filter"
	"github.com/mh-salari/psa-data-quality/internal/geometry"
	"github.com/mh-salari/psa-data-quality/internal/model"
	"github.com/mh-salari/psa-data-quality/internal/schema"
	"github.com/mh-salari/psa-data-quality/internal/stats"
	"github.com/mh-salari/psa-data-quality/internal/store"
)

// RunEyeLink cleans the screen-based export end to end: normalize, window,
// account for and drop missing data, trim, filter, and write one data.csv
// per participant plus the NaN-statistics report.
func (r *Runner) RunEyeLink() error {
	r.log.Info("processing EyeLink export", zap.String("file", r.cfg.Data.EyeLinkExport))

	t, err := store.ReadTableUTF16(r.cfg.Data.EyeLinkExport, '\t')
	if err != nil {
		return err
	}
	ds, err := schema.NormalizeEyeLink(t)
	if err != nil {
		return err
	}

	collector := stats.NewCollector()
	cleaned := filter.CleanScreenTrials(ds, r.opts, collector, r.log)

	if err := store.WriteNaNStats(r.statsPath("eyelink1000plus_nan_statistics.csv"), collector.Records(true)); err != nil {
		return err
	}

	// Per-participant output, in first-appearance order.
	byParticipant := map[string]model.Dataset{}
	var order []string
	for _, s := range cleaned {
		if _, ok := byParticipant[s.ParticipantID]; !ok {
			order = append(order, s.ParticipantID)
		}
		byParticipant[s.ParticipantID] = append(byParticipant[s.ParticipantID], s)
	}

	for _, id := range order {
		dir, err := store.ParticipantDir(r.cfg.Data.Root, id, model.EyeLink1000Plus)
		if err != nil {
			return err
		}
		if err := store.WriteSamples(filepath.Join(dir, store.DataFile), byParticipant[id], store.ScreenDataColumns); err != nil {
			return err
		}
	}

	r.log.Info("EyeLink processing complete",
		zap.Int("participants", len(order)),
		zap.Int("rows", len(cleaned)))
	return nil
}

// loadExports reads the target/gaze exports of one directory and merges
// them into the common schema.
func (r *Runner) loadExports(dir store.DataDir) (model.Dataset, error) {
	target, err := store.ReadTable(dir.File(store.TargetFile), ',')
	if err != nil {
		return nil, err
	}
	gaze, err := store.ReadTable(dir.File(store.GazeFile), '\t')
	if err != nil {
		return nil, err
	}
	return schema.MergeHeadMounted(target, gaze, dir.EyeTracker, dir.ParticipantID)
}

// RunProcess merges each head-mounted directory's exports, records
// gaze-validity statistics, removes invalid rows, undistorts and
// stabilizes, writing undistorted.csv and stabilized.csv.
func (r *Runner) RunProcess() error {
	collector := stats.NewCollector()

	_, err := r.forEachDir("process", func(dir store.DataDir) error {
		merged, err := r.loadExports(dir)
		if err != nil {
			return err
		}

		cal, err := camera.Load(dir.File(store.CalibrationFile))
		if err != nil {
			return err
		}

		collector.CountDataset(dir.EyeTracker, dir.ParticipantID, merged, model.MissingGaze)
		valid, _ := filter.DropMissing(merged, model.MissingGaze)

		undistorted, err := cal.UndistortSamples(valid)
		if err != nil {
			return err
		}
		if err := store.WriteSamples(dir.File(store.UndistortedFile), undistorted, store.IntermediateColumns); err != nil {
			return err
		}

		stabilized := geometry.Stabilize(undistorted)
		return store.WriteSamples(dir.File(store.StabilizedFile), stabilized, store.IntermediateColumns)
	})
	if err != nil {
		return err
	}

	return store.WriteNaNStats(r.statsPath("hm_nan_statistics.csv"), collector.Records(false))
}

// RunDistance estimates per-frame viewing distances from the stabilized
// corner geometry and each directory's calibration.
func (r *Runner) RunDistance() error {
	_, err := r.forEachDir("distance", func(dir store.DataDir) error {
		ds, err := store.ReadSamples(dir.File(store.StabilizedFile))
		if err != nil {
			return err
		}
		cal, err := camera.Load(dir.File(store.CalibrationFile))
		if err != nil {
			return err
		}
		distances := geometry.EstimateDistances(ds, cal, r.dims)
		return store.WriteDistances(dir.File(store.DistanceFile), distances)
	})
	return err
}

// RunAngles converts stabilized coordinates to visual angles using the
// estimated distances, cleans each trial, and writes the final data.csv.
func (r *Runner) RunAngles() error {
	_, err := r.forEachDir("angles", func(dir store.DataDir) error {
		ds, err := store.ReadSamples(dir.File(store.StabilizedFile))
		if err != nil {
			return err
		}
		distances, err := store.ReadDistances(dir.File(store.DistanceFile))
		if err != nil {
			return err
		}

		withAngles, err := geometry.ToVisualAngles(ds, r.dims, distances)
		if err != nil {
			return fmt.Errorf("%s: %w", dir.Path, err)
		}

		cleaned := filter.CleanHeadMountedTrials(withAngles, r.opts, r.log)
		return store.WriteSamples(dir.File(store.DataFile), cleaned, store.HeadMountedDataColumns)
	})
	return err
}

// RunChordClean is the unprojection variant used when corner geometry is
// unavailable: gaze and target rays are lifted through the calibration and
// trials are filtered on the angle between them.
func (r *Runner) RunChordClean() error {
	collector := stats.NewCollector()

	_, err := r.forEachDir("clean", func(dir store.DataDir) error {
		merged, err := r.loadExports(dir)
		if err != nil {
			return err
		}
		cal, err := camera.Load(dir.File(store.CalibrationFile))
		if err != nil {
			return err
		}

		collector.CountDataset(dir.EyeTracker, dir.ParticipantID, merged, model.MissingGaze)
		valid, _ := filter.DropMissing(merged, model.MissingGaze)

		withAngle, err := geometry.GazeTargetAngles(valid, cal)
		if err != nil {
			return err
		}
		cleaned := filter.CleanChordAngleTrials(withAngle, r.opts, r.log)
		return store.WriteSamples(dir.File(store.DataFile), cleaned, store.ChordDataColumns)
	})
	if err != nil {
		return err
	}

	return store.WriteNaNStats(r.statsPath("head_mounted_nan_statistics.csv"), collector.Records(false))
}

// RunPupilSize gathers every cleaned data.csv and extracts the identity
// and pupil-diameter columns into one dataset for the downstream
// aggregation step.
func (r *Runner) RunPupilSize() error {
	root := r.cfg.Data.Root
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read data root %s: %w", root, err)
	}

	devices := append([]string{model.EyeLink1000Plus}, model.HeadMountedTrackers...)

	var combined model.Dataset
	files := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for _, device := range devices {
			path := filepath.Join(root, entry.Name(), device, store.DataFile)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			ds, err := store.ReadSamples(path)
			if err != nil {
				r.log.Error("skipping unreadable data file", zap.String("file", path), zap.Error(err))
				continue
			}
			combined = append(combined, ds...)
			files++
		}
	}

	r.log.Info("combining pupil size data", zap.Int("files", files), zap.Int("rows", len(combined)))
	return store.WriteSamples(filepath.Join(root, "pupil_size.csv"), combined, store.PupilSizeColumns)
}
