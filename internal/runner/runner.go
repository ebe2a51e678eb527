// Package runner wires the pipeline stages to the on-disk data layout and
// drives them across participant/device directories.
package runner

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mh-salari/psa-data-quality/internal/config"
	"github.com/mh-salari/psa-data-quality/internal/filter"
	"github.com/mh-salari/psa-data-quality/internal/geometry"
	"github.com/mh-salari/psa-data-quality/internal/store"
)

// Runner executes pipeline stages against one data root.
type Runner struct {
	cfg  *config.Config
	log  *zap.Logger
	opts filter.Options
	dims *geometry.TargetDimensions
}

// New builds a Runner from configuration, loading the target dimension
// table override when one is configured.
func New(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	dims := geometry.DefaultTargetDimensions()
	if cfg.Data.DimensionsFile != "" {
		loaded, err := geometry.LoadTargetDimensions(cfg.Data.DimensionsFile)
		if err != nil {
			return nil, err
		}
		dims = loaded
		log.Info("loaded target dimension table",
			zap.String("file", cfg.Data.DimensionsFile),
			zap.String("version", dims.Version))
	}

	return &Runner{
		cfg: cfg,
		log: log,
		opts: filter.Options{
			TrialDurationMS:   cfg.Pipeline.TrialDurationMS,
			TimeTrim:          cfg.Pipeline.TimeTrim,
			DistanceThreshold: cfg.Pipeline.DistanceThreshold,
			ZThreshold:        cfg.Pipeline.ZThreshold,
		},
		dims: dims,
	}, nil
}

// Summary reports how a batch went. Failed directories are skipped, never
// fatal: calibration files come from hardware in field conditions and are
// expected to occasionally be missing or broken.
type Summary struct {
	Processed int
	Failed    []string
}

// forEachDir runs fn over every head-mounted (participant, device)
// directory with a bounded worker pool. A directory failure is logged and
// recorded; it never aborts the rest of the batch.
func (r *Runner) forEachDir(stage string, fn func(store.DataDir) error) (Summary, error) {
	dirs, err := store.HeadMountedDirs(r.cfg.Data.Root)
	if err != nil {
		return Summary{}, err
	}

	workers := r.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		summary Summary
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, dir := range dirs {
		dir := dir
		g.Go(func() error {
			if err := fn(dir); err != nil {
				r.log.Error("directory skipped",
					zap.String("stage", stage),
					zap.String("participant", dir.ParticipantID),
					zap.String("eye_tracker", dir.EyeTracker),
					zap.Error(err))
				mu.Lock()
				summary.Failed = append(summary.Failed, dir.Path)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			summary.Processed++
			mu.Unlock()
			return nil
		})
	}
	// Worker errors are handled per directory; Wait only synchronizes.
	_ = g.Wait()

	r.log.Info("stage finished",
		zap.String("stage", stage),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", len(summary.Failed)))
	return summary, nil
}

// Run dispatches one named stage.
func (r *Runner) Run(stage string) error {
	switch stage {
	case "eyelink":
		return r.RunEyeLink()
	case "process":
		return r.RunProcess()
	case "distance":
		return r.RunDistance()
	case "angles":
		return r.RunAngles()
	case "clean":
		return r.RunChordClean()
	case "pupilsize":
		return r.RunPupilSize()
	case "all":
		return r.RunAll()
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

// RunAll runs the full pipeline in dependency order. The screen-based and
// head-mounted halves are independent; a failure in one does not stop the
// other.
func (r *Runner) RunAll() error {
	var firstErr error
	keep := func(err error) {
		if err != nil {
			r.log.Error("stage failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	keep(r.RunEyeLink())
	keep(r.RunProcess())
	keep(r.RunDistance())
	keep(r.RunAngles())
	keep(r.RunPupilSize())
	return firstErr
}

func (r *Runner) statsPath(name string) string {
	return filepath.Join(r.cfg.Data.Root, name)
}
