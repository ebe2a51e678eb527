package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

// File names inside a data/<participant>/<device>/ directory.
const (
	TargetFile      = "target.csv"
	GazeFile        = "gazeData.tsv"
	CalibrationFile = "calibration.xml"
	UndistortedFile = "undistorted.csv"
	StabilizedFile  = "stabilized.csv"
	DistanceFile    = "distance.csv"
	DataFile        = "data.csv"
)

// DataDir is one (participant, device) unit of work.
type DataDir struct {
	ParticipantID string
	EyeTracker    string
	Path          string
}

// File returns the path of a named artifact inside the directory.
func (d DataDir) File(name string) string {
	return filepath.Join(d.Path, name)
}

// HeadMountedDirs discovers every participant directory under root that
// contains a head-mounted tracker subdirectory, in participant order then
// tracker order.
func HeadMountedDirs(root string) ([]DataDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data root %s: %w", root, err)
	}

	var dirs []DataDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for _, tracker := range model.HeadMountedTrackers {
			path := filepath.Join(root, entry.Name(), tracker)
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				dirs = append(dirs, DataDir{
					ParticipantID: entry.Name(),
					EyeTracker:    tracker,
					Path:          path,
				})
			}
		}
	}
	return dirs, nil
}

// ParticipantDir returns (creating if needed) the output directory for one
// participant and device.
func ParticipantDir(root, participantID, eyeTracker string) (string, error) {
	dir := filepath.Join(root, participantID, eyeTracker)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create participant directory: %w", err)
	}
	return dir, nil
}
