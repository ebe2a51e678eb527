package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/mh-salari/psa-data-quality/internal/stats"
)

// WriteNaNStats writes the missing-data report for one pipeline stage.
func WriteNaNStats(path string, records []stats.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"eye_tracker", "participant_id", "condition", "total_rows", "nan_rows", "nan_percentage"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}

	for _, r := range records {
		row := []string{
			r.EyeTracker,
			r.ParticipantID,
			r.Condition,
			strconv.Itoa(r.TotalRows),
			strconv.Itoa(r.NaNRows),
			strconv.FormatFloat(r.NaNPercentage, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
