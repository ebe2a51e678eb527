// Package stats tracks how many rows were lost to missing data, per
// participant and condition. The report is a diagnostic artifact; nothing
// downstream consumes it.
package stats

import (
	"sort"
	"sync"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

// Record is one aggregate row of the NaN-statistics report. Derived once,
// never mutated after computation.
type Record struct {
	EyeTracker    string
	ParticipantID string
	Condition     string
	TotalRows     int
	NaNRows       int
	NaNPercentage float64
}

// AllConditions labels the aggregate row spanning every participant and
// condition.
const AllConditions = "ALL"

// Collector accumulates NaN counts. Append-only and safe for concurrent
// use, so parallel per-directory workers can share one instance; row order
// carries no meaning in the final table.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records one (device, participant, condition) aggregate.
func (c *Collector) Add(eyeTracker, participantID, condition string, totalRows, nanRows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, Record{
		EyeTracker:    eyeTracker,
		ParticipantID: participantID,
		Condition:     condition,
		TotalRows:     totalRows,
		NaNRows:       nanRows,
		NaNPercentage: percentage(nanRows, totalRows),
	})
}

// CountDataset tallies ds per condition through the given critical-field
// check and records one row per condition encountered, in sorted condition
// order.
func (c *Collector) CountDataset(eyeTracker, participantID string, ds model.Dataset, missing model.MissingFunc) {
	totals := map[string]int{}
	nans := map[string]int{}
	for i := range ds {
		cond := ds[i].TrialCondition
		totals[cond]++
		if missing(&ds[i]) {
			nans[cond]++
		}
	}

	conditions := make([]string, 0, len(totals))
	for cond := range totals {
		conditions = append(conditions, cond)
	}
	sort.Strings(conditions)

	for _, cond := range conditions {
		c.Add(eyeTracker, participantID, cond, totals[cond], nans[cond])
	}
}

// Merge appends every record of other into c.
func (c *Collector) Merge(other *Collector) {
	other.mu.Lock()
	records := append([]Record(nil), other.records...)
	other.mu.Unlock()

	c.mu.Lock()
	c.records = append(c.records, records...)
	c.mu.Unlock()
}

// Records returns a copy of the accumulated rows. When includeTotal is set,
// an ALL aggregate row summing every record is appended.
func (c *Collector) Records(includeTotal bool) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := append([]Record(nil), c.records...)
	if includeTotal {
		var total, nan int
		for _, r := range c.records {
			total += r.TotalRows
			nan += r.NaNRows
		}
		out = append(out, Record{
			Condition:     AllConditions,
			TotalRows:     total,
			NaNRows:       nan,
			NaNPercentage: percentage(nan, total),
		})
	}
	return out
}

func percentage(nan, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(nan) / float64(total) * 100
}
