// Package stats is the stateless query layer over the file store's totals.
package stats

import "fileshare/internal/model"

// Source supplies the aggregate counts. Implemented by the file store.
type Source interface {
	Totals() model.Stats
}

// Aggregator derives totals on demand; no caching, so results always
// reflect the most recent committed file store state.
type Aggregator struct {
	src Source
}

// New constructs an Aggregator over src.
func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Totals returns the current aggregate counts.
func (a *Aggregator) Totals() model.Stats {
	return a.src.Totals()
}

// TotalSizeMB reports the aggregate size in megabytes, rounded to two
// decimals, matching the shape the stats endpoint exposes.
func TotalSizeMB(s model.Stats) float64 {
	mb := float64(s.TotalSizeBytes) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
