package dataprocessing

import (
	"sort"

	"playlistpulse/pkg/contracts/domain"
)

// TopN returns up to n records ordered by metric descending. Ties keep their
// input order. The input slice is not modified.
func TopN(records []domain.Record, metric domain.Metric, n int) []domain.Record {
	if n <= 0 || len(records) == 0 {
		return []domain.Record{}
	}

	sorted := make([]domain.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metric(metric) > sorted[j].Metric(metric)
	})

	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Totals sums streams and listeners over records.
func Totals(records []domain.Record) domain.Summary {
	s := domain.Summary{Records: len(records)}
	for _, r := range records {
		s.TotalStreams += r.Streams
		s.TotalListeners += r.Listeners
	}
	return s
}
