package dataprocessing

import (
	"sort"

	"playlistpulse/pkg/contracts/domain"
)

// DailyAggregate sums streams and listeners per calendar date, ascending by
// date. Undated records are skipped. ok is false when no record has a date.
func DailyAggregate(records []domain.Record) ([]domain.DailyTotal, bool) {
	byDay := make(map[int64]*domain.DailyTotal)
	for _, r := range records {
		if r.DateAdded == nil {
			continue
		}
		day := truncateDay(*r.DateAdded)
		key := day.Unix()
		total, ok := byDay[key]
		if !ok {
			total = &domain.DailyTotal{Date: day}
			byDay[key] = total
		}
		total.Streams += r.Streams
		total.Listeners += r.Listeners
	}
	if len(byDay) == 0 {
		return nil, false
	}

	out := make([]domain.DailyTotal, 0, len(byDay))
	for _, t := range byDay {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, true
}
