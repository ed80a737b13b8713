package dataprocessing

import "playlistpulse/pkg/contracts/domain"

// DateFilterApplies reports whether a date range in f narrows ds. A range is
// ignored when the dataset has no dates at all.
func DateFilterApplies(ds *domain.Dataset, f domain.FilterState) bool {
	return f.HasDateRange() && ds.HasDates()
}

// Filter returns the records of ds matching f, preserving order.
//
// The artist filter is skipped for AllArtists. The date range is inclusive on
// both ends and only applied when DateFilterApplies; while it is, undated
// records are excluded.
func Filter(ds *domain.Dataset, f domain.FilterState) []domain.Record {
	if ds == nil {
		return []domain.Record{}
	}

	byArtist := !f.AllArtistsSelected()
	byDate := DateFilterApplies(ds, f)

	var start, end int64
	if f.Start != nil {
		start = truncateDay(*f.Start).Unix()
	}
	if f.End != nil {
		end = truncateDay(*f.End).Unix()
	}

	out := make([]domain.Record, 0, len(ds.Records))
	for _, r := range ds.Records {
		if byArtist && r.Artist != f.Artist {
			continue
		}
		if byDate {
			if r.DateAdded == nil {
				continue
			}
			day := truncateDay(*r.DateAdded).Unix()
			if f.Start != nil && day < start {
				continue
			}
			if f.End != nil && day > end {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
