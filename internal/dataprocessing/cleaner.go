package dataprocessing

import "playlistpulse/pkg/contracts/domain"

// Clean keeps raw records that have a title, streams and listeners, in
// order. It returns the cleaned records and how many were dropped.
func Clean(raw []domain.RawRecord) ([]domain.Record, int) {
	records := make([]domain.Record, 0, len(raw))
	for _, r := range raw {
		if r.Title == "" || r.Streams == nil || r.Listeners == nil {
			continue
		}
		records = append(records, domain.Record{
			Title:     r.Title,
			Streams:   *r.Streams,
			Listeners: *r.Listeners,
			Artist:    r.Artist,
			DateAdded: r.DateAdded,
			Source:    r.Source,
			Extra:     r.Extra,
		})
	}
	return records, len(raw) - len(records)
}
