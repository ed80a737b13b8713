package api

import "playlistpulse/pkg/contracts/domain"

// Response statuses for the success envelope.
const (
	StatusSuccess = "success"
	StatusNoInput = "no_input"
)

// UploadResponse describes a processed upload batch.
type UploadResponse struct {
	Cached      bool                 `json:"cached"`
	Fingerprint string               `json:"fingerprint"`
	Records     int                  `json:"records"`
	Artists     []string             `json:"artists"`
	DateBounds  *domain.DateRange    `json:"date_bounds"`
	Report      *domain.IngestReport `json:"report"`
}

// SessionResponse reports the state of the caller's session.
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
	HasDataset    bool `json:"has_dataset"`
}
