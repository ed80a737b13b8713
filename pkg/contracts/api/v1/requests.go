// Package api contains request and response contracts for the dashboard API.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"strings"
	"time"

	"playlistpulse/pkg/contracts/domain"
)

// LoginRequest carries the shared secret.
type LoginRequest struct {
	Password string `json:"password" validate:"max=1024"`
}

// ViewRequest selects a view and its filters. It is read from query
// parameters on HTTP and from the payload of websocket view messages.
// Start must not be after End; that check is cross-field and is applied
// by the request validator.
type ViewRequest struct {
	View   string `json:"view" query:"view" validate:"omitempty,oneof=top_streams top_listeners streams_vs_listeners time_series"`
	Mode   string `json:"mode" query:"mode" validate:"omitempty,oneof=chart table both"`
	TopN   int    `json:"top_n" query:"top_n" validate:"omitempty,min=1,max=1000"`
	Artist string `json:"artist" query:"artist" validate:"max=512"`
	Start  string `json:"start" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `json:"end" query:"end" validate:"omitempty,datetime=2006-01-02"`
	Raw    bool   `json:"raw" query:"raw"`
}

// Filter converts the request into filter state. Dates must already be
// validated.
func (v ViewRequest) Filter() (domain.FilterState, error) {
	f := domain.FilterState{Artist: strings.TrimSpace(v.Artist)}
	if f.Artist == "" {
		f.Artist = domain.AllArtists
	}

	var err error
	if f.Start, err = parseDate(v.Start); err != nil {
		return f, fmt.Errorf("start: %w", err)
	}
	if f.End, err = parseDate(v.End); err != nil {
		return f, fmt.Errorf("end: %w", err)
	}
	return f, nil
}

// Selection converts the request into a view selection.
func (v ViewRequest) Selection() domain.ViewSelection {
	return domain.ViewSelection{
		Kind:    domain.ViewKind(v.View),
		Mode:    domain.DisplayMode(v.Mode),
		TopN:    v.TopN,
		ShowRaw: v.Raw,
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
