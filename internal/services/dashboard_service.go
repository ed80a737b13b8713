package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"playlistpulse/internal/config"
	"playlistpulse/internal/dataprocessing"
	"playlistpulse/internal/exporter"
	"playlistpulse/internal/infrastructure"
	"playlistpulse/internal/session"
	"playlistpulse/pkg/contracts/domain"
)

// Messages for the informational no-input state.
const (
	MessageNoInput   = "upload one or more CSV files to begin"
	MessageNoDataset = "no dataset uploaded yet; upload files to begin"
)

// UploadResult describes the dataset built from an upload batch.
type UploadResult struct {
	Status      domain.ViewStatus    `json:"status"`
	Cached      bool                 `json:"cached"`
	Fingerprint string               `json:"fingerprint"`
	Records     int                  `json:"records"`
	Report      *domain.IngestReport `json:"report"`
	Artists     []string             `json:"artists"`
	DateBounds  *domain.DateRange    `json:"date_bounds"`
}

// ExportFile is a rendered export ready to be sent.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// DashboardService runs the pipeline for sessions, memoizing each session's
// dataset.
type DashboardService struct {
	pipeline *dataprocessing.Pipeline
	cache    *session.DatasetCache
	csv      *exporter.CSVWriter
	xlsx     *exporter.XLSXWriter
	charts   *exporter.ChartRenderer
	cfg      config.DashboardConfig
	logger   *slog.Logger
	metrics  *infrastructure.DashboardMetrics
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(
	cfg config.DashboardConfig,
	pipeline *dataprocessing.Pipeline,
	cache *session.DatasetCache,
	logger *slog.Logger,
	metrics *infrastructure.DashboardMetrics,
) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		pipeline: pipeline,
		cache:    cache,
		csv:      exporter.NewCSVWriter(logger),
		xlsx:     exporter.NewXLSXWriter(logger),
		charts:   exporter.NewChartRenderer(cfg.ChartWidth, cfg.ChartHeight),
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "dashboard_service")),
		metrics:  metrics,
	}
}

// Upload builds the session's dataset from uploads. An upload set identical
// to the cached one is not parsed again. No uploads clears the session and
// returns ErrNoInput. A new upload set that fails to build also clears the
// session's previous dataset.
func (s *DashboardService) Upload(ctx context.Context, sessionID string, uploads []domain.Upload) (*UploadResult, error) {
	if len(uploads) == 0 {
		s.cache.Invalidate(sessionID)
		return nil, ErrNoInput
	}

	fingerprint := dataprocessing.Fingerprint(uploads)
	entry, hit := s.cache.Lookup(sessionID, fingerprint)
	s.metrics.RecordCacheLookup(ctx, hit)

	if !hit {
		ds, report, err := s.pipeline.Build(ctx, uploads)
		if err != nil {
			s.cache.Invalidate(sessionID)
			return nil, err
		}
		entry = s.cache.Put(sessionID, ds, report)
	}

	s.logger.InfoContext(ctx, "upload processed",
		slog.String("session_id", sessionID),
		slog.Int("files", len(uploads)),
		slog.Bool("cached", hit),
		slog.Int("records", entry.Dataset.Len()))

	return &UploadResult{
		Status:      domain.ViewStatusOK,
		Cached:      hit,
		Fingerprint: entry.Fingerprint,
		Records:     entry.Dataset.Len(),
		Report:      entry.Report,
		Artists:     entry.Dataset.ArtistOptions(),
		DateBounds:  entry.Dataset.DateBounds(),
	}, nil
}

// View computes a view over the session's dataset. Without a dataset the
// result carries the no_input status instead of an error.
func (s *DashboardService) View(ctx context.Context, sessionID string, filter domain.FilterState, sel domain.ViewSelection) (*domain.ViewResult, error) {
	sel, err := s.normalizeSelection(sel)
	if err != nil {
		return nil, err
	}

	entry, ok := s.cache.Get(sessionID)
	s.metrics.RecordCacheLookup(ctx, ok)
	if !ok {
		if filter.Artist == "" {
			filter.Artist = domain.AllArtists
		}
		return &domain.ViewResult{
			Status:    domain.ViewStatusNoInput,
			Message:   MessageNoDataset,
			Selection: sel,
			Filter:    filter,
			Artists:   []string{domain.AllArtists},
		}, nil
	}

	return s.pipeline.View(ctx, entry.Dataset, filter, sel), nil
}

// Export renders the view in format. Chart formats fail with
// ErrChartUnavailable when the view has nothing to draw.
func (s *DashboardService) Export(ctx context.Context, sessionID string, filter domain.FilterState, sel domain.ViewSelection, format exporter.Format) (*ExportFile, error) {
	sel, err := s.normalizeSelection(sel)
	if err != nil {
		return nil, err
	}

	entry, ok := s.cache.Get(sessionID)
	s.metrics.RecordCacheLookup(ctx, ok)
	if !ok {
		return nil, ErrNoDataset
	}

	sel.Mode = domain.DisplayBoth
	if format == exporter.FormatXLSX {
		sel.ShowRaw = true
	}
	view := s.pipeline.View(ctx, entry.Dataset, filter, sel)

	start := time.Now()
	file, err := s.render(view, format)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordStage(ctx, "export_"+string(format), time.Since(start))

	s.logger.InfoContext(ctx, "view exported",
		slog.String("session_id", sessionID),
		slog.String("view", string(sel.Kind)),
		slog.String("format", string(format)),
		slog.Int("bytes", len(file.Data)))
	return file, nil
}

// RenderView renders an already computed view. It is shared with the
// command line tool, which has no session.
func (s *DashboardService) RenderView(view *domain.ViewResult, format exporter.Format) (*ExportFile, error) {
	return s.render(view, format)
}

func (s *DashboardService) render(view *domain.ViewResult, format exporter.Format) (*ExportFile, error) {
	var buf bytes.Buffer

	switch format {
	case exporter.FormatPNG, exporter.FormatSVG:
		if view.Status == domain.ViewStatusUnavailable {
			return nil, fmt.Errorf("%w: %s", ErrChartUnavailable, view.Message)
		}
		if err := s.charts.Render(&buf, view.Chart, format); err != nil {
			if errors.Is(err, exporter.ErrEmptyChart) {
				return nil, fmt.Errorf("%w: %s", ErrChartUnavailable, dataprocessing.MessageNoMatches)
			}
			return nil, fmt.Errorf("%w: %v", ErrChartUnavailable, err)
		}
	case exporter.FormatCSV:
		table := view.Table
		if table == nil {
			table = &domain.TableProjection{Columns: []string{"message"}, Rows: [][]any{{view.Message}}}
		}
		if err := s.csv.Write(&buf, table, exporter.WriteOptions{BOMPrefix: true}); err != nil {
			return nil, err
		}
	case exporter.FormatXLSX:
		if err := s.xlsx.Write(&buf, view); err != nil {
			return nil, err
		}
	case exporter.FormatJSON:
		if err := json.NewEncoder(&buf).Encode(view); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	return &ExportFile{
		Name:        exporter.Filename(view.Selection.Kind, view.Filter.Artist, format, time.Now()),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Invalidate drops the session's dataset.
func (s *DashboardService) Invalidate(ctx context.Context, sessionID string) {
	s.cache.Invalidate(sessionID)
	s.logger.InfoContext(ctx, "dataset invalidated", slog.String("session_id", sessionID))
}

// HasDataset reports whether the session has a cached dataset.
func (s *DashboardService) HasDataset(sessionID string) bool {
	_, ok := s.cache.Get(sessionID)
	return ok
}

// CacheStats returns dataset cache statistics.
func (s *DashboardService) CacheStats() map[string]interface{} {
	return s.cache.GetStats()
}

// normalizeSelection fills defaults and rejects unknown views and sizes.
func (s *DashboardService) normalizeSelection(sel domain.ViewSelection) (domain.ViewSelection, error) {
	if sel.Kind == "" {
		sel.Kind = domain.ViewTopByStreams
	}
	if !sel.Kind.Valid() {
		return sel, fmt.Errorf("%w: %q", ErrUnknownView, sel.Kind)
	}
	if sel.Mode == "" {
		sel.Mode = domain.DisplayBoth
	}
	if sel.TopN == 0 {
		sel.TopN = s.cfg.DefaultTopN
	}
	if !s.cfg.TopNAllowed(sel.TopN) {
		return sel, fmt.Errorf("%w: %d", ErrInvalidTopN, sel.TopN)
	}
	return sel, nil
}
