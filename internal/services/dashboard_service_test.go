package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"playlistpulse/internal/config"
	"playlistpulse/internal/dataprocessing"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/exporter"
	"playlistpulse/internal/session"
	"playlistpulse/pkg/contracts"
	"playlistpulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleUploads() []domain.Upload {
	return []domain.Upload{
		{
			Name: "X-playlists.csv",
			Content: []byte("title,streams,listeners,date_added\n" +
				"A,100,50,2024-01-01\n" +
				"B,200,20,2024-01-02\n"),
		},
		{
			Name:    "Y-playlists.csv",
			Content: []byte("title,streams,listeners,date_added\nC,,10,\n"),
		},
	}
}

func newTestService(t *testing.T) *DashboardService {
	t.Helper()
	cfg := config.Default().Dashboard
	cfg.ChartWidth, cfg.ChartHeight = 640, 400

	cache := session.NewDatasetCache(time.Hour, 8, time.Hour)
	t.Cleanup(cache.Stop)

	pipeline := dataprocessing.NewPipeline(nil, testLogger(), nil, nil)
	return NewDashboardService(cfg, pipeline, cache, testLogger(), nil)
}

func TestDashboardService_Upload(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 2, first.Records)
	assert.Equal(t, []string{domain.AllArtists, "X"}, first.Artists)
	require.NotNil(t, first.DateBounds)
	assert.Equal(t, 1, first.Report.DroppedRows)

	second, err := svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)
	assert.True(t, second.Cached, "identical file set reuses the dataset")
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	other, err := svc.Upload(ctx, "s2", sampleUploads())
	require.NoError(t, err)
	assert.False(t, other.Cached, "sessions do not share entries")

	changed := sampleUploads()[:1]
	third, err := svc.Upload(ctx, "s1", changed)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
}

func TestDashboardService_UploadNoFiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)
	require.True(t, svc.HasDataset("s1"))

	_, err = svc.Upload(ctx, "s1", nil)
	assert.ErrorIs(t, err, ErrNoInput)
	assert.False(t, svc.HasDataset("s1"), "an empty upload clears the session")

	view, err := svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{})
	require.NoError(t, err)
	assert.Equal(t, domain.ViewStatusNoInput, view.Status)
	assert.Equal(t, MessageNoDataset, view.Message)
	assert.Nil(t, view.Chart)
}

func TestDashboardService_UploadMalformed(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Upload(context.Background(), "s1", []domain.Upload{{Name: "X-notes.pdf", Content: []byte("x")}})
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeMalformedInput))
	assert.False(t, svc.HasDataset("s1"))
}

func TestDashboardService_UploadMalformedReplacesDataset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)
	require.True(t, svc.HasDataset("s1"))

	_, err = svc.Upload(ctx, "s1", []domain.Upload{
		{Name: "Y-b.csv", Content: []byte("title,streams,listeners\n\"C,1,2\n")},
	})
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeMalformedInput))
	assert.False(t, svc.HasDataset("s1"))

	view, err := svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{})
	require.NoError(t, err)
	assert.Equal(t, domain.ViewStatusNoInput, view.Status)
}

func TestDashboardService_View(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		view, err := svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{})
		require.NoError(t, err)
		assert.Equal(t, domain.ViewStatusOK, view.Status)
		assert.Equal(t, domain.ViewTopByStreams, view.Selection.Kind)
		assert.Equal(t, 10, view.Selection.TopN)
		assert.Equal(t, int64(300), view.Summary.TotalStreams)
		assert.Equal(t, int64(70), view.Summary.TotalListeners)
		require.NotNil(t, view.Chart)
		require.NotNil(t, view.Table)
	})

	t.Run("top one", func(t *testing.T) {
		view, err := svc.View(ctx, "s1", domain.FilterState{Artist: domain.AllArtists},
			domain.ViewSelection{Kind: domain.ViewTopByStreams, TopN: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A"}, view.Chart.Categories)
	})

	t.Run("artist without rows", func(t *testing.T) {
		view, err := svc.View(ctx, "s1", domain.FilterState{Artist: "Y"}, domain.ViewSelection{})
		require.NoError(t, err)
		assert.Equal(t, domain.ViewStatusEmpty, view.Status)
		assert.Zero(t, view.Summary.TotalStreams)
	})

	t.Run("time series", func(t *testing.T) {
		view, err := svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{Kind: domain.ViewTimeSeries})
		require.NoError(t, err)
		require.NotNil(t, view.Table)
		assert.Len(t, view.Table.Rows, 2)
	})

	t.Run("invalid selection", func(t *testing.T) {
		_, err := svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{Kind: "pie"})
		assert.ErrorIs(t, err, ErrUnknownView)

		_, err = svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{TopN: 7})
		assert.ErrorIs(t, err, ErrInvalidTopN)
	})
}

func TestDashboardService_Export(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{}, exporter.FormatCSV)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)

	t.Run("csv", func(t *testing.T) {
		file, err := svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{TopN: 10}, exporter.FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
		assert.Contains(t, file.Name, "playlists_top_streams_all_")
		body := string(bytes.TrimPrefix(file.Data, []byte{0xEF, 0xBB, 0xBF}))
		assert.Contains(t, body, "title,streams,artist\nB,200,X\nA,100,X\n")
	})

	t.Run("xlsx includes raw data", func(t *testing.T) {
		file, err := svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{}, exporter.FormatXLSX)
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(file.Data))
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{exporter.SheetSummary, exporter.SheetView, exporter.SheetRaw}, f.GetSheetList())
	})

	t.Run("png", func(t *testing.T) {
		file, err := svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{Kind: domain.ViewStreamsVsListeners}, exporter.FormatPNG)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(file.Data, []byte("\x89PNG")))
	})

	t.Run("json", func(t *testing.T) {
		file, err := svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{}, exporter.FormatJSON)
		require.NoError(t, err)
		var view domain.ViewResult
		require.NoError(t, json.Unmarshal(file.Data, &view))
		assert.Equal(t, domain.ViewStatusOK, view.Status)
	})

	t.Run("empty chart", func(t *testing.T) {
		_, err := svc.Export(ctx, "s1", domain.FilterState{Artist: "Y"}, domain.ViewSelection{}, exporter.FormatSVG)
		assert.ErrorIs(t, err, ErrChartUnavailable)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{}, exporter.Format("pdf"))
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestDashboardService_TimeSeriesWithoutDates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", []domain.Upload{{
		Name:    "Z-list.csv",
		Content: []byte("title,streams,listeners\nA,1,1\n"),
	}})
	require.NoError(t, err)

	view, err := svc.View(ctx, "s1", domain.FilterState{}, domain.ViewSelection{Kind: domain.ViewTimeSeries})
	require.NoError(t, err)
	assert.Equal(t, domain.ViewStatusUnavailable, view.Status)
	assert.Equal(t, dataprocessing.MessageNoDates, view.Message)

	_, err = svc.Export(ctx, "s1", domain.FilterState{}, domain.ViewSelection{Kind: domain.ViewTimeSeries}, exporter.FormatPNG)
	assert.ErrorIs(t, err, ErrChartUnavailable)
}

func TestDashboardService_Invalidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", sampleUploads())
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats()["entries"])

	svc.Invalidate(ctx, "s1")
	assert.False(t, svc.HasDataset("s1"))
}

type stubCounter int

func (s stubCounter) ClientCount() int { return int(s) }

func TestHealthService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	info := contracts.VersionInfo{Version: "1.2.3", GitCommit: "abc123"}
	hs := NewHealthService(info, svc, stubCounter(2), testLogger())
	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)
	assert.Equal(t, "ready", hs.ReadinessCheck(ctx).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)
	version := hs.Version()
	assert.Equal(t, "1.2.3", version.Version)
	assert.Equal(t, "abc123", version.GitCommit)
	assert.GreaterOrEqual(t, version.UptimeSeconds, 0.0)

	stats := hs.Stats(ctx)
	assert.Equal(t, 2, stats["websocket_clients"])
	assert.Contains(t, stats, "dataset_cache")

	bare := NewHealthService(info, nil, nil, testLogger())
	assert.Equal(t, "not_ready", bare.ReadinessCheck(ctx).Status)
}
