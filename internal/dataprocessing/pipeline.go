package dataprocessing

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
	"playlistpulse/pkg/contracts/domain"
)

// Pipeline composes ingestion, cleaning, filtering and presentation.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	parser  *Parser
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.DashboardMetrics
}

// NewPipeline creates a pipeline. tracer and metrics may be nil.
func NewPipeline(layouts []string, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.DashboardMetrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	}
	logger = logger.With(slog.String("component", "pipeline"))
	return &Pipeline{
		parser:  NewParser(layouts, logger),
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
	}
}

// Build ingests and cleans uploads into a Dataset. Records keep upload order
// and row order within each upload.
func (p *Pipeline) Build(ctx context.Context, uploads []domain.Upload) (*domain.Dataset, *domain.IngestReport, error) {
	if len(uploads) == 0 {
		return nil, nil, apierrors.NewNoInputError()
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.build",
		trace.WithAttributes(attribute.Int("files", len(uploads))))
	defer span.End()

	start := time.Now()
	report := &domain.IngestReport{Files: make([]domain.FileReport, 0, len(uploads))}
	ds := &domain.Dataset{Records: make([]domain.Record, 0)}
	seenExtra := make(map[string]struct{})

	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		raw, file, err := p.parser.Parse(u)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			p.logger.WarnContext(ctx, "upload rejected",
				slog.String("file", u.Name),
				slog.String("error", err.Error()))
			return nil, nil, err
		}

		records, dropped := Clean(raw)
		file.Kept = len(records)
		file.Dropped = dropped

		for _, name := range file.Columns {
			if _, ok := seenExtra[name]; ok || isKnownColumn(name) {
				continue
			}
			seenExtra[name] = struct{}{}
			ds.ExtraColumns = append(ds.ExtraColumns, name)
		}
		ds.Records = append(ds.Records, records...)

		report.Files = append(report.Files, file)
		report.TotalRows += file.Rows
		report.KeptRows += file.Kept
		report.DroppedRows += file.Dropped
		report.UnparsedDates += file.UnparsedDates

		p.logger.DebugContext(ctx, "file ingested",
			slog.String("file", file.Name),
			slog.String("artist", file.Artist),
			slog.Int("rows", file.Rows),
			slog.Int("kept", file.Kept),
			slog.Int("dropped", file.Dropped))
	}

	ds.Fingerprint = Fingerprint(uploads)
	ds.BuiltAt = time.Now().UTC()

	p.metrics.RecordStage(ctx, "build", time.Since(start))
	p.metrics.RecordIngest(ctx, report.TotalRows, report.DroppedRows, report.UnparsedDates)
	span.SetAttributes(
		attribute.Int("rows", report.TotalRows),
		attribute.Int("kept", report.KeptRows),
	)

	p.logger.InfoContext(ctx, "dataset built",
		slog.Int("files", len(uploads)),
		slog.Int("rows", report.TotalRows),
		slog.Int("kept", report.KeptRows),
		slog.Int("dropped", report.DroppedRows),
		slog.Int("unparsed_dates", report.UnparsedDates),
		slog.Duration("duration", time.Since(start)))

	return ds, report, nil
}

// View filters ds and shapes the result for sel.
func (p *Pipeline) View(ctx context.Context, ds *domain.Dataset, filter domain.FilterState, sel domain.ViewSelection) *domain.ViewResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.view",
		trace.WithAttributes(
			attribute.String("view", string(sel.Kind)),
			attribute.String("artist", filter.ArtistLabel()),
		))
	defer span.End()

	start := time.Now()
	filtered := Filter(ds, filter)
	p.metrics.RecordStage(ctx, "filter", time.Since(start))

	start = time.Now()
	result := Present(ds, filter, sel, filtered)
	p.metrics.RecordStage(ctx, "present", time.Since(start))
	p.metrics.RecordView(ctx, string(result.Selection.Kind), string(result.Status))

	span.SetAttributes(
		attribute.Int("records", len(filtered)),
		attribute.String("status", string(result.Status)),
	)
	p.logger.DebugContext(ctx, "view computed",
		slog.String("view", string(result.Selection.Kind)),
		slog.String("artist", filter.ArtistLabel()),
		slog.Int("records", len(filtered)),
		slog.String("status", string(result.Status)))

	return result
}

// Fingerprint identifies an upload set by the names and contents of its
// files, in order.
func Fingerprint(uploads []domain.Upload) string {
	h := sha256.New()
	var size [8]byte
	for _, u := range uploads {
		binary.BigEndian.PutUint64(size[:], uint64(len(u.Name)))
		h.Write(size[:])
		h.Write([]byte(u.Name))
		binary.BigEndian.PutUint64(size[:], uint64(len(u.Content)))
		h.Write(size[:])
		h.Write(u.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}
