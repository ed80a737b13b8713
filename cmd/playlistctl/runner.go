package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"playlistpulse/internal/auth"
	"playlistpulse/internal/config"
	"playlistpulse/internal/dataprocessing"
	"playlistpulse/internal/exporter"
	"playlistpulse/internal/files"
	"playlistpulse/internal/infrastructure"
	"playlistpulse/internal/middleware"
	"playlistpulse/internal/services"
	"playlistpulse/internal/session"
	api "playlistpulse/pkg/contracts/api/v1"
	"playlistpulse/pkg/contracts/domain"
)

// cliSession keys the single dataset a command run works on.
const cliSession = "playlistctl"

// Runner holds the dependencies shared by command actions.
type Runner struct {
	config     *config.Config
	logger     *slog.Logger
	output     io.Writer
	validation *middleware.ValidationMiddleware
	discovery  *files.Discovery
	loader     *files.Loader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *config.Config
	Logger *slog.Logger
	Output io.Writer
}

// NewRunner creates a Runner, filling in defaults for unset options.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: "warn", Output: "stderr"})
		if err != nil {
			logger = slog.Default()
		}
		opts.Logger = logger
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		validation: middleware.NewValidationMiddleware(opts.Logger, nil),
		discovery:  files.NewDiscovery(""),
		loader:     files.NewLoader(opts.Logger, opts.Config.Server.MaxUploadBytes),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){analyzeCommand, hashPasswordCommand} {
		commands = append(commands, fn(r))
	}
	return commands
}

// Analyze runs ingestion, cleaning, filtering and the selected view over
// files on disk, then prints the view as JSON or writes an export.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: "debug", Output: "stderr"})
		if err == nil {
			r.logger = logger
		}
	}

	var paths []string
	if dir := cmd.String("dir"); dir != "" {
		found, err := r.discovery.FindPlaylistFiles(dir, cmd.String("pattern"))
		if err != nil {
			return err
		}
		paths = files.Paths(found)
	}
	paths = append(paths, cmd.Args().Slice()...)

	uploads, err := r.loader.Load(paths)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		fmt.Fprintln(r.output, services.MessageNoInput)
		return nil
	}

	req := api.ViewRequest{
		View:   cmd.String("view"),
		Mode:   cmd.String("mode"),
		TopN:   int(cmd.Int("top-n")),
		Artist: cmd.String("artist"),
		Start:  cmd.String("start"),
		End:    cmd.String("end"),
		Raw:    cmd.Bool("raw"),
	}
	if err := r.validation.ValidateStruct(req); err != nil {
		return fmt.Errorf("invalid view options: %w", err)
	}
	filter, err := req.Filter()
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	format, err := exporter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	service, stop := r.dashboardService(cmd.StringSlice("date-layout"))
	defer stop()

	result, err := service.Upload(ctx, cliSession, uploads)
	if err != nil {
		return err
	}
	r.logger.Info("dataset built",
		slog.Int("files", len(uploads)),
		slog.Int("records", result.Records),
		slog.Int("dropped_rows", result.Report.DroppedRows),
		slog.Int("unparsed_dates", result.Report.UnparsedDates))

	if format == exporter.FormatJSON {
		view, err := service.View(ctx, cliSession, filter, req.Selection())
		if err != nil {
			return err
		}
		return r.writeJSON(cmd.String("output"), view)
	}

	file, err := service.Export(ctx, cliSession, filter, req.Selection(), format)
	if err != nil {
		return err
	}
	return r.writeFile(cmd.String("output"), file)
}

// HashPassword prints a bcrypt hash for the security password_hash setting.
func (r *Runner) HashPassword(ctx context.Context, cmd *cli.Command) error {
	password := cmd.StringArg("password")
	if password == "" {
		password = os.Getenv(config.EnvPrefix + "_SECURITY_PASSWORD")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.output, hash)
	return nil
}

// dashboardService wires a private pipeline and cache for one run.
func (r *Runner) dashboardService(extraLayouts []string) (*services.DashboardService, func()) {
	dash := r.config.Dashboard
	dash.DateLayouts = append(append([]string{}, dash.DateLayouts...), extraLayouts...)

	providers := infrastructure.NewNoopProviders(r.logger)
	metrics, err := infrastructure.NewDashboardMetrics(providers.Meter)
	if err != nil {
		r.logger.Warn("metrics disabled", slog.String("error", err.Error()))
	}

	cache := session.NewDatasetCache(dash.CacheTTL, 1, dash.CacheCleanup)
	pipeline := dataprocessing.NewPipeline(dash.DateLayouts, r.logger, providers.Tracer, metrics)
	return services.NewDashboardService(dash, pipeline, cache, r.logger, metrics), cache.Stop
}

func (r *Runner) writeJSON(path string, view *domain.ViewResult) error {
	out, closeOut, err := r.destination(path)
	if err != nil {
		return err
	}
	defer closeOut()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func (r *Runner) writeFile(path string, file *services.ExportFile) error {
	if path == "" {
		path = file.Name
	}
	out, closeOut, err := r.destination(path)
	if err != nil {
		return err
	}
	defer closeOut()

	if _, err := out.Write(file.Data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if path != "-" {
		fmt.Fprintf(r.output, "wrote %s (%d bytes)\n", path, len(file.Data))
	}
	return nil
}

// destination opens path for writing; "" and "-" mean the runner output.
func (r *Runner) destination(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return r.output, func() {}, nil
	}
	if err := r.loader.EnsureOutputDirectory(path); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("failed to close output", slog.String("path", path), slog.String("error", err.Error()))
		}
	}, nil
}
