package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"playlistpulse/internal/dataprocessing"
	"playlistpulse/pkg/contracts/domain"
)

// Loader validates playlist files and reads them into uploads
type Loader struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewLoader creates a loader. maxBytes bounds the combined size of one load;
// zero means unbounded.
func NewLoader(logger *slog.Logger, maxBytes int64) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger.With(slog.String("component", "file_loader")),
		maxBytes: maxBytes,
	}
}

// ValidateFile checks that path is a readable regular file with a
// supported extension, or none, and returns its size.
func (l *Loader) ValidateFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		l.logger.Error("File does not exist", slog.String("file", path))
		return 0, fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory, not a file", path)
	}
	if _, ok := dataprocessing.FormatOf(path); !ok && filepath.Ext(path) != "" {
		l.logger.Error("Unsupported file type",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return 0, fmt.Errorf("file %s is not a CSV or XLSX file", path)
	}
	return info.Size(), nil
}

// Load validates every path before reading any, then returns one upload per
// path in order. The upload name is the file's base name, which carries the
// artist prefix.
func (l *Loader) Load(paths []string) ([]domain.Upload, error) {
	var total int64
	for _, path := range paths {
		size, err := l.ValidateFile(path)
		if err != nil {
			return nil, err
		}
		total += size
		if l.maxBytes > 0 && total > l.maxBytes {
			return nil, fmt.Errorf("input files exceed %d bytes", l.maxBytes)
		}
	}

	uploads := make([]domain.Upload, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		uploads = append(uploads, domain.Upload{Name: filepath.Base(path), Content: content})
		l.logger.Debug("File loaded",
			slog.String("file", path),
			slog.Int("bytes", len(content)))
	}
	return uploads, nil
}

// EnsureOutputDirectory creates the directory that will hold path.
func (l *Loader) EnsureOutputDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}
