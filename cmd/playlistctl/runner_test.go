package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"playlistpulse/internal/services"
)

func newTestRunner() (*Runner, *bytes.Buffer) {
	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Output: output,
	}), output
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "playlistctl", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"playlistctl"}, args...))
}

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"X-playlists.csv": "title,streams,listeners,date_added\nA,100,50,2024-01-01\nB,200,20,2024-01-02\n",
		"Y-playlists.csv": "title,streams,listeners,date_added\nC,,10,\n",
		"notes.md":        "ignored",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

type jsonView struct {
	Status  string `json:"status"`
	Summary struct {
		Records        int   `json:"records"`
		TotalStreams   int64 `json:"total_streams"`
		TotalListeners int64 `json:"total_listeners"`
	} `json:"summary"`
	Table *struct {
		Rows [][]any `json:"rows"`
	} `json:"table"`
}

func TestAnalyze(t *testing.T) {
	dir := writeScenario(t)

	tests := []struct {
		name      string
		args      []string
		wantRows  []string
		wantCount int
		wantState string
	}{
		{
			name:      "top streams",
			args:      []string{"--view", "top_streams", "--mode", "table"},
			wantRows:  []string{"B", "A"},
			wantCount: 2,
			wantState: "ok",
		},
		{
			name:      "artist without clean rows",
			args:      []string{"--artist", "Y", "--mode", "table"},
			wantCount: 0,
			wantState: "empty",
		},
		{
			name:      "date range",
			args:      []string{"--view", "top_listeners", "--mode", "table", "--start", "2024-01-02", "--end", "2024-01-02"},
			wantRows:  []string{"B"},
			wantCount: 1,
			wantState: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, output := newTestRunner()
			args := append([]string{"analyze", "--dir", dir}, tt.args...)
			require.NoError(t, run(r, args...))

			var view jsonView
			require.NoError(t, json.Unmarshal(output.Bytes(), &view))
			assert.Equal(t, tt.wantState, view.Status)
			assert.Equal(t, tt.wantCount, view.Summary.Records)

			if tt.wantRows != nil {
				require.NotNil(t, view.Table)
				require.Len(t, view.Table.Rows, len(tt.wantRows))
				for i, title := range tt.wantRows {
					assert.Equal(t, title, view.Table.Rows[i][0])
				}
			}
		})
	}
}

func TestAnalyze_Totals(t *testing.T) {
	r, output := newTestRunner()
	require.NoError(t, run(r, "analyze", "--dir", writeScenario(t), "--top-n", "10"))

	var view jsonView
	require.NoError(t, json.Unmarshal(output.Bytes(), &view))
	assert.EqualValues(t, 300, view.Summary.TotalStreams)
	assert.EqualValues(t, 70, view.Summary.TotalListeners)
}

func TestAnalyze_NoInput(t *testing.T) {
	r, output := newTestRunner()
	require.NoError(t, run(r, "analyze", "--dir", t.TempDir()))
	assert.Equal(t, services.MessageNoInput, strings.TrimSpace(output.String()))
}

func TestAnalyze_Export(t *testing.T) {
	dir := writeScenario(t)
	out := filepath.Join(t.TempDir(), "exports", "top.csv")

	r, output := newTestRunner()
	require.NoError(t, run(r, "analyze", "--dir", dir, "--view", "top_listeners", "--format", "csv", "--output", out))
	assert.Contains(t, output.String(), "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "A,50,X")
	assert.Contains(t, string(data), "B,20,X")
}

func TestAnalyze_ExplicitFiles(t *testing.T) {
	dir := writeScenario(t)

	r, output := newTestRunner()
	require.NoError(t, run(r, "analyze", "--mode", "table", filepath.Join(dir, "X-playlists.csv")))

	var view jsonView
	require.NoError(t, json.Unmarshal(output.Bytes(), &view))
	assert.Equal(t, 2, view.Summary.Records)
}

func TestAnalyze_Errors(t *testing.T) {
	dir := writeScenario(t)

	tests := []struct {
		name string
		args []string
	}{
		{"start after end", []string{"analyze", "--dir", dir, "--start", "2024-02-01", "--end", "2024-01-01"}},
		{"unknown view", []string{"analyze", "--dir", dir, "--view", "pie"}},
		{"disallowed top n", []string{"analyze", "--dir", dir, "--top-n", "7"}},
		{"unknown format", []string{"analyze", "--dir", dir, "--format", "pdf"}},
		{"missing file", []string{"analyze", filepath.Join(dir, "missing.csv")}},
		{"missing directory", []string{"analyze", "--dir", filepath.Join(dir, "nope")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRunner()
			assert.Error(t, run(r, tt.args...))
		})
	}
}

func TestHashPassword(t *testing.T) {
	r, output := newTestRunner()
	require.NoError(t, run(r, "hash-password", "correct horse"))
	assert.True(t, strings.HasPrefix(output.String(), "$2a$"))
}

func TestHashPassword_Empty(t *testing.T) {
	t.Setenv("PLAYLIST_SECURITY_PASSWORD", "")
	r, _ := newTestRunner()
	assert.Error(t, run(r, "hash-password"))
}
