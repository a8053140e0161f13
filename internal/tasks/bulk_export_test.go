package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytloop/internal/compose"
	"github.com/desertthunder/ytloop/internal/formatter"
	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
	tu "github.com/desertthunder/ytloop/internal/testing"
)

func newSource(n int) (*tu.MockSource, []models.Collection) {
	collections := make([]models.Collection, n)
	items := make(map[string][]models.Item, n)
	for i := range n {
		id := fmt.Sprintf("PL%d", i+1)
		collections[i] = models.Collection{ID: id, Title: fmt.Sprintf("Playlist %d", i+1), ItemCount: 3}
		items[id] = tu.Items(id, "alpha", "bravo", "charlie")
	}
	return tu.NewMockSource(collections, items), collections
}

func TestBulkExport(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		format         formatter.Format
		playlistCount  int
		wantSuccess    int
		validateResult func(t *testing.T, result *BulkExportResult, dir string)
	}{
		{
			name:          "single playlist json export",
			format:        formatter.FormatJSON,
			playlistCount: 1,
			wantSuccess:   1,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				tu.AssertFileExists(t, filepath.Join(dir, "PL1.json"))
			},
		},
		{
			name:          "multiple playlists csv export",
			format:        formatter.FormatCSV,
			playlistCount: 3,
			wantSuccess:   3,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				for i, res := range result.Results {
					if want := fmt.Sprintf("PL%d", i+1); res.CollectionID != want {
						t.Errorf("results not in playlist order: got %s at %d", res.CollectionID, i)
					}
					if len(res.Files) != 1 || res.Items != 3 {
						t.Errorf("unexpected result %+v", res)
					}
				}
			},
		},
		{
			name:          "text export",
			format:        formatter.FormatText,
			playlistCount: 2,
			wantSuccess:   2,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				tu.AssertFileExists(t, filepath.Join(dir, "PL2.txt"))
			},
		},
		{
			name:          "markdown export uses a directory per playlist",
			format:        formatter.FormatMarkdown,
			playlistCount: 1,
			wantSuccess:   1,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				tu.AssertFileExists(t, filepath.Join(dir, "PL1", "README.md"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			source, collections := newSource(tt.playlistCount)
			e := NewExporter(source, Personal{}, shared.NewFakeClock(start))

			result, err := e.BulkExport(context.Background(), nil, collections, BulkExportOpts{
				Format:    tt.format,
				OutputDir: dir,
				RateLimit: 1000,
			})
			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}

			if result.SuccessfulExports != tt.wantSuccess || result.FailedExports != 0 {
				t.Errorf("expected %d successes and no failures, got %d/%d",
					tt.wantSuccess, result.SuccessfulExports, result.FailedExports)
			}
			if result.ManifestPath != filepath.Join(dir, ManifestName) {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}
			tt.validateResult(t, result, dir)
		})
	}
}

func TestBulkExportManifest(t *testing.T) {
	dir := t.TempDir()
	source, collections := newSource(2)
	e := NewExporter(source, Personal{}, shared.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	if _, err := e.BulkExport(context.Background(), nil, collections, BulkExportOpts{
		Format:    formatter.FormatCSV,
		OutputDir: dir,
		RateLimit: 1000,
	}); err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	var manifest struct {
		Format    string `json:"format"`
		Total     int    `json:"total_playlists"`
		Succeeded int    `json:"successful_exports"`
		Playlists []struct {
			ID      string   `json:"id"`
			Files   []string `json:"files"`
			Success bool     `json:"success"`
		} `json:"playlists"`
	}
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, filepath.Join(dir, ManifestName))), &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}

	if manifest.Format != "csv" || manifest.Total != 2 || manifest.Succeeded != 2 {
		t.Errorf("unexpected manifest header %+v", manifest)
	}
	if len(manifest.Playlists) != 2 || manifest.Playlists[0].ID != "PL1" || !manifest.Playlists[1].Success {
		t.Errorf("unexpected manifest playlists %+v", manifest.Playlists)
	}
}

func TestBulkExportOrdering(t *testing.T) {
	dir := t.TempDir()
	source, collections := newSource(1)
	personal := Personal{
		ViewCounts: map[string]int{"vid-alpha": 2},
		Favorites:  map[string]bool{"vid-charlie": true},
	}
	e := NewExporter(source, personal, nil)

	_, err := e.BulkExport(context.Background(), nil, collections, BulkExportOpts{
		Format:    formatter.FormatCSV,
		OutputDir: dir,
		RateLimit: 1000,
		Query:     compose.Query{SortKey: models.SortTitle, SortDir: models.Ascending},
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(tu.MustReadFile(t, filepath.Join(dir, "PL1.csv"))), "\n")
	var order []string
	for _, line := range lines {
		for _, id := range []string{"vid-alpha", "vid-bravo", "vid-charlie"} {
			if strings.Contains(line, id) {
				order = append(order, id)
			}
		}
	}

	want := []string{"vid-bravo", "vid-charlie", "vid-alpha"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected unplayed first then played, got %v", order)
	}
}

func TestBulkExportFailures(t *testing.T) {
	t.Run("empty playlist still exports without a duration lookup", func(t *testing.T) {
		dir := t.TempDir()
		source, collections := newSource(2)
		collections = append(collections, models.Collection{ID: "PL-missing", Title: "Missing"})
		source.SetDuration("vid-alpha", time.Minute)

		e := NewExporter(source, Personal{}, nil)
		result, err := e.BulkExport(context.Background(), nil, collections, BulkExportOpts{
			Format:    formatter.FormatJSON,
			OutputDir: dir,
			RateLimit: 1000,
			Durations: true,
		})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.SuccessfulExports != 3 || result.FailedExports != 0 {
			t.Errorf("an empty playlist still exports, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}
		if got := source.Calls("Durations"); got != 2 {
			t.Errorf("expected durations looked up for 2 non-empty playlists, got %d", got)
		}
	})

	t.Run("source error fails every playlist", func(t *testing.T) {
		dir := t.TempDir()
		source, collections := newSource(3)
		source.SetErr(shared.ErrForbidden)

		prog := make(chan ProgressUpdate, 32)
		e := NewExporter(source, Personal{}, nil)
		result, err := e.BulkExport(context.Background(), prog, collections, BulkExportOpts{
			Format:    formatter.FormatCSV,
			OutputDir: dir,
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.FailedExports != 3 {
			t.Fatalf("expected 3 failures, got %d", result.FailedExports)
		}
		for _, res := range result.Results {
			if !errors.Is(res.Error, shared.ErrForbidden) || res.Reason == "" || res.Success {
				t.Errorf("unexpected failure result %+v", res)
			}
		}

		close(prog)
		failed := 0
		for u := range prog {
			if u.Phase == ExportCollection && strings.Contains(u.Message, "✗") {
				failed++
			}
		}
		if failed != 3 {
			t.Errorf("expected 3 failure updates, got %d", failed)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		source, collections := newSource(2)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e := NewExporter(source, Personal{}, nil)
		_, err := e.BulkExport(ctx, nil, collections, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("nil source", func(t *testing.T) {
		e := NewExporter(nil, Personal{}, nil)
		if _, err := e.BulkExport(context.Background(), nil, nil, BulkExportOpts{OutputDir: t.TempDir()}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("default output directory", func(t *testing.T) {
		t.Chdir(t.TempDir())
		start := time.Unix(1700000000, 0)
		e := NewExporter(tu.NewMockSource(nil, nil), Personal{}, shared.NewFakeClock(start))

		result, err := e.BulkExport(context.Background(), nil, nil, BulkExportOpts{})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.OutputDirectory != "ytloop_export_1700000000" {
			t.Errorf("unexpected default directory %s", result.OutputDirectory)
		}
		if result.Format != formatter.FormatCSV {
			t.Errorf("expected csv default, got %s", result.Format)
		}
	})
}

func TestPhase(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchItems:       "fetch_items",
		FetchDurations:   "fetch_durations",
		ExportCollection: "export_collection",
		Phase(99):        "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}

	t.Run("sendProgress drops when full", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)
		sendProgress(ch, ProgressUpdate{Step: 1})
		sendProgress(ch, ProgressUpdate{Step: 2})
		sendProgress(nil, ProgressUpdate{Step: 3})
		if u := <-ch; u.Step != 1 {
			t.Errorf("expected first update kept, got %d", u.Step)
		}
	})
}
