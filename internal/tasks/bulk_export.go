package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/ytloop/internal/compose"
	"github.com/desertthunder/ytloop/internal/formatter"
	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/services"
	"github.com/desertthunder/ytloop/internal/shared"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0

	// ManifestName is the file BulkExport writes next to the exports.
	ManifestName = "export_manifest.json"
)

// Personal is the per-user state written next to every exported playlist.
type Personal struct {
	ViewCounts map[string]int
	Favorites  map[string]bool
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format
	OutputDir  string           // Base output directory (default: ytloop_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 5, max: 10)
	RateLimit  float64          // Upstream requests per second (default: 5)
	Query      compose.Query    // Search, favorites-only and sort applied to every playlist
	Durations  bool             // Look up video durations for each playlist
	HTTPClient *http.Client     // Used for Markdown cover downloads
}

// CollectionExportResult is the outcome for one playlist.
type CollectionExportResult struct {
	CollectionID string   `json:"id"`
	Title        string   `json:"title"`
	Items        int      `json:"items"`
	Files        []string `json:"files"`
	Success      bool     `json:"success"`
	Error        error    `json:"-"`
	Reason       string   `json:"error,omitempty"`

	position int
}

// BulkExportResult summarizes a bulk export and is written as the manifest.
type BulkExportResult struct {
	Format            formatter.Format         `json:"format"`
	ExportedAt        time.Time                `json:"exported_at"`
	TotalCollections  int                      `json:"total_playlists"`
	SuccessfulExports int                      `json:"successful_exports"`
	FailedExports     int                      `json:"failed_exports"`
	OutputDirectory   string                   `json:"output_directory"`
	ManifestPath      string                   `json:"-"`
	Results           []CollectionExportResult `json:"playlists"`
}

type collectionJob struct {
	position   int
	collection models.Collection
	items      []models.Item
	durations  map[string]time.Duration
	durErr     error
}

// Exporter writes playlists from a [services.Source] to disk.
type Exporter struct {
	source   services.Source
	personal Personal
	clock    shared.Clock
}

// NewExporter creates an Exporter that annotates every export with personal.
func NewExporter(source services.Source, personal Personal, clock shared.Clock) *Exporter {
	if clock == nil {
		clock = shared.RealClock{}
	}
	return &Exporter{source: source, personal: personal, clock: clock}
}

// BulkExport exports multiple playlists concurrently with rate limiting and progress tracking.
//
// Fetching is serialized behind the limiter; rendering and writing run on the worker pool.
// Per-playlist failures are recorded in the result. The returned error is reserved for setup
// failures, cancellation and the manifest write.
func (e *Exporter) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	collections []models.Collection,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source not initialized", shared.ErrServiceUnavailable)
	}

	now := e.clock.Now()
	if opts.Format == "" {
		opts.Format = formatter.FormatCSV
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytloop_export_%d", now.Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(collections)
	result := &BulkExportResult{
		Format:           opts.Format,
		ExportedAt:       now,
		TotalCollections: total,
		OutputDirectory:  opts.OutputDir,
		Results:          make([]CollectionExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan collectionJob, total)
	results := make(chan CollectionExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts, now)
	}

	go func() {
		defer close(jobs)
		for i, c := range collections {
			if ctx.Err() != nil {
				return
			}
			sendProgress(prog, fetchingItemsUpdate(i+1, total, c.Title))

			job, err := e.fetch(ctx, limiter, i, c, opts)
			if err != nil {
				results <- CollectionExportResult{
					CollectionID: c.ID,
					Title:        c.Title,
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
					position:     i,
				}
				continue
			}
			if job.durErr != nil {
				sendProgress(prog, durationsFailedUpdate(i+1, total, c.Title, job.durErr))
			}
			jobs <- job
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Reason = res.Error.Error()
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, total, res))
		} else {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, total, res))
		}
		result.Results = append(result.Results, res)
	}

	slices.SortFunc(result.Results, func(a, b CollectionExportResult) int { return a.position - b.position })

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := formatter.WriteFile(manifestPath, data); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// fetch loads one playlist's items and, when asked, their durations. A duration failure
// is kept in job.durErr instead of failing the playlist.
func (e *Exporter) fetch(ctx context.Context, limiter *rate.Limiter, pos int, c models.Collection, opts BulkExportOpts) (collectionJob, error) {
	job := collectionJob{position: pos, collection: c}

	if err := limiter.Wait(ctx); err != nil {
		return job, err
	}
	items, err := e.source.Items(ctx, c.ID)
	if err != nil {
		return job, err
	}
	job.items = items

	if !opts.Durations || len(items) == 0 {
		return job, nil
	}

	if err := limiter.Wait(ctx); err != nil {
		return job, err
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	job.durations, job.durErr = e.source.Durations(ctx, ids)
	return job, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan collectionJob,
	results chan<- CollectionExportResult,
	opts BulkExportOpts,
	now time.Time,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportCollection(ctx, job, opts, now)
	}
}

// exportCollection orders one playlist and writes it in opts.Format.
func (e *Exporter) exportCollection(ctx context.Context, j collectionJob, opts BulkExportOpts, now time.Time) CollectionExportResult {
	ordered := compose.Order(compose.Snapshot{
		Items:      j.items,
		ViewCounts: e.personal.ViewCounts,
		Favorites:  e.personal.Favorites,
		Query:      opts.Query,
	})

	export := &formatter.Export{
		Collection: j.collection,
		Items:      ordered,
		ViewCounts: e.personal.ViewCounts,
		Favorites:  e.personal.Favorites,
		Durations:  j.durations,
		ExportedAt: now,
	}
	if opts.Query.SortKey != models.SortNone {
		export.Sort = fmt.Sprintf("%s %s", opts.Query.SortKey, opts.Query.SortDir)
	}

	result := CollectionExportResult{
		CollectionID: j.collection.ID,
		Title:        j.collection.Title,
		Items:        len(ordered),
		Files:        []string{},
		position:     j.position,
	}

	switch opts.Format {
	case formatter.FormatMarkdown:
		dir := filepath.Join(opts.OutputDir, j.collection.ID)
		md, err := formatter.WriteMarkdownExport(ctx, export, dir, j.collection.ThumbnailURL, opts.HTTPClient)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = md.Files
	default:
		path := filepath.Join(opts.OutputDir, j.collection.ID+opts.Format.Extension())
		written, err := formatter.WriteExport(export, opts.Format, path)
		if err != nil {
			result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
			return result
		}
		result.Files = []string{written}
	}

	result.Success = true
	return result
}
