package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/compose"
	"github.com/desertthunder/ytloop/internal/formatter"
	"github.com/desertthunder/ytloop/internal/tasks"
)

// ExportAll writes every playlist to a directory, one file (or Markdown directory) each,
// plus a manifest.
func (r *Runner) ExportAll(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	key, dir, err := sortFlags(cmd)
	if err != nil {
		return err
	}

	if err := r.signIn(ctx); err != nil {
		return err
	}

	collections := r.engine.Collections()
	r.logger.Info("starting bulk export", "playlists", len(collections), "format", format)
	r.writePlain("Exporting %d playlists as %s...\n\n", len(collections), format)

	exporter := tasks.NewExporter(r.source, tasks.Personal{
		ViewCounts: r.prefs.ViewCounts(),
		Favorites:  r.prefs.Favorites(),
	}, r.clock)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ExportCollection, tasks.FetchDurations:
				r.writePlain("   %s\n", update.Message)
			default:
				r.logger.Debug(update.Message)
			}
		}
	}()

	result, err := exporter.BulkExport(ctx, progressCh, collections, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Session.RequestsPerSec,
		Query:      compose.Query{SortKey: key, SortDir: dir},
		Durations:  !cmd.Bool("no-durations"),
		HTTPClient: r.httpClient,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.logger.Info("bulk export finished", "dir", result.OutputDirectory, "failed", result.FailedExports)
	r.writePlain("\n✓ Exported %d/%d playlists to %s\n", result.SuccessfulExports, result.TotalCollections, result.OutputDirectory)
	r.writePlain("  Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s (%s): %v\n", res.Title, res.CollectionID, res.Error)
			}
		}
	}
	return nil
}
