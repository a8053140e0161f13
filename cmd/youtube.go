package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/formatter"
	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

// Playlists lists the signed-in user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.signIn(ctx); err != nil {
		return err
	}

	collections := r.engine.Collections()
	r.logger.Infof("fetched %v playlists", len(collections))

	if cmd.Bool("json") {
		return r.writeJSON(collections, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(collections))
	for _, c := range collections {
		r.writePlain("• %s\n", c.Title)
		r.writePlain("  ID: %s\n", c.ID)
		r.writePlain("  Videos: %d\n", c.ItemCount)
	}
	return nil
}

// selectCollection signs in and loads the playlist named by --id.
func (r *Runner) selectCollection(ctx context.Context, cmd *cli.Command) (models.Collection, error) {
	if err := r.signIn(ctx); err != nil {
		return models.Collection{}, err
	}

	id := cmd.String("id")
	if _, err := r.engine.SelectCollection(ctx, id); err != nil {
		return models.Collection{}, err
	}

	for _, c := range r.engine.Collections() {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Collection{ID: id}, nil
}

// sortFlags parses --sort and --dir.
func sortFlags(cmd *cli.Command) (models.SortKey, models.SortDirection, error) {
	key, err := models.ParseSortKey(cmd.String("sort"))
	if err != nil {
		return key, models.Descending, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	dir, err := models.ParseSortDirection(cmd.String("dir"))
	if err != nil {
		return key, dir, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	return key, dir, nil
}

// applySort reads --sort and --dir into the engine query.
func (r *Runner) applySort(cmd *cli.Command) error {
	key, dir, err := sortFlags(cmd)
	if err != nil {
		return err
	}

	r.engine.SortBy(key)
	r.engine.SetSortDirection(dir)
	return nil
}

// Items prints a playlist in display order.
func (r *Runner) Items(ctx context.Context, cmd *cli.Command) error {
	collection, err := r.selectCollection(ctx, cmd)
	if err != nil {
		return err
	}

	if err := r.applySort(cmd); err != nil {
		return err
	}
	r.engine.SetSearch(cmd.String("search"))
	r.engine.SetFavoritesOnly(cmd.Bool("favorites"))

	var items []models.Item
	if cmd.Bool("all") {
		items = r.engine.Ordered()
	} else {
		items = r.engine.Display()
	}
	view := r.engine.View()

	if cmd.Bool("json") {
		rows := make([]formatter.Row, len(items))
		for i, item := range items {
			rows[i] = formatter.Row{
				Position:  i + 1,
				ID:        item.ID,
				Title:     item.Title,
				Views:     view.ViewCounts[item.ID],
				Favorite:  view.Favorites[item.ID],
				Added:     item.AddedAt,
				Published: item.PublishedAt,
				URL:       item.URL(),
			}
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	title := collection.Title
	if title == "" {
		title = collection.ID
	}
	r.writePlainHeader(title)
	for i, item := range items {
		star := " "
		if view.Favorites[item.ID] {
			star = "★"
		}
		r.writePlain("%3d. %s %s [%d]\n", i+1, star, item.Title, view.ViewCounts[item.ID])
		r.writePlain("        %s\n", item.ID)
	}
	if len(items) < view.Matches {
		r.writePlainln("%d of %d shown. Use --all to list every match.", len(items), view.Matches)
	}
	return nil
}

// Duration prints the total running time of a playlist.
func (r *Runner) Duration(ctx context.Context, cmd *cli.Command) error {
	collection, err := r.selectCollection(ctx, cmd)
	if err != nil {
		return err
	}

	total, err := r.engine.CollectionDuration(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Playlist: %s\n", collection.Title)
	r.writePlain("Videos: %d\n", len(r.engine.Ordered()))
	r.writePlain("Total duration: %s\n", shared.FormatClock(total))
	return nil
}

// Export writes a playlist with its view counts, favorites and durations to a file.
//
// Markdown exports go to a directory with a README.md and the playlist cover. An output of "-"
// writes any format to stdout.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	collection, err := r.selectCollection(ctx, cmd)
	if err != nil {
		return err
	}
	if err := r.applySort(cmd); err != nil {
		return err
	}

	durations, err := r.engine.ItemDurations(ctx)
	if err != nil {
		r.logger.Warn("failed to load durations, exporting without them", "error", err)
	}

	view := r.engine.View()
	export := &formatter.Export{
		Collection: collection,
		Items:      r.engine.Ordered(),
		ViewCounts: view.ViewCounts,
		Favorites:  view.Favorites,
		Durations:  durations,
		ExportedAt: r.clock.Now(),
	}
	if view.Query.SortKey != models.SortNone {
		export.Sort = fmt.Sprintf("%s %s", view.Query.SortKey, view.Query.SortDir)
	}

	output := cmd.String("output")
	switch {
	case output == "-":
		return formatter.Write(r.output, export, format)
	case format == formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(ctx, export, output, collection.ThumbnailURL, r.httpClient)
		if err != nil {
			return err
		}
		r.logger.Infof("playlist exported to %v", result.Directory)
		r.writePlain("✓ Playlist exported to %s\n", result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
	default:
		path, err := formatter.WriteExport(export, format, output)
		if err != nil {
			return err
		}
		r.logger.Infof("playlist exported to %v with %v videos", path, len(export.Items))
		r.writePlain("✓ Playlist exported to %s\n", path)
	}

	r.writePlain("  Playlist: %s\n", collection.Title)
	r.writePlain("  Videos: %d\n", len(export.Items))
	return nil
}
