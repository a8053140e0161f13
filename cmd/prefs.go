package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

// PrefsShow prints the durable preferences with the favorite and view totals.
func (r *Runner) PrefsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	prefs := r.prefs.Preferences()
	if cmd.Bool("json") {
		return r.writeJSON(prefs, cmd.Bool("pretty"))
	}

	views := 0
	for _, n := range r.prefs.ViewCounts() {
		views += n
	}

	r.writePlain("Theme: %s\n", prefs.Theme)
	r.writePlain("Autoplay: %s\n", shared.OnOff(prefs.Autoplay))
	r.writePlain("Loop window: %s\n", shared.OnOff(prefs.LoopWindow))
	r.writePlain("Volume: %d\n", prefs.Volume)
	r.writePlain("Low power: %s\n", shared.OnOff(prefs.LowPower))
	r.writePlain("Sidebar: %s\n", shared.OnOff(prefs.ShowSidebar))
	r.writePlain("Favorites: %d\n", len(r.prefs.FavoriteIDs()))
	r.writePlain("Counted views: %d\n", views)
	return nil
}

// PrefsSet changes the preferences named by flags. Unset flags keep their value.
func (r *Runner) PrefsSet(ctx context.Context, cmd *cli.Command) error {
	var theme models.Theme
	if cmd.IsSet("theme") {
		t, err := models.ParseTheme(cmd.String("theme"))
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		theme = t
	}
	if cmd.IsSet("volume") {
		if v := cmd.Int("volume"); v < 0 || v > 100 {
			return fmt.Errorf("%w: volume must be between 0 and 100", shared.ErrInvalidFlag)
		}
	}

	if err := r.openStore(); err != nil {
		return err
	}

	prefs, err := r.prefs.Update(func(p *models.Preferences) {
		if theme != "" {
			p.Theme = theme
		}
		if cmd.IsSet("autoplay") {
			p.Autoplay = cmd.Bool("autoplay")
		}
		if cmd.IsSet("loop-window") {
			p.LoopWindow = cmd.Bool("loop-window")
		}
		if cmd.IsSet("volume") {
			p.Volume = cmd.Int("volume")
		}
		if cmd.IsSet("low-power") {
			p.LowPower = cmd.Bool("low-power")
		}
		if cmd.IsSet("sidebar") {
			p.ShowSidebar = cmd.Bool("sidebar")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	r.logger.Info("preferences saved", "theme", prefs.Theme, "volume", prefs.Volume)
	return r.writePlain("✓ Preferences saved\n")
}

// ResetViews sets every view count back to zero. Favorites are kept.
func (r *Runner) ResetViews(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}
	if err := r.prefs.ResetViews(); err != nil {
		return fmt.Errorf("failed to reset view counts: %w", err)
	}
	return r.writePlain("✓ View counts reset\n")
}

func (r *Runner) setFavorite(cmd *cli.Command, favorite bool) error {
	id := cmd.StringArg("video")
	if id == "" {
		return fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}
	if err := r.openStore(); err != nil {
		return err
	}
	return r.prefs.SetFavorite(id, favorite)
}

// FavoriteAdd marks a video as a favorite.
func (r *Runner) FavoriteAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.setFavorite(cmd, true); err != nil {
		return err
	}
	return r.writePlain("★ %s added to favorites\n", cmd.StringArg("video"))
}

// FavoriteRemove removes a video from the favorites.
func (r *Runner) FavoriteRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.setFavorite(cmd, false); err != nil {
		return err
	}
	return r.writePlain("✓ %s removed from favorites\n", cmd.StringArg("video"))
}

// FavoriteList prints the favorite video ids with their view counts.
func (r *Runner) FavoriteList(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	ids := r.prefs.FavoriteIDs()
	if len(ids) == 0 {
		return r.writePlain("No favorites yet.\n")
	}
	for _, id := range ids {
		r.writePlain("★ %s [%d]\n", id, r.prefs.ViewCount(id))
	}
	return nil
}

// History prints the most recent watch credits.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	entries, err := r.prefsRepo.History(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(entries) == 0 {
		return r.writePlain("No views counted yet.\n")
	}
	for _, e := range entries {
		r.writePlain("%s  %s  (%s)\n", e.WatchedAt.Local().Format("2006-01-02 15:04"), e.VideoID, e.CollectionID)
	}
	return nil
}
