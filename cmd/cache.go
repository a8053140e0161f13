package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/repositories"
)

// CacheStats prints how many video durations are cached, and how many videos had none.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	known, unavailable, err := repositories.NewDurationRepository(r.db).Count()
	if err != nil {
		return err
	}
	r.writePlain("Cached durations: %d\n", known)
	r.writePlain("Unavailable videos: %d\n", unavailable)
	return nil
}

// CacheClear drops every cached video duration. Unavailable videos are looked up again next time.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	if err := repositories.NewDurationRepository(r.db).Clear(); err != nil {
		return err
	}
	r.logger.Info("duration cache cleared")
	r.writePlain("✓ Duration cache cleared\n")
	return nil
}
