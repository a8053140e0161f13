package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/playback"
	"github.com/desertthunder/ytloop/internal/shared"
)

var errNothingToPlay = fmt.Errorf("%w: nothing to play", shared.ErrInvalidInput)

func (e *Engine) pollIntervalLocked() time.Duration {
	interval := e.cfg.Playback.PollInterval.Duration
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if e.prefs.Preferences().LowPower {
		interval *= 2
	}
	return interval
}

// Play loads id from the current collection into the player and starts progress polling.
func (e *Engine) Play(ctx context.Context, id string) error {
	if e.player == nil {
		return fmt.Errorf("%w: no player configured", shared.ErrServiceUnavailable)
	}

	e.mu.Lock()
	item, ok := e.items.Item(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s is not in the current playlist", shared.ErrInvalidArgument, id)
	}
	e.tracker.Reset(id, e.clock.Now())
	volume := e.prefs.Preferences().Volume
	interval := e.pollIntervalLocked()
	n := len(e.displayLocked())
	e.mu.Unlock()

	e.monitor.Touch()
	if err := e.player.Load(ctx, id, volume); err != nil {
		e.mu.Lock()
		if e.tracker.Cursor().ItemID == id {
			e.tracker.Reset("", e.clock.Now())
		}
		e.mu.Unlock()
		e.stopPolling()
		e.emit(noticeEvent("Failed to start playback.", err))
		return err
	}

	e.poller.Start(interval)
	e.emit(nowPlayingEvent(item))
	e.emit(displayEvent(n))
	return nil
}

// stopPolling ends the progress poll. The idle monitor forgets the last player state with it.
func (e *Engine) stopPolling() {
	e.poller.Stop()
	e.monitor.PlaybackStopped()
}

// Next plays the item after the current one in the navigation order, wrapping at the end.
func (e *Engine) Next(ctx context.Context) error {
	return e.step(ctx, playback.Next)
}

// Previous plays the item before the current one, wrapping at the start.
func (e *Engine) Previous(ctx context.Context) error {
	return e.step(ctx, playback.Previous)
}

func (e *Engine) step(ctx context.Context, move func([]models.Item, string) (models.Item, bool)) error {
	e.mu.Lock()
	item, ok := move(e.orderLocked(), e.tracker.Cursor().ItemID)
	e.mu.Unlock()
	if !ok {
		return errNothingToPlay
	}
	return e.Play(ctx, item.ID)
}

// SelectDisplayIndex plays the i-th visible entry of the display list.
func (e *Engine) SelectDisplayIndex(ctx context.Context, i int) error {
	e.mu.Lock()
	item, ok := playback.Resolve(e.displayLocked(), i)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no entry at position %d", shared.ErrInvalidArgument, i)
	}
	return e.Play(ctx, item.ID)
}

// Stop unloads the current item and stops polling.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	e.tracker.Reset("", e.clock.Now())
	n := len(e.displayLocked())
	e.mu.Unlock()

	e.stopPolling()
	e.emit(displayEvent(n))
	if e.player == nil {
		return nil
	}
	return e.player.Stop(ctx)
}

// Current returns the loaded item.
func (e *Engine) Current() (models.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items.Item(e.tracker.Cursor().ItemID)
}

// tick samples the player once and applies the result.
func (e *Engine) tick() {
	e.mu.Lock()
	id := e.tracker.Cursor().ItemID
	e.mu.Unlock()
	if id == "" || e.player == nil {
		e.stopPolling()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	sample, err := e.player.Progress(ctx)
	if err != nil {
		e.logger.Debug("progress poll failed", "item", id, "error", err)
		e.monitor.PlaybackStopped()
		return
	}
	e.monitor.PlayerState(sample.State)

	e.mu.Lock()
	if e.tracker.Cursor().ItemID != id {
		e.mu.Unlock()
		return
	}
	obs := e.tracker.Observe(sample, e.clock.Now())
	item, _ := e.items.Item(id)
	count, creditErr := 0, error(nil)
	if obs.Credit {
		count, creditErr = e.prefs.IncrementView(id)
	}
	ended := sample.State == models.StateEnded
	autoplay := e.prefs.Preferences().Autoplay
	n := len(e.displayLocked())
	e.mu.Unlock()

	if obs.Advanced {
		e.monitor.PlaybackAdvanced()
	}
	if obs.Credit {
		e.credit(item, count, creditErr)
		e.emit(displayEvent(n))
	}

	if !ended {
		return
	}
	if !autoplay {
		e.stopPolling()
		return
	}
	if err := e.Next(ctx); err != nil && !errors.Is(err, errNothingToPlay) {
		e.logger.Warn("autoplay failed", "error", err)
	}
}

func (e *Engine) credit(item models.Item, count int, err error) {
	if err != nil {
		e.logger.Error("failed to save view count", "item", item.ID, "error", err)
		e.emit(noticeEvent("Failed to save your view count.", err))
		return
	}

	e.emit(creditEvent(item, count))
	if e.history == nil {
		return
	}
	entry := models.WatchEntry{VideoID: item.ID, CollectionID: item.CollectionID, WatchedAt: e.clock.Now()}
	if err := e.history.RecordWatch(entry); err != nil {
		e.logger.Warn("failed to record watch history", "item", item.ID, "error", err)
	}
}
