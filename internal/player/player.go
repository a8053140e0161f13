// Package player drives the external media player.
//
// The engine only knows the [Player] interface: load an item at a volume, read back its
// progress, change volume, stop. [MPV] implements it by running mpv with a JSON IPC socket.
package player

import (
	"context"

	"github.com/desertthunder/ytloop/internal/models"
)

// Player is the playback capability the engine drives.
type Player interface {
	// Load starts playing videoID at volume (0-100), replacing anything loaded.
	Load(ctx context.Context, videoID string, volume int) error

	// Progress reports position, duration and state of the loaded item.
	Progress(ctx context.Context) (models.Sample, error)

	SetVolume(ctx context.Context, volume int) error

	// Stop unloads the current item.
	Stop(ctx context.Context) error

	// Close releases the player.
	Close() error
}

// WatchURL returns the URL the player opens for videoID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
