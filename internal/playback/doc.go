// Package playback awards watch credit and moves between items.
//
// A [Tracker] follows one play-through at a time. Credit is awarded once, on the first of the
// position reaching the watched fraction of the duration or the player reporting the end.
// [Tracker.Reset] starts a new play-through.
//
// [Next], [Previous] and [Resolve] pick items from the navigation order, which is the full
// filtered and sorted sequence rather than the visible window. Stepping wraps around.
//
// A [Poller] runs the progress poll while an item is loaded. It is stopped whenever nothing is.
package playback
