// Package engine coordinates the session, the playlist data and playback.
//
// # Session
//
// [Engine.BeginLogin] and [Engine.CompleteLogin] drive the implicit grant through the
// credential store. A successful login starts idle supervision and fetches the playlist list.
// [Engine.Logout] tears everything session-scoped down:
//   - the item store, the playback cursor and the progress poll
//   - the idle check and the credential (revoked best-effort)
//   - the theme and low-power preferences, which return to their defaults
//
// View counts and favorites are durable and survive logout. The engine logs out by itself on
// idle timeout, when the token is about to expire and when the API rejects the token.
//
// # Display list
//
// The display list is never stored. [Engine.View] and [Engine.Display] recompute it from the
// current items, view counts, favorites, query and window on every call, always after the
// mutation that changed them has been committed.
//
// # Playback
//
// [Engine.Play], [Engine.Next], [Engine.Previous] and [Engine.SelectDisplayIndex] load an item
// and start polling the player. Each poll feeds the progress tracker; the first sample past the
// watch threshold, or the natural end, adds exactly one view.
//
// # Events
//
// State changes are published on [Engine.Events] with non-blocking sends, so a slow reader
// loses events rather than stalling the engine. Readers should treat every event as a cue to
// call [Engine.View].
package engine
