// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [LoginView] : Entry screen; starts the browser sign-in
//  2. [CollectionsView] : Browse and pick a playlist
//  3. [ItemsView] : The display list with playback, search, sorting and favorites
//
// The (view) [Model] holds no session state of its own. Every frame is rendered from
// [engine.Engine.View], and key presses call engine operations. Engine events arrive through a
// command that waits on [engine.Engine.Events] and re-arms itself after each event.
//
// Key presses and terminal focus count as user activity for the idle check.
package ui
