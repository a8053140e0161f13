// Package models defines the domain entities shared by the session engine.
//
// The package contains three groups of types:
//
// 1. Remote data: values fetched from the YouTube Data API
//   - [Collection] : a playlist owned by the signed-in user
//   - [Item] : a single video entry within a collection
//
// 2. Session state: values owned by the engine for the lifetime of a login
//   - [Session] : the bearer credential, its expiry and the login nonce
//   - [Cursor] : the playback cursor for the item currently loaded
//
// 3. Durable settings and list controls
//   - [Preferences] : theme, autoplay, loop window, volume, low power and sidebar
//   - [SortKey], [SortDirection], [DisplayMode] : controls for the display list
//   - [PlayerState] : player state codes reported by the player
package models
