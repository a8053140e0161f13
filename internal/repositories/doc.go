// Package repositories implements SQLite persistence for the durable viewing state.
//
// Key Implementations:
//   - [PreferenceRepository] : watch counts, favorites, preferences and watch history
//   - [DurationRepository] : cached video durations
//
// Watch counts and favorites outlive logout. Preferences are stored as key/value rows so a
// missing key falls back to [models.DefaultPreferences] without a schema change.
package repositories
