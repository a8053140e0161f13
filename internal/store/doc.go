// Package store holds the authoritative in-memory state the engine derives its display list from.
//
// [ItemStore] keeps the collection list and the merged item sequence of the selected collection.
// Each selection bumps a generation so a fetch that finishes after the user moved on is refused
// with [shared.ErrStaleFetch] instead of overwriting the newer selection.
//
// [PreferenceStore] keeps watch counts, favorites and preferences. It is read once from a
// [Durable] backend at startup and every mutation writes through to the backend before the
// in-memory copy changes, so a failed write leaves memory and disk in agreement.
//
// Neither type locks. The engine serializes access.
package store
