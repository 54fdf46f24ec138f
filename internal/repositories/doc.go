// Package repositories implements SQLite persistence for musicvid's durable state.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Songs support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SongRepository] : track to video mappings looked up by (title, artist)
//   - [SongStore] : adapts [SongRepository] to the poller's store, deduplicating writes
//   - [DeliveryRepository] : append-only history of links pushed to viewers
//
// Sequence numbers provide stable, human-readable ordering (e.g., song #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
