// Package models defines domain entities for musicvid.
//
// The package contains two categories of types:
//
// 1. Values produced per poll: lightweight immutable structs passed between the poller and its collaborators
//   - [Snapshot] : a point-in-time read of what is playing upstream
//   - [TrackKey] : normalized (title, artist) pair used as the cache key
//   - [VideoMatch] : a resolved YouTube video for a track
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Song] : a stored track → video mapping, the durable side of the cache
//   - [Delivery] : a record of a link pushed to a viewer
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps and validation.
package models
