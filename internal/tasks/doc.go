// Package tasks drives the currently-playing to video pipeline.
//
// # Poll Cycle
//
// A [Poller] owns one viewer. Each cycle it:
//
//  1. Reads the current track from a [services.Player]
//  2. Compares it with the last track it saw ([HasChanged])
//  3. On a change, resolves a video through the [Resolver]
//  4. Pushes the embed link to its [Deliverer] and optionally records it
//
// Unchanged cycles wait the poll interval; failed reads wait the backoff interval.
// Missing authorization and delivery failures stop the poller. A track that cannot be
// resolved within the [RetryPolicy] budget is reported and skipped.
//
// # Resolution
//
// The [Resolver] checks the persistent [Store] first, then the in-memory [Cache], and only
// then searches. Caches are written only after a successful search, so a failure is never
// remembered. Memory hits can be written back to the store.
//
// # Events
//
// Pollers and [Warm] report progress as [Event] values on an optional channel.
// Sends never block: a slow observer misses events, it never stalls polling.
package tasks
