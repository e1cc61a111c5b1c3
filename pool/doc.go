// Package pool manages the lifecycle of memory-store clients shared across
// concurrent tool invocations. Clients are expensive to construct (each one
// opens a real connection to the backing vector store), so the pool keeps one
// refcounted client per key and hands the same handle to every caller.
//
// Architecture:
//   - Manager: process-wide registry mapping keys to refcounted clients
//   - Factory: injected seam that constructs clients (the pool never
//     interprets what a client does)
//   - Cleanup scheduler: background loop evicting idle, unreferenced clients
//   - WithClient: scoped acquisition that guarantees release on every exit
//     path
//
// Creation uses double-checked locking: the registry lock is only ever held
// for map lookups and inserts, while construction for a key serializes on a
// per-key lock so concurrent first acquisitions run the factory exactly once
// and unrelated keys stay responsive during a slow connect.
//
// The clock is injectable so idle-eviction tests can advance time without
// sleeping.
package pool
