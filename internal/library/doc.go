// Package library implements the liked-songs cache and the engine
// that keeps it reconciled with the remote collection.
//
// The engine chooses the cheapest strategy each invocation: serve the
// cache untouched when it is fresh and the remote collection shows no
// drift, append only the new tail when additions are the sole change,
// or re-fetch everything when the cache cannot be trusted. Removals
// are reconciled with a bounded contains-check sweep; when the sweep
// budget is exhausted the engine flags the library for a full sync on
// the next invocation instead of scanning unbounded.
package library
