// Package models defines domain entities for the trackshelf library curation service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Track] : Song metadata as returned to callers and exports
//   - [SavedTrack] : A track plus the instant it was saved to the remote library
//
// 2. Persistent Entities: Database-backed rows of the local cache
//   - [LikedTrack] : One cached liked-songs row, keyed by (user, track)
//   - [Metadata] : Per-user sync bookkeeping (totals, watermarks, status)
//
// Conversion between the two directions is lossless for the fields both
// shapes carry: NewLikedTrack followed by [LikedTrack.Display] preserves
// id, uri, name, duration, popularity, artist and album identity.
package models
