// Package services defines the [Library] interface for the remote streaming
// provider and implements it for Spotify.
//
// # Library Interface
//
// The curation engine talks to the provider only through [Library]:
// a paginated saved-tracks listing, a batched contains-check, and the
// playlist operations triage needs. Tests substitute fakes freely.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with a bearer token over [oauth2] and
// gates every request through a client-side [rate.Limiter]. Page size
// and contains-check batches are capped at 50, the service maximum.
//
// The current-user profile lookup is memoized: computed on first call,
// reused afterwards, droppable via [SpotifyService.ResetUser].
//
// # Retries
//
// Services perform no retries of their own. Non-2xx responses surface
// as [APIError] values carrying the HTTP status and any Retry-After
// delay; [RetryPolicy] interprets those at the call site, backing off
// exponentially and honoring the server-supplied delay.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrMissingCredentials] : incomplete credentials
//   - [shared.ErrAPIRequest] : malformed API response
//   - [shared.ErrInvalidArgument] : bad caller input
package services
