// Package services defines the [PlayerService] and [LibraryService] interfaces for the Spotify Web API and implements them with [SpotifyService].
//
// # Service Interfaces
//
// [PlayerService] covers player control (play, pause, skip, shuffle, repeat, volume, devices, queue) and track search.
//
// [LibraryService] covers listening history (top tracks, recently played), recommendations, and playlist management.
//
// Commands and background tasks depend on the interfaces, so tests can substitute fakes without touching the network.
//
// # Spotify Implementation
//
// [SpotifyService] wraps the zmb3/spotify client around an authenticated HTTP client, typically built from the token store's [oauth2.TokenSource].
//
// The OAuth2 transport refreshes expired access tokens transparently, so service methods never handle token lifecycles themselves.
//
// All outbound requests pass through a shared [rate.Limiter] to stay inside the Web API request budget.
//
// # Error Handling
//
// Services map Web API failures to typed errors from the shared package:
//   - [shared.ErrReauthorizationRequired] : 401 response, saved credentials no longer work
//   - [shared.ErrNoActiveDevice] : 404 from a player endpoint, no device is active
//   - [shared.ErrTrackNotFound] / [shared.ErrPlaylistNotFound] : 404 on catalog lookups
//   - [shared.ErrAPIRequest] : any other HTTP failure
//
// Token source failures surfaced through the HTTP client keep their original sentinel.
//
// # API Mappings
//
// Responses convert to provider-neutral types at the interface boundary:
//   - Full track objects map to [Track] with all artist names joined
//   - Device objects map to [Device] keyed by the provider device ID
//   - Player state maps to [PlaybackState] with a nil Track when idle
package services
