// Package services implements the external collaborators of a migration: a YouTube playlist [Extractor]
// and a Spotify [Searcher] and [Publisher].
//
// # Service Interface
//
// Every client implements [Service]. The migration engine depends only on the narrow role interfaces,
// so tests substitute hand-written fakes.
//
// # YouTube Implementation
//
// [YouTubeService] reads playlistItems pages from the YouTube Data API v3 with an API key, 50 items per
// page, following nextPageToken. Pages are paced with a [rate.Limiter] at one request per second.
// "Deleted video" and "Private video" placeholders are skipped and the " - Topic" suffix of
// auto-generated artist channels is removed from the publisher.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh. New access tokens are
// reported through [SpotifyService.SetTokenRefreshCallback] so the CLI can persist them.
//
// Search tries three query formulations in order and takes the first track of the first formulation
// that returns anything:
//
//	artist:"A" track:"T"
//	"A" "T"
//	"T"
//
// Playlist creation resolves the user through GET /me. Tracks are added in batches of 100.
//
// # Retries
//
// Requests are retried up to three times on 408, 429, 5xx and network timeouts. Retry-After is honoured,
// otherwise the delay doubles from one second.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : 401 response, reauthorization needed
//   - [shared.ErrRefreshFailed] : refresh token rejected, reauthorization needed
//   - [shared.ErrInvalidCredentials] : client ID or secret rejected by the token endpoint
//   - [shared.ErrNoRefreshToken] : stored access token expired and cannot be refreshed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrInvalidSource] : playlist reference could not be parsed
package services
