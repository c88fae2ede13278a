// package services defines the collaborators the migration engine talks to
//
// YouTube (source extraction), Spotify (search and playlist writes)
package services

import (
	"context"

	"github.com/desertthunder/tubeport/internal/models"
	"golang.org/x/oauth2"
)

// Service is implemented by every external catalog client.
type Service interface {
	// Authenticate configures credentials (API key, access token or auth code) for subsequent requests.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Name returns the name of the service (e.g., "Spotify", "YouTube")
	Name() string
}

// Extractor lists the entries of a source playlist in playlist order.
type Extractor interface {
	// ExtractEntries accepts a playlist URL or bare playlist ID.
	ExtractEntries(ctx context.Context, playlistRef string) ([]models.RawEntry, error)
}

// Searcher queries the destination catalog for a song.
type Searcher interface {
	// Search returns nil without an error when no track matched any query formulation.
	// Errors are reserved for unrecoverable transport and authentication failures.
	Search(ctx context.Context, artist, title string) (*models.ResolutionResult, error)
}

// Publisher writes the commit set to the destination catalog.
type Publisher interface {
	// CreatePlaylist creates an empty playlist for the current user and returns its ID.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)

	// AddItems appends track URIs to a playlist, batching as the destination requires.
	AddItems(ctx context.Context, playlistID string, uris []string) error
}

// OAuthService extends [Service] for providers that use the authorization code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the consent page URL carrying state.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the client configuration for the callback server's code exchange.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs a token, refreshing it automatically when it expires.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// SetTokenRefreshCallback registers fn to be called whenever a new access token is obtained.
	SetTokenRefreshCallback(fn func(*oauth2.Token))
}
