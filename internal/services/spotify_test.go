package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tubeport/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// newTestSpotify returns an authenticated service pointed at handler with pacing and retry sleeps disabled.
func newTestSpotify(t *testing.T, handler http.Handler) (*SpotifyService, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"base_url":      server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	var mu sync.Mutex
	var sleeps []time.Duration
	srv.limiter = rate.NewLimiter(rate.Inf, 1)
	srv.retry.sleeper = func(d time.Duration) {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
	}

	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv, &sleeps
}

func writeTracks(w http.ResponseWriter, tracks ...SpotifyTrack) {
	var resp spotifySearchResponse
	resp.Tracks.Items = tracks
	resp.Tracks.Total = len(tracks)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:4000/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}

			if srv.config.RedirectURL != "http://localhost:4000/callback" {
				t.Errorf("expected custom redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			_, err := NewSpotifyService(credentials)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials for missing client_id, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			_, err := NewSpotifyService(credentials)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials for missing client_secret, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != DefaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewSpotifyService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "playlist-modify-private") {
			t.Error("auth URL should request playlist write scopes")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewSpotifyService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.token == nil {
				t.Fatal("expected token to be set")
			}

			if srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", srv.token.AccessToken)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("OAuthenticate rejects empty token", func(t *testing.T) {
			err := srv.OAuthenticate(context.Background(), &oauth2.Token{})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("OAuthenticate rejects an expired token it cannot refresh", func(t *testing.T) {
			token := &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)}
			err := srv.OAuthenticate(context.Background(), token)
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ OAuthService = srv
		var _ Searcher = srv
		var _ Publisher = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			var captured *oauth2.Token
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
				callback: func(token *oauth2.Token) { captured = token },
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if captured == nil || captured.AccessToken != "test_token" {
				t.Errorf("expected callback with test_token, got %+v", captured)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0
			mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
			source := &refreshableTokenSource{source: mock, callback: func(*oauth2.Token) { callCount++ }}

			_, _ = source.Token()
			mock.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "same_token"}},
				callback: func(*oauth2.Token) { callCount++ },
			}

			source.Token()
			source.Token()
			source.Token()

			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}}}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source:   &mockTokenSource{err: errors.New("token source error")},
				callback: func(*oauth2.Token) { t.Error("callback should not be called on error") },
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})

		t.Run("rejected client credentials", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{err: &oauth2.RetrieveError{ErrorCode: "invalid_client"}},
			}

			if _, err := source.Token(); !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	})

	t.Run("Search", func(t *testing.T) {
		t.Run("first formulation with results wins", func(t *testing.T) {
			var queries []string
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test_token" {
					t.Errorf("expected bearer token, got %q", got)
				}
				if r.URL.Query().Get("type") != "track" || r.URL.Query().Get("limit") != "10" {
					t.Errorf("unexpected query params %s", r.URL.RawQuery)
				}

				q := r.URL.Query().Get("q")
				queries = append(queries, q)
				if strings.HasPrefix(q, "artist:") {
					writeTracks(w)
					return
				}
				writeTracks(w,
					SpotifyTrack{Name: "Hey Jude - Remastered", URI: "spotify:track:first", Artists: []SpotifyArtist{{Name: "The Beatles"}}},
					SpotifyTrack{Name: "Hey Jude", URI: "spotify:track:second", Artists: []SpotifyArtist{{Name: "The Beatles"}}},
				)
			}))

			result, err := srv.Search(context.Background(), "The Beatles", "Hey Jude")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatal("expected a result")
			}
			if result.ExternalID != "spotify:track:first" {
				t.Errorf("expected first track, got %s", result.ExternalID)
			}
			if result.MatchedArtist != "The Beatles" || result.MatchedTitle != "Hey Jude - Remastered" {
				t.Errorf("unexpected match %+v", result)
			}

			want := []string{`artist:"The Beatles" track:"Hey Jude"`, `"The Beatles" "Hey Jude"`}
			if len(queries) != len(want) {
				t.Fatalf("expected queries %v, got %v", want, queries)
			}
			for i := range want {
				if queries[i] != want[i] {
					t.Errorf("query %d: expected %q, got %q", i, want[i], queries[i])
				}
			}
		})

		t.Run("no results is not an error", func(t *testing.T) {
			calls := 0
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeTracks(w)
			}))

			result, err := srv.Search(context.Background(), "Nobody", "Nothing")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != nil {
				t.Errorf("expected nil result, got %+v", result)
			}
			if calls != 3 {
				t.Errorf("expected 3 query formulations, got %d", calls)
			}
		})

		t.Run("bad request skips to next formulation", func(t *testing.T) {
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(r.URL.Query().Get("q"), "artist:") {
					http.Error(w, `{"error":{"status":400}}`, http.StatusBadRequest)
					return
				}
				writeTracks(w, SpotifyTrack{ID: "abc", Name: "Song"})
			}))

			result, err := srv.Search(context.Background(), "Artist", "Song")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil || result.ExternalID != "spotify:track:abc" {
				t.Errorf("expected URI built from id, got %+v", result)
			}
		})

		t.Run("unauthorized maps to token expired", func(t *testing.T) {
			calls := 0
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusUnauthorized)
			}))

			_, err := srv.Search(context.Background(), "Artist", "Song")
			if !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected no retries on 401, got %d calls", calls)
			}
		})

		t.Run("requires authentication", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = srv.Search(context.Background(), "Artist", "Song")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Retries", func(t *testing.T) {
		t.Run("honours Retry-After on 429", func(t *testing.T) {
			calls := 0
			srv, sleeps := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					w.Header().Set("Retry-After", "2")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				writeTracks(w, SpotifyTrack{URI: "spotify:track:1", Name: "Song"})
			}))

			result, err := srv.Search(context.Background(), "", "Song")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatal("expected result after retry")
			}
			if len(*sleeps) != 1 || (*sleeps)[0] != 2*time.Second {
				t.Errorf("expected one 2s sleep, got %v", *sleeps)
			}
		})

		t.Run("backs off exponentially on server errors", func(t *testing.T) {
			calls := 0
			srv, sleeps := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusBadGateway)
			}))

			_, err := srv.Search(context.Background(), "", "Song")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if calls != 3 {
				t.Errorf("expected 3 attempts, got %d", calls)
			}
			if len(*sleeps) != 2 || (*sleeps)[0] != time.Second || (*sleeps)[1] != 2*time.Second {
				t.Errorf("expected 1s then 2s backoff, got %v", *sleeps)
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		meCalls := 0
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/me":
				meCalls++
				json.NewEncoder(w).Encode(SpotifyUser{ID: "user1"})
			case r.Method == http.MethodPost && r.URL.Path == "/users/user1/playlists":
				var body createPlaylistRequest
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode body: %v", err)
				}
				if body.Name != "Road Trip" || body.Public || body.Description != "desc" {
					t.Errorf("unexpected body %+v", body)
				}
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(SpotifyPlaylist{ID: "pl1", Name: body.Name})
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		for range 2 {
			id, err := srv.CreatePlaylist(context.Background(), "Road Trip", "desc", false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != "pl1" {
				t.Errorf("expected playlist id pl1, got %s", id)
			}
		}
		if meCalls != 1 {
			t.Errorf("expected user id to be cached, got %d /me calls", meCalls)
		}
	})

	t.Run("AddItems", func(t *testing.T) {
		var batches []int
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/playlists/pl1/tracks" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body addItemsRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			batches = append(batches, len(body.URIs))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"snapshot_id":"s"}`)
		}))

		uris := make([]string, 250)
		for i := range uris {
			uris[i] = fmt.Sprintf("spotify:track:%d", i)
		}

		if err := srv.AddItems(context.Background(), "pl1", uris); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(batches) != 3 || batches[0] != 100 || batches[1] != 100 || batches[2] != 50 {
			t.Errorf("expected batches of 100, 100, 50, got %v", batches)
		}

		if err := srv.AddItems(context.Background(), "", uris); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty playlist id, got %v", err)
		}
	})
}

func TestSearchQueries(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		title  string
		want   []string
	}{
		{
			name:   "artist and title",
			artist: "Adele",
			title:  "Hello",
			want:   []string{`artist:"Adele" track:"Hello"`, `"Adele" "Hello"`, `"Hello"`},
		},
		{name: "title only", title: "Hello", want: []string{`"Hello"`}},
		{name: "no title", artist: "Adele", want: nil},
		{name: "quotes are stripped", title: `Say "Hi"`, want: []string{`"Say Hi"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchQueries(tt.artist, tt.title)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("query %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
