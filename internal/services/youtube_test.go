package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tubeport/internal/shared"
	tu "github.com/desertthunder/tubeport/internal/testing"
	"golang.org/x/time/rate"
)

func newTestYouTube(t *testing.T, handler http.Handler) *YouTubeService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewYouTubeService(server.URL, "test_key")
	svc.limiter = rate.NewLimiter(rate.Inf, 1)
	svc.retry.sleeper = func(time.Duration) {}
	return svc
}

func playlistItem(title, owner string) YouTubePlaylistItem {
	var item YouTubePlaylistItem
	item.Snippet.Title = title
	item.Snippet.VideoOwnerChannelTitle = owner
	return item
}

func TestYouTubeService(t *testing.T) {
	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("creates service with default URL", func(t *testing.T) {
			if svc := NewYouTubeService("", "key"); svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
		})

		t.Run("creates service with custom URL", func(t *testing.T) {
			customURL := "http://localhost:9000"
			if svc := NewYouTubeService(customURL+"/", ""); svc.baseURL != customURL {
				t.Errorf("expected baseURL to be %s, got %s", customURL, svc.baseURL)
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		if svc := NewYouTubeService("", ""); svc.Name() != "YouTube" {
			t.Errorf("expected name to be 'YouTube', got %s", svc.Name())
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		svc := NewYouTubeService("", "")
		ctx := context.Background()

		t.Run("authenticates with api_key", func(t *testing.T) {
			if err := svc.Authenticate(ctx, map[string]string{"api_key": "abc"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.apiKey != "abc" {
				t.Errorf("expected apiKey to be abc, got %s", svc.apiKey)
			}
		})

		t.Run("fails without api_key", func(t *testing.T) {
			err := svc.Authenticate(ctx, map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Fatalf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("ExtractEntries", func(t *testing.T) {
		t.Run("follows pages and filters unavailable entries", func(t *testing.T) {
			var tokens []string
			svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlistItems" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("key") != "test_key" || q.Get("playlistId") != "PL123" || q.Get("maxResults") != "50" || q.Get("part") != "snippet" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				tokens = append(tokens, q.Get("pageToken"))

				var page youtubeItemsPage
				switch q.Get("pageToken") {
				case "":
					page.Items = []YouTubePlaylistItem{
						playlistItem("The Beatles - Hey Jude", "The Beatles - Topic"),
						playlistItem("Deleted video", ""),
					}
					page.NextPageToken = "page2"
				case "page2":
					page.Items = []YouTubePlaylistItem{
						playlistItem("Private video", ""),
						playlistItem("Hello", "AdeleVEVO"),
					}
				}
				json.NewEncoder(w).Encode(page)
			}))

			entries, err := svc.ExtractEntries(context.Background(), "https://www.youtube.com/playlist?list=PL123&si=xyz")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(tokens) != 2 || tokens[1] != "page2" {
				t.Errorf("expected two pages, got tokens %v", tokens)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
			}
			if entries[0].Label != "The Beatles - Hey Jude" || entries[0].Publisher != "The Beatles" {
				t.Errorf("unexpected first entry %+v", entries[0])
			}
			if entries[1].Label != "Hello" || entries[1].Publisher != "AdeleVEVO" {
				t.Errorf("unexpected second entry %+v", entries[1])
			}
		})

		t.Run("not found", func(t *testing.T) {
			svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":{"code":404,"message":"playlistNotFound"}}`))
			}))

			_, err := svc.ExtractEntries(context.Background(), "PLmissing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("quota errors surface the API message", func(t *testing.T) {
			svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
			}))

			_, err := svc.ExtractEntries(context.Background(), "PL123")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			var statusErr *httpStatusError
			if !errors.As(err, &statusErr) || statusErr.Body != "quotaExceeded" {
				t.Errorf("expected quotaExceeded message, got %v", err)
			}
		})

		t.Run("invalid reference", func(t *testing.T) {
			svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}))

			_, err := svc.ExtractEntries(context.Background(), "https://www.youtube.com/watch?v=abc")
			if !errors.Is(err, shared.ErrInvalidSource) {
				t.Errorf("expected ErrInvalidSource, got %v", err)
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			svc := NewYouTubeService("http://youtube.invalid", "test_key")
			svc.limiter = rate.NewLimiter(rate.Inf, 1)
			svc.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

			_, err := svc.ExtractEntries(context.Background(), "PL123")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("malformed response", func(t *testing.T) {
			resp := &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader("{")),
			}
			svc := NewYouTubeService("http://youtube.invalid", "test_key")
			svc.limiter = rate.NewLimiter(rate.Inf, 1)
			svc.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

			_, err := svc.ExtractEntries(context.Background(), "PL123")
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})

		t.Run("missing api key", func(t *testing.T) {
			svc := NewYouTubeService("http://127.0.0.1:1", "")
			_, err := svc.ExtractEntries(context.Background(), "PL123")
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("PlaylistTitle", func(t *testing.T) {
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists" || r.URL.Query().Get("id") != "PL123" {
				t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
			}
			w.Write([]byte(`{"items":[{"id":"PL123","snippet":{"title":"Road Trip"}}]}`))
		}))

		title, err := svc.PlaylistTitle(context.Background(), "PL123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if title != "Road Trip" {
			t.Errorf("expected Road Trip, got %s", title)
		}
	})

	t.Run("Interfaces", func(t *testing.T) {
		var _ Service = NewYouTubeService("", "")
		var _ Extractor = NewYouTubeService("", "")
	})
}

func TestParsePlaylistID(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "https://www.youtube.com/playlist?list=PLabc_123-x", want: "PLabc_123-x"},
		{ref: "https://music.youtube.com/playlist?list=OLAK5uy&si=1", want: "OLAK5uy"},
		{ref: "https://www.youtube.com/watch?v=dQw&list=PLmix", want: "PLmix"},
		{ref: "  PLbare  ", want: "PLbare"},
		{ref: "", wantErr: true},
		{ref: "https://www.youtube.com/watch?v=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParsePlaylistID(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlaylistID(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePlaylistID(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestCleanPublisher(t *testing.T) {
	tests := map[string]string{
		"The Beatles - Topic": "The Beatles",
		"AdeleVEVO":           "AdeleVEVO",
		"":                    "",
		"  Queen - Topic  ":   "Queen",
	}
	for in, want := range tests {
		if got := CleanPublisher(in); got != want {
			t.Errorf("CleanPublisher(%q) = %q, want %q", in, got, want)
		}
	}
}
