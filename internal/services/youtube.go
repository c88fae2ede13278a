// YouTube Data API v3 implementation of [Extractor]
//
// Response types based on https://developers.google.com/youtube/v3/docs/playlistItems
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"
	ytPageSize       = 50
	topicSuffix      = " - Topic"
)

var (
	playlistParamPattern = regexp.MustCompile(`list=([a-zA-Z0-9_-]+)`)
	playlistIDPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// unavailableTitles are placeholders YouTube returns for entries that can no longer be played.
	unavailableTitles = map[string]bool{
		"Deleted video": true,
		"Private video": true,
	}
)

// YouTubeSnippet is the snippet part of a playlist item.
type YouTubeSnippet struct {
	Title                  string `json:"title"`
	ChannelTitle           string `json:"channelTitle"`
	VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
	Position               int    `json:"position"`
	ResourceID             struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

// YouTubePlaylistItem is one entry of a playlistItems page.
type YouTubePlaylistItem struct {
	ID      string         `json:"id"`
	Snippet YouTubeSnippet `json:"snippet"`
}

type youtubeItemsPage struct {
	Items         []YouTubePlaylistItem `json:"items"`
	NextPageToken string                `json:"nextPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
}

type youtubePlaylistsPage struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// YouTubeService implements [Extractor] against the YouTube Data API using an API key.
//
// Pages are paced at one request per second.
type YouTubeService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retrier
}

// NewYouTubeService creates a new YouTube Data API client. An empty baseURL selects the public endpoint.
func NewYouTubeService(baseURL, apiKey string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		retry:      newRetrier(),
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// Authenticate stores the API key used for subsequent requests.
func (y *YouTubeService) Authenticate(_ context.Context, credentials map[string]string) error {
	apiKey := credentials["api_key"]
	if apiKey == "" {
		return fmt.Errorf("%w: missing api_key", shared.ErrMissingCredentials)
	}
	y.apiKey = apiKey
	return nil
}

// ParsePlaylistID extracts the playlist ID from a URL carrying a list= parameter, or accepts a bare ID.
func ParsePlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := playlistParamPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if playlistIDPattern.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: %q", shared.ErrInvalidSource, ref)
}

// CleanPublisher removes the " - Topic" suffix YouTube appends to auto-generated artist channels.
func CleanPublisher(channel string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(channel), topicSuffix))
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if y.apiKey == "" {
		return fmt.Errorf("%w: youtube api key is not configured", shared.ErrMissingCredentials)
	}
	params.Set("key", y.apiKey)
	apiURL := y.baseURL + endpoint + "?" + params.Encode()

	return y.retry.do(ctx, func() error {
		if err := y.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := y.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body := string(data)
			var errResp youtubeErrorBody
			if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
				body = errResp.Error.Message
			}
			retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
			return &httpStatusError{Service: "youtube", StatusCode: resp.StatusCode, Body: body, RetryAfter: retryAfter}
		}

		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

// ExtractEntries lists every playable entry of a playlist, following page tokens.
//
// Deleted and private videos are skipped and the " - Topic" suffix is removed from publishers.
func (y *YouTubeService) ExtractEntries(ctx context.Context, playlistRef string) ([]models.RawEntry, error) {
	playlistID, err := ParsePlaylistID(playlistRef)
	if err != nil {
		return nil, err
	}

	var entries []models.RawEntry
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("playlistId", playlistID)
		params.Set("maxResults", fmt.Sprint(ytPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page youtubeItemsPage
		if err := y.doRequest(ctx, "/playlistItems", params, &page); err != nil {
			return entries, mapPlaylistError(err, playlistID)
		}

		for _, item := range page.Items {
			title := strings.TrimSpace(item.Snippet.Title)
			if title == "" || unavailableTitles[title] {
				continue
			}
			entries = append(entries, models.RawEntry{
				Label:     title,
				Publisher: CleanPublisher(item.Snippet.VideoOwnerChannelTitle),
			})
		}

		if page.NextPageToken == "" {
			return entries, nil
		}
		pageToken = page.NextPageToken
	}
}

// PlaylistTitle fetches the display title of a playlist.
func (y *YouTubeService) PlaylistTitle(ctx context.Context, playlistRef string) (string, error) {
	playlistID, err := ParsePlaylistID(playlistRef)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", playlistID)

	var page youtubePlaylistsPage
	if err := y.doRequest(ctx, "/playlists", params, &page); err != nil {
		return "", mapPlaylistError(err, playlistID)
	}
	if len(page.Items) == 0 {
		return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return page.Items[0].Snippet.Title, nil
}

func mapPlaylistError(err error, playlistID string) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return err
}
