// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tubeport/internal/models"
)

// MockService is a test double for [services.Service]
type MockService struct {
	NameValue   string
	AuthErr     error
	Credentials map[string]string
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	m.Credentials = credentials
	return m.AuthErr
}

func (m *MockService) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// MockExtractor is a test double for [services.Extractor]
type MockExtractor struct {
	Entries []models.RawEntry
	Err     error
	Refs    []string
}

func (m *MockExtractor) ExtractEntries(ctx context.Context, playlistRef string) ([]models.RawEntry, error) {
	m.Refs = append(m.Refs, playlistRef)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entries, nil
}

// SearchCall records one query made against a [MockSearcher].
type SearchCall struct {
	Artist string
	Title  string
}

// SearchKey builds the [MockSearcher.Results] key for a query.
func SearchKey(artist, title string) string {
	return artist + "|" + title
}

// MockSearcher is a test double for [services.Searcher]
//
// Fn takes precedence over Results when set. Calls records every query in order.
type MockSearcher struct {
	Results map[string]*models.ResolutionResult
	Fn      func(ctx context.Context, artist, title string) (*models.ResolutionResult, error)
	Err     error

	mu    sync.Mutex
	Calls []SearchCall
}

func (m *MockSearcher) Search(ctx context.Context, artist, title string) (*models.ResolutionResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, SearchCall{Artist: artist, Title: title})
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, artist, title)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[SearchKey(artist, title)], nil
}

// CreatedPlaylist records a [MockPublisher.CreatePlaylist] call.
type CreatedPlaylist struct {
	Name        string
	Description string
	Public      bool
}

// MockPublisher is a test double for [services.Publisher]
type MockPublisher struct {
	PlaylistID string
	CreateErr  error
	AddErr     error
	Created    []CreatedPlaylist
	Added      map[string][]string
}

func (m *MockPublisher) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.Created = append(m.Created, CreatedPlaylist{Name: name, Description: description, Public: public})
	if m.PlaylistID == "" {
		return "mock_playlist", nil
	}
	return m.PlaylistID, nil
}

func (m *MockPublisher) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	if m.Added == nil {
		m.Added = make(map[string][]string)
	}
	m.Added[playlistID] = append(m.Added[playlistID], uris...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// Ptr returns a pointer to v, for optional option fields.
func Ptr[T any](v T) *T {
	return &v
}
