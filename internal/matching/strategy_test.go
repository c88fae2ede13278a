package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/tubeport/internal/models"
)

type searchCall struct {
	artist string
	title  string
}

// recordingSearch returns hits for queries accepted by match and records every call.
func recordingSearch(calls *[]searchCall, match func(artist, title string) bool) SearchFunc {
	return func(_ context.Context, artist, title string) (*models.ResolutionResult, error) {
		*calls = append(*calls, searchCall{artist, title})
		if match != nil && match(artist, title) {
			return &models.ResolutionResult{MatchedArtist: artist, MatchedTitle: title, ExternalID: "spotify:track:" + title}, nil
		}
		return nil, nil
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	always := func(string, string) bool { return true }

	tests := []struct {
		name         string
		identity     models.ParsedIdentity
		publisher    string
		match        func(artist, title string) bool
		wantCalls    []searchCall
		wantStrategy string
	}{
		{
			name:         "parsed identity first",
			identity:     models.ParsedIdentity{Artist: "The Beatles", Title: "Hey Jude"},
			publisher:    "The Beatles - Topic",
			match:        always,
			wantCalls:    []searchCall{{"The Beatles", "Hey Jude"}},
			wantStrategy: "parsed",
		},
		{
			name:         "falls back to cleaned publisher",
			identity:     models.ParsedIdentity{Artist: "Someone", Title: "Hello"},
			publisher:    "Adele VEVO",
			match:        func(artist, _ string) bool { return artist == "Adele" },
			wantCalls:    []searchCall{{"Someone", "Hello"}, {"Adele", "Hello"}},
			wantStrategy: "publisher",
		},
		{
			name:         "publisher equal to artist is skipped",
			identity:     models.ParsedIdentity{Artist: "Adele", Title: "Hello"},
			publisher:    "adele",
			match:        func(artist, _ string) bool { return artist == "" },
			wantCalls:    []searchCall{{"Adele", "Hello"}, {"", "Hello"}},
			wantStrategy: "title",
		},
		{
			name:      "duplicate queries are not repeated",
			identity:  models.ParsedIdentity{Artist: "Adele", Title: "Hello"},
			publisher: "Adele VEVO",
			wantCalls: []searchCall{{"Adele", "Hello"}, {"", "Hello"}},
		},
		{
			name:         "title only without artist or publisher",
			identity:     models.ParsedIdentity{Title: "Hello"},
			match:        always,
			wantCalls:    []searchCall{{"", "Hello"}},
			wantStrategy: "title",
		},
		{
			name:      "publisher used when artist is empty",
			identity:  models.ParsedIdentity{Title: "Hello"},
			publisher: "Adele Official",
			wantCalls: []searchCall{{"Adele", "Hello"}, {"", "Hello"}},
		},
		{
			name:      "empty identity makes no calls",
			identity:  models.ParsedIdentity{},
			publisher: "Adele",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []searchCall
			result, err := Resolve(ctx, tt.identity, tt.publisher, recordingSearch(&calls, tt.match))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("expected %d calls %v, got %d %v", len(tt.wantCalls), tt.wantCalls, len(calls), calls)
			}
			for i := range calls {
				if calls[i] != tt.wantCalls[i] {
					t.Errorf("call %d: expected %+v, got %+v", i, tt.wantCalls[i], calls[i])
				}
			}

			if tt.wantStrategy == "" {
				if result != nil {
					t.Errorf("expected no result, got %+v", result)
				}
				return
			}
			if result == nil {
				t.Fatal("expected a result")
			}
			if result.Strategy != tt.wantStrategy {
				t.Errorf("expected strategy %q, got %q", tt.wantStrategy, result.Strategy)
			}
		})
	}

	t.Run("search error stops resolution", func(t *testing.T) {
		boom := errors.New("transport failure")
		calls := 0
		search := func(context.Context, string, string) (*models.ResolutionResult, error) {
			calls++
			return nil, boom
		}

		result, err := Resolve(ctx, models.ParsedIdentity{Artist: "A", Title: "T"}, "P", search)
		if !errors.Is(err, boom) {
			t.Errorf("expected transport error, got %v", err)
		}
		if result != nil {
			t.Error("expected no result on error")
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		var calls []searchCall
		_, err := Resolve(cctx, models.ParsedIdentity{Artist: "A", Title: "T"}, "", recordingSearch(&calls, always))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(calls) != 0 {
			t.Errorf("expected no calls, got %d", len(calls))
		}
	})

	t.Run("does not mutate the search result", func(t *testing.T) {
		shared := &models.ResolutionResult{ExternalID: "spotify:track:1"}
		search := func(context.Context, string, string) (*models.ResolutionResult, error) { return shared, nil }

		result, err := Resolve(ctx, models.ParsedIdentity{Title: "T"}, "", search)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == shared || shared.Strategy != "" {
			t.Error("expected Resolve to return a copy")
		}
	})
}

func TestAttemptNames(t *testing.T) {
	got := AttemptNames()
	want := []string{"parsed", "publisher", "title"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
