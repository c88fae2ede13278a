package matching

import "testing"

func TestScore(t *testing.T) {
	t.Run("identical strings are a perfect match", func(t *testing.T) {
		pairs := [][2]string{
			{"The Beatles", "Hey Jude"},
			{"Adele", "Hello"},
			{"a", "b"},
			{"Sigur Rós", "Hoppípolla"},
		}
		for _, p := range pairs {
			if got := Score(p[0], p[1], p[0], p[1]); got != 1.0 {
				t.Errorf("Score(%q, %q) against itself = %v, want 1", p[0], p[1], got)
			}
		}
	})

	t.Run("case-insensitive", func(t *testing.T) {
		if got := Score("the beatles", "HEY JUDE", "The Beatles", "Hey Jude"); got != 1.0 {
			t.Errorf("expected 1, got %v", got)
		}
	})

	t.Run("missing original fields force zero", func(t *testing.T) {
		if got := Score("", "Hey Jude", "The Beatles", "Hey Jude"); got != 0 {
			t.Errorf("expected 0 for empty artist, got %v", got)
		}
		if got := Score("The Beatles", "", "The Beatles", "Hey Jude"); got != 0 {
			t.Errorf("expected 0 for empty title, got %v", got)
		}
		if got := Score("  ", "Hey Jude", "The Beatles", "Hey Jude"); got != 0 {
			t.Errorf("expected 0 for blank artist, got %v", got)
		}
	})

	t.Run("title weighs more than artist", func(t *testing.T) {
		wrongArtist := Score("Adele", "Hello", "Zzzzz", "Hello")
		wrongTitle := Score("Adele", "Hello", "Adele", "Zzzzz")
		if wrongArtist <= wrongTitle {
			t.Errorf("expected title match (%v) to outscore artist match (%v)", wrongArtist, wrongTitle)
		}
		if wrongArtist != 0.7 {
			t.Errorf("expected 0.7 for a title-only match, got %v", wrongArtist)
		}
	})

	t.Run("non-increasing with edit distance", func(t *testing.T) {
		candidates := []string{"Hello", "Hallo", "Hallx", "Haxlx", "Haxxx", "Zaxxx"}
		prev := 2.0
		for _, c := range candidates {
			got := Score("Adele", "Hello", "Adele", c)
			if got > prev {
				t.Errorf("score increased from %v to %v at %q", prev, got, c)
			}
			prev = got
		}

		prev = 2.0
		for _, c := range []string{"Adele", "Adelx", "Adxlx", "Zdxlx"} {
			got := Score("Adele", "Hello", c, "Hello")
			if got > prev {
				t.Errorf("score increased from %v to %v at %q", prev, got, c)
			}
			prev = got
		}
	})

	t.Run("always within bounds", func(t *testing.T) {
		for _, c := range [][2]string{{"", ""}, {"x", ""}, {"", "y"}, {"Something Long", "Entirely Different"}} {
			got := Score("Adele", "Hello", c[0], c[1])
			if got < 0 || got > 1 {
				t.Errorf("score %v out of range for %v", got, c)
			}
		}
	})
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"hello", "", 0},
		{"", "hello", 0},
		{"hello", "HELLO", 1},
		{"hello", "hallo", 0.8},
		{"abcd", "wxyz", 0},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAccept(t *testing.T) {
	tests := []struct {
		confidence float64
		threshold  float64
		want       bool
	}{
		{0.5, 0.5, true},
		{0.49999, 0.5, false},
		{1.0, 0.5, true},
		{0, 0.5, false},
		{0, 0, true},
		{0.8, 0.9, false},
	}

	for _, tt := range tests {
		if got := Accept(tt.confidence, tt.threshold); got != tt.want {
			t.Errorf("Accept(%v, %v) = %v, want %v", tt.confidence, tt.threshold, got, tt.want)
		}
	}

	if !Accept(0.5, DefaultThreshold) {
		t.Error("expected default threshold to accept 0.5")
	}
}
