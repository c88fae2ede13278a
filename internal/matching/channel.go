package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// channelSuffixes are trailing tokens that decorate a channel name without naming the artist.
var channelSuffixes = []string{
	"Official", "OFFICIAL",
	"Records", "RECORDS",
	"Music", "MUSIC",
	"Channel", "CHANNEL",
	"TV",
	"VEVO", "vevo",
}

// CleanChannel derives an artist name from a channel name by removing trailing decoration.
//
// A suffix that stands as its own word is removed first. A suffix glued to the previous word is only
// removed when that word does not end in an upper-case letter or digit, so "ATV" survives while
// "AdeleVEVO" becomes "Adele". Removal repeats until nothing changes.
func CleanChannel(publisher string) string {
	name := strings.TrimSpace(publisher)
	for {
		next := stripChannelSuffix(name)
		if next == name {
			return name
		}
		name = next
	}
}

func stripChannelSuffix(name string) string {
	for _, suffix := range channelSuffixes {
		rest, ok := cutSuffix(name, suffix)
		if !ok {
			continue
		}
		if r, _ := utf8.DecodeLastRuneInString(rest); unicode.IsSpace(r) {
			return trimSeparators(rest)
		}
	}

	for _, suffix := range channelSuffixes {
		rest, ok := cutSuffix(name, suffix)
		if !ok {
			continue
		}
		r, _ := utf8.DecodeLastRuneInString(rest)
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			continue
		}
		return trimSeparators(rest)
	}

	return name
}

// cutSuffix is [strings.CutSuffix] that refuses to consume the whole name.
func cutSuffix(name, suffix string) (string, bool) {
	rest, ok := strings.CutSuffix(name, suffix)
	if !ok || strings.TrimSpace(rest) == "" {
		return name, false
	}
	return rest, true
}

func trimSeparators(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '|' || r == ':' || r == '·'
	})
}
