package matching

import (
	"regexp"
	"strings"

	"github.com/desertthunder/tubeport/internal/models"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketPattern = regexp.MustCompile(`\[.*?\]`)
	parenPattern   = regexp.MustCompile(`\(.*?\)`)
	featPattern    = regexp.MustCompile(`(?im)\b(?:feat\.|ft\.|featuring)\s+.*$`)
)

// rule is one separator pattern in the parse table.
type rule struct {
	name    string
	pattern *regexp.Regexp
	extract func(groups []string) models.ParsedIdentity
}

func leftArtist(groups []string) models.ParsedIdentity {
	return models.ParsedIdentity{Artist: trimPart(groups[1]), Title: trimPart(groups[2])}
}

func rightArtist(groups []string) models.ParsedIdentity {
	return models.ParsedIdentity{Artist: trimPart(groups[2]), Title: trimPart(groups[1])}
}

var rules = []rule{
	{name: "hyphen", pattern: regexp.MustCompile(`^(.+?)\s*[-\x{2013}\x{2014}]\s*(.+)$`), extract: leftArtist},
	{name: "colon", pattern: regexp.MustCompile(`^(.+?)\s*:\s*(.+)$`), extract: leftArtist},
	{name: "by", pattern: regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`), extract: rightArtist},
	{name: "pipe", pattern: regexp.MustCompile(`^(.+?)\s*\|\s*(.+)$`), extract: leftArtist},
	{name: "quoted", pattern: regexp.MustCompile(`^(.+?)\s*["\x{201C}](.+?)["\x{201D}]$`), extract: leftArtist},
}

// RuleNames lists the parse rules in priority order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

// Clean removes decoration from a label and collapses whitespace.
func Clean(label string) string {
	s := norm.NFC.String(label)
	s = bracketPattern.ReplaceAllString(s, " ")
	s = parenPattern.ReplaceAllString(s, " ")
	s = featPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Parse cleans a label and splits it into an identity.
func Parse(label string) models.ParsedIdentity {
	identity, _ := ParseWithRule(label)
	return identity
}

// ParseWithRule is [Parse] that also reports which rule matched, or "" for the title-only fallback.
//
// A label made up entirely of decoration, like "[Official Video]", keeps its trimmed text as the title.
func ParseWithRule(label string) (models.ParsedIdentity, string) {
	cleaned := Clean(label)
	if cleaned == "" {
		return models.ParsedIdentity{Title: strings.Join(strings.Fields(norm.NFC.String(label)), " ")}, ""
	}

	for _, r := range rules {
		groups := r.pattern.FindStringSubmatch(cleaned)
		if groups == nil {
			continue
		}
		identity := r.extract(groups)
		if identity.Artist == "" || identity.Title == "" {
			continue
		}
		return identity, r.name
	}

	return models.ParsedIdentity{Title: cleaned}, ""
}

func trimPart(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"“”"))
}
