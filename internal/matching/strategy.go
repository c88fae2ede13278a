package matching

import (
	"context"
	"strings"

	"github.com/desertthunder/tubeport/internal/models"
)

// SearchFunc queries the destination catalog. It returns nil without an error when nothing matched.
type SearchFunc func(ctx context.Context, artist, title string) (*models.ResolutionResult, error)

// attempt builds the (artist, title) query for one resolution step, or reports that the step does not apply.
type attempt struct {
	name  string
	query func(identity models.ParsedIdentity, publisher string) (artist, title string, ok bool)
}

var attempts = []attempt{
	{name: "parsed", query: parsedQuery},
	{name: "publisher", query: publisherQuery},
	{name: "title", query: titleQuery},
}

func parsedQuery(identity models.ParsedIdentity, _ string) (string, string, bool) {
	if identity.Artist == "" || identity.Title == "" {
		return "", "", false
	}
	return identity.Artist, identity.Title, true
}

func publisherQuery(identity models.ParsedIdentity, publisher string) (string, string, bool) {
	publisher = strings.TrimSpace(publisher)
	if publisher == "" || identity.Title == "" || strings.EqualFold(publisher, identity.Artist) {
		return "", "", false
	}

	artist := CleanChannel(publisher)
	if artist == "" {
		return "", "", false
	}
	return artist, identity.Title, true
}

func titleQuery(identity models.ParsedIdentity, _ string) (string, string, bool) {
	if identity.Title == "" {
		return "", "", false
	}
	return "", identity.Title, true
}

// AttemptNames lists the resolution steps in the order they are tried.
func AttemptNames() []string {
	names := make([]string, len(attempts))
	for i, a := range attempts {
		names[i] = a.name
	}
	return names
}

// Resolve runs the ordered search attempts for an identity and returns the first hit.
//
// A query identical to an earlier one is not repeated. A search error stops resolution and is returned
// as is. When no attempt finds anything Resolve returns nil and no error.
func Resolve(ctx context.Context, identity models.ParsedIdentity, publisher string, search SearchFunc) (*models.ResolutionResult, error) {
	type key struct{ artist, title string }
	tried := make(map[key]bool, len(attempts))

	for _, a := range attempts {
		artist, title, ok := a.query(identity, publisher)
		if !ok {
			continue
		}

		k := key{strings.ToLower(artist), strings.ToLower(title)}
		if tried[k] {
			continue
		}
		tried[k] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := search(ctx, artist, title)
		if err != nil {
			return nil, err
		}
		if result != nil {
			hit := *result
			hit.Strategy = a.name
			return &hit, nil
		}
	}

	return nil, nil
}
