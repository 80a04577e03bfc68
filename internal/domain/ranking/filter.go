package ranking

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/okian/arcadeboard/internal/domain/model"
)

// Filter returns the subsequence of ranked whose name contains query as a
// case-insensitive substring. query is trimmed first; an empty query returns
// ranked itself. Relative order is preserved, so the result stays sorted by
// score.
func Filter(ranked []model.Participant, query string) []model.Participant {
	q := strings.TrimSpace(query)
	if q == "" {
		return ranked
	}

	// A Caser is stateful; one per call keeps Filter safe for concurrent use.
	lower := cases.Lower(language.Und)
	q = lower.String(q)

	out := make([]model.Participant, 0, len(ranked))
	for _, p := range ranked {
		if strings.Contains(lower.String(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}
