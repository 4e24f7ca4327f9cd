// Package diff compares two title lists by case-folded identity.
package diff

import (
	"github.com/samvad-hq/signed-book-watch/internal/domain"
	"github.com/samvad-hq/signed-book-watch/internal/normalize"
)

// Result holds the titles that appeared and disappeared between two lists.
type Result struct {
	Added   []string
	Removed []string
}

// Changed reports whether any title was added or removed.
func (r Result) Changed() bool {
	return len(r.Added)+len(r.Removed) > 0
}

// Compute returns the titles of current missing from previous (Added) and of
// previous missing from current (Removed). Membership ignores case; each side
// keeps its own spelling and is sorted case-insensitively.
func Compute(previous, current []string) Result {
	return Result{
		Added:   missingFrom(current, keySet(previous)),
		Removed: missingFrom(previous, keySet(current)),
	}
}

func keySet(titles []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		keys[domain.FoldKey(t)] = struct{}{}
	}
	return keys
}

func missingFrom(titles []string, keys map[string]struct{}) []string {
	out := make([]string, 0)
	for _, t := range titles {
		if _, ok := keys[domain.FoldKey(t)]; !ok {
			out = append(out, t)
		}
	}
	normalize.SortFold(out)
	return out
}
