// Package normalize turns raw title attributes into the canonical signed title list.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/samvad-hq/signed-book-watch/internal/domain"
	"golang.org/x/net/html"
)

// DefaultKeyword identifies a signed listing worth tracking.
const DefaultKeyword = "Elantris"

var defaultWhitespace = regexp.MustCompile(`[\s\v\x1c-\x1f\x{85}\p{Z}]+`)

// isSpace matches the same set as defaultWhitespace.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || (r >= 0x1c && r <= 0x1f)
}

// Options configures a Filter. Zero values fall back to DefaultKeyword and
// Unicode-aware whitespace collapsing.
type Options struct {
	Pattern    *regexp.Regexp
	Whitespace *regexp.Regexp
}

// Filter normalizes, filters, dedupes and sorts candidate titles.
type Filter struct {
	pattern    *regexp.Regexp
	whitespace *regexp.Regexp
}

// KeywordPattern matches keyword as a whole word, ignoring case. Any Unicode
// letter, digit or underscore next to the keyword makes it part of a longer word.
func KeywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(keyword) + `(?:[^\p{L}\p{N}_]|$)`)
}

// New builds a Filter from opts.
func New(opts Options) *Filter {
	f := &Filter{pattern: opts.Pattern, whitespace: opts.Whitespace}
	if f.pattern == nil {
		f.pattern = KeywordPattern(DefaultKeyword)
	}
	if f.whitespace == nil {
		f.whitespace = defaultWhitespace
	}
	return f
}

// Title decodes entities and collapses whitespace in a single candidate.
func (f *Filter) Title(raw string) string {
	text := html.UnescapeString(raw)
	return strings.TrimFunc(f.whitespace.ReplaceAllString(text, " "), isSpace)
}

// Matches reports whether a normalized title carries the signed-item keyword.
func (f *Filter) Matches(title string) bool {
	return f.pattern.MatchString(title)
}

// Apply returns the unique matching titles, sorted case-insensitively.
// The first spelling seen for a folded key is the one kept.
func (f *Filter) Apply(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	titles := make([]string, 0, len(raw))

	for _, candidate := range raw {
		title := f.Title(candidate)
		if title == "" || !f.Matches(title) {
			continue
		}
		key := domain.FoldKey(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, title)
	}

	SortFold(titles)
	return titles
}

// SortFold sorts titles in place by their case-folded form, keeping the
// relative order of equal keys.
func SortFold(titles []string) {
	keys := make(map[string]string, len(titles))
	for _, t := range titles {
		keys[t] = domain.FoldKey(t)
	}
	sort.SliceStable(titles, func(i, j int) bool {
		return keys[titles[i]] < keys[titles[j]]
	})
}
