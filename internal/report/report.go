// Package report renders change notifications for a title diff.
package report

import (
	"strings"
	"unicode"

	"github.com/samvad-hq/signed-book-watch/internal/domain"
)

const (
	multipleChangesTitle = "New signed book - multiple"
	addedTitlePrefix     = "New signed book - "
	removedTitlePrefix   = "Removed signed book - "
)

// markdownEscapes is applied in order; the backslash must come first.
var markdownEscapes = [][2]string{
	{`\`, `\\`},
	{`*`, `\*`},
	{`_`, `\_`},
	{"`", "\\`"},
	{`[`, `\[`},
	{`]`, `\]`},
}

// EscapeMarkdown backslash-escapes markdown control characters.
func EscapeMarkdown(text string) string {
	for _, r := range markdownEscapes {
		text = strings.ReplaceAll(text, r[0], r[1])
	}
	return text
}

// Body renders the issue body: optional Added and Removed sections followed
// by the full current list, with newly added titles in bold.
func Body(current, added, removed []string) string {
	var lines []string
	if len(added) > 0 {
		lines = append(lines, "Added:")
		for _, title := range added {
			lines = append(lines, "- **"+EscapeMarkdown(title)+"**")
		}
		lines = append(lines, "")
	}
	if len(removed) > 0 {
		lines = append(lines, "Removed:")
		for _, title := range removed {
			lines = append(lines, "- "+EscapeMarkdown(title))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "Current signed titles:")
	addedKeys := make(map[string]struct{}, len(added))
	for _, title := range added {
		addedKeys[domain.FoldKey(title)] = struct{}{}
	}
	for _, title := range current {
		safe := EscapeMarkdown(title)
		if _, ok := addedKeys[domain.FoldKey(title)]; ok {
			safe = "**" + safe + "**"
		}
		lines = append(lines, "- "+safe)
	}

	return strings.TrimRightFunc(strings.Join(lines, "\n"), unicode.IsSpace) + "\n"
}

// Title returns the issue title, and false when nothing changed and no issue
// is needed. One added and one removed title count as multiple changes.
func Title(added, removed []string) (string, bool) {
	switch total := len(added) + len(removed); {
	case total == 0:
		return "", false
	case total > 1:
		return multipleChangesTitle, true
	case len(added) == 1:
		return addedTitlePrefix + added[0], true
	default:
		return removedTitlePrefix + removed[0], true
	}
}
