package crawler

import "context"

// TagVisitor receives one start tag with its attributes.
type TagVisitor func(tag string, attrs map[string]string)

// TagScanner walks markup start tags in document order. Malformed markup is
// recovered from, not reported.
type TagScanner interface {
	Scan(markup string, visit TagVisitor) error
}

// PageSource retrieves the raw markup of a page.
type PageSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// TitleFilter turns raw title attributes into the final title list.
type TitleFilter interface {
	Apply(raw []string) []string
}
