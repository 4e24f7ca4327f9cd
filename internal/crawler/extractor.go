package crawler

import "strings"

// ProductPathPrefix marks anchors that link to a product page.
const ProductPathPrefix = "/products/"

// Extractor collects product link titles from search result markup.
type Extractor struct {
	scanner TagScanner
}

// NewExtractor builds an extractor on top of the given scanner (DOM scanner when nil).
func NewExtractor(scanner TagScanner) *Extractor {
	if scanner == nil {
		scanner = DocumentScanner{}
	}
	return &Extractor{scanner: scanner}
}

// Extract returns the raw title attribute of every product anchor, in
// document order, duplicates included.
func (e *Extractor) Extract(markup string) ([]string, error) {
	var titles []string
	err := e.scanner.Scan(markup, func(tag string, attrs map[string]string) {
		if tag != "a" {
			return
		}
		href := attrs["href"]
		title := attrs["title"]
		if href == "" || title == "" {
			return
		}
		if strings.HasPrefix(href, ProductPathPrefix) {
			titles = append(titles, title)
		}
	})
	if err != nil {
		return nil, err
	}
	return titles, nil
}
