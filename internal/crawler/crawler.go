package crawler

import (
	"context"
	"fmt"

	"github.com/samvad-hq/signed-book-watch/internal/logger"
)

// Service runs the fetch, extract and filter stages for one page.
type Service struct {
	source    PageSource
	extractor *Extractor
	filter    TitleFilter
	log       logger.Logger
}

// NewService wires the crawl stages together.
func NewService(source PageSource, extractor *Extractor, filter TitleFilter, log logger.Logger) *Service {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	return &Service{
		source:    source,
		extractor: extractor,
		filter:    filter,
		log:       logger.Ensure(log),
	}
}

// Collect fetches url and returns its normalized signed titles.
func (s *Service) Collect(ctx context.Context, url string) ([]string, error) {
	if s == nil || s.source == nil || s.filter == nil {
		return nil, fmt.Errorf("crawler service is not initialized")
	}

	markup, err := s.source.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	raw, err := s.extractor.Extract(markup)
	if err != nil {
		return nil, fmt.Errorf("extract titles: %w", err)
	}

	titles := s.filter.Apply(raw)
	s.log.InfoObj("page crawl completed", "crawl_result", map[string]any{
		"url":           url,
		"markup_bytes":  len(markup),
		"product_links": len(raw),
		"signed_titles": len(titles),
	})
	return titles, nil
}
