package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/samvad-hq/signed-book-watch/pkg/httpclient"
)

// NetworkError reports a failed page fetch.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PageFetcher downloads a page and decodes it as UTF-8 text.
type PageFetcher struct {
	client  httpclient.Client
	headers map[string]string
}

// NewPageFetcher builds a fetcher sending userAgent with every request.
func NewPageFetcher(client httpclient.Client, userAgent string) *PageFetcher {
	headers := map[string]string{}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		headers["User-Agent"] = ua
	}
	return &PageFetcher{client: client, headers: headers}
}

// Fetch performs one GET. Invalid UTF-8 sequences in the body are dropped.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.Get(ctx, url, f.headers)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}

	body := resp.Body()
	if resp.StatusCode() >= http.StatusBadRequest {
		return "", &NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("body: %s", responseSnippet(body)),
		}
	}

	return strings.ToValidUTF8(string(body), ""), nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(strings.ToValidUTF8(string(body), ""))
	if len(s) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
