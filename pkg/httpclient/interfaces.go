package httpclient

import "context"

// Response is the part of an HTTP response the fetchers read.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client issues GET requests; tests substitute their own.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
