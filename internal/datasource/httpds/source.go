package httpds

import (
	"context"
	"fmt"
	"io"

	"rxreport/internal/datasource"
)

// Source reads one extract from a URL.
type Source struct {
	client *Client
	url    string
}

// NewSource binds url to client.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// Name returns the URL.
func (s *Source) Name() string { return s.url }

// Open performs the GET and returns the body. Any status outside 2xx is an
// error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %s", s.url, resp.Status)
	}
	return resp.Body, nil
}

var _ datasource.Source = (*Source)(nil)
