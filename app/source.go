package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ComponentSource loads markup for a URL.
type ComponentSource interface {
	Load(ctx context.Context, url string) (string, error)
}

type SourceFunc func(ctx context.Context, url string) (string, error)

func (f SourceFunc) Load(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// HTTPSource fetches markup over HTTP and keeps recent results in an LRU.
type HTTPSource struct {
	client *http.Client
	cache  *lru.Cache[string, string]
}

func NewHTTPSource(client *http.Client, size int) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		cache, _ = lru.New[string, string](DefaultComponentCacheSize)
	}
	return &HTTPSource{client: client, cache: cache}
}

func (s *HTTPSource) Load(ctx context.Context, url string) (string, error) {
	if markup, ok := s.cache.Get(url); ok {
		return markup, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building component request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("loading component %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("loading component %s: %s", url, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading component %s: %w", url, err)
	}
	markup := string(b)
	s.cache.Add(url, markup)
	return markup, nil
}

func (s *HTTPSource) Cached(url string) bool {
	return s.cache.Contains(url)
}
