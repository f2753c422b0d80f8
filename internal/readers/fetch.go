package readers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Resource is a fetched source document. The caller closes Body.
type Resource struct {
	Body        io.ReadCloser
	ContentType string
}

// MediaType returns the content type without parameters, lower cased.
func (r *Resource) MediaType() string {
	if r.ContentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(r.ContentType))
	}
	return mediaType
}

type Fetcher interface {
	Fetch(ctx context.Context, link string) (*Resource, error)
}

const (
	defaultFetchAttempts = 3
	initialRetryDelay    = 1 * time.Second
	maxRetryDelay        = 30 * time.Second
	retryBackoffFactor   = 2
)

// HTTPFetcher downloads http(s) links. Rate limited and 5xx responses are
// retried with exponential backoff.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	attempts   int
	retryDelay time.Duration
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		attempts:   defaultFetchAttempts,
		retryDelay: initialRetryDelay,
	}
}

// WithRetry sets the number of attempts per link and the first backoff delay.
func (f *HTTPFetcher) WithRetry(attempts int, delay time.Duration) *HTTPFetcher {
	if attempts < 1 {
		attempts = 1
	}
	f.attempts = attempts
	f.retryDelay = delay
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, link string) (*Resource, error) {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, newReaderError(link, "request cancelled", ctx.Err())
			case <-time.After(f.backoff(attempt)):
			}
		}

		res, retry, err := f.fetch(ctx, link)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetch(ctx context.Context, link string) (*Resource, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, false, newReaderError(link, "invalid link", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, newReaderError(link, "request failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return &Resource{Body: resp.Body, ContentType: resp.Header.Get("Content-Type")}, false, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, false, newReaderError(link, "resource not found", ErrResourceNotFound)
	default:
		resp.Body.Close()
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, newReaderError(link, fmt.Sprintf("response status is not OK: %d", resp.StatusCode), nil)
	}
}

func (f *HTTPFetcher) backoff(attempt int) time.Duration {
	delay := f.retryDelay
	for i := 1; i < attempt; i++ {
		delay *= retryBackoffFactor
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

var fileContentTypes = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
	".xml":  "application/xml",
	".rss":  "application/rss+xml",
	".atom": "application/atom+xml",
}

// FileFetcher reads file:// links from the local filesystem.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, link string) (*Resource, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, newReaderError(link, "invalid link", err)
	}
	path := u.Path
	if u.Host != "" && u.Host != "localhost" {
		path = filepath.Join(u.Host, u.Path)
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, newReaderError(link, "resource not found", ErrResourceNotFound)
	}
	if err != nil {
		return nil, newReaderError(link, "failed to open file", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := fileContentTypes[ext]
	if !ok {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Resource{Body: file, ContentType: contentType}, nil
}

// MultiFetcher dispatches links to a fetcher registered for their scheme.
type MultiFetcher struct {
	fetchers map[string]Fetcher
}

func NewMultiFetcher() *MultiFetcher {
	return &MultiFetcher{fetchers: make(map[string]Fetcher)}
}

// Register binds a fetcher to one or more URL schemes.
func (m *MultiFetcher) Register(fetcher Fetcher, schemes ...string) *MultiFetcher {
	for _, scheme := range schemes {
		m.fetchers[strings.ToLower(scheme)] = fetcher
	}
	return m
}

func (m *MultiFetcher) Fetch(ctx context.Context, link string) (*Resource, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, newReaderError(link, "invalid link", err)
	}
	fetcher, ok := m.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, newReaderError(link, fmt.Sprintf("unsupported link scheme %q", u.Scheme), nil)
	}
	return fetcher.Fetch(ctx, link)
}
