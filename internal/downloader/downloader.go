// Package downloader implements download in parallel of various URLs, with various progress report callbacks.
package downloader

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

// ProgressCallback is called as a download progresses. totalBytes is -1 if unknown.
type ProgressCallback func(downloadedBytes, totalBytes int64)

// Manager handles downloads, limiting the number of simultaneous ones.
type Manager struct {
	client    *http.Client
	semaphore chan struct{}
	authToken string
	userAgent string
}

// New creates a Manager with at most 20 parallel downloads.
func New() *Manager {
	return &Manager{
		client:    &http.Client{},
		semaphore: make(chan struct{}, 20),
		userAgent: "biospans",
	}
}

// MaxParallel sets the maximum number of simultaneous downloads. Values <= 0 are ignored.
// It returns itself, so calls can be chained.
func (m *Manager) MaxParallel(n int) *Manager {
	if n > 0 {
		m.semaphore = make(chan struct{}, n)
	}
	return m
}

// WithAuthToken sets a bearer token sent with every request. Empty means no authentication.
func (m *Manager) WithAuthToken(token string) *Manager {
	m.authToken = token
	return m
}

// WithClient sets the HTTP client used for the requests.
func (m *Manager) WithClient(client *http.Client) *Manager {
	m.client = client
	return m
}

// Download url to filePath, truncating it if it exists.
// It blocks until the download finishes, fails, or ctx is cancelled.
func (m *Manager) Download(ctx context.Context, url, filePath string, progressCallback ProgressCallback) error {
	select {
	case m.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.semaphore }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "creating request for %q", url)
	}
	req.Header.Set("User-Agent", m.userAgent)
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "requesting %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("bad status downloading %q: %s", url, resp.Status)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", filePath)
	}
	var src io.Reader = resp.Body
	if progressCallback != nil {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, callback: progressCallback}
	}
	if _, err = io.Copy(f, src); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "closing %q", filePath)
	}
	return nil
}

type progressReader struct {
	r          io.Reader
	downloaded int64
	total      int64
	callback   ProgressCallback
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.downloaded += int64(n)
		p.callback(p.downloaded, p.total)
	}
	return n, err
}
