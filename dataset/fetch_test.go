package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFetch tests downloading split files, and that existing files are not downloaded again.
func TestFetch(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/msra/train.tsv":
			_, _ = w.Write([]byte(sampleCorpus))
		case "/msra/test.tsv":
			_, _ = w.Write([]byte("上\tB-LOC\n海\tI-LOC\n。\tO\n\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "BIO")
	fetcher := &Fetcher{BaseURL: server.URL + "/msra", Dir: dir}
	paths, err := fetcher.Fetch(context.Background(), msraSplits)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "train.tsv"), filepath.Join(dir, "test.tsv")}, paths)
	assert.Equal(t, int32(2), requests.Load())
	assert.NoFileExists(t, filepath.Join(dir, "train.tsv.lock"))
	assert.NoFileExists(t, filepath.Join(dir, "train.tsv.downloading"))

	splits, err := LoadSplits(dir, msraSplits, Options{})
	require.NoError(t, err)
	assert.Len(t, splits[0].Sentences, 2)

	_, err = fetcher.Fetch(context.Background(), msraSplits)
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())

	fetcher.Force = true
	_, err = fetcher.Fetch(context.Background(), msraSplits[:1])
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
}

// TestFetchNotFound tests that a failed download leaves no partial file.
func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dir := t.TempDir()
	fetcher := &Fetcher{BaseURL: server.URL, Dir: dir}
	_, err := fetcher.Fetch(context.Background(), msraSplits)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "train.tsv"))
	assert.True(t, os.IsNotExist(statErr))
	assert.NoFileExists(t, filepath.Join(dir, "train.tsv.downloading"))

	_, err = (&Fetcher{Dir: dir}).Fetch(context.Background(), msraSplits)
	require.Error(t, err)
}
