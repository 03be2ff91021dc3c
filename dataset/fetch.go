package dataset

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerkit/biospans/internal/downloader"
	"github.com/nerkit/biospans/internal/files"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Fetcher downloads missing split files of a dataset published under BaseURL.
type Fetcher struct {
	// BaseURL is the location of the split files: file names are appended to it.
	BaseURL string

	// Dir where to save the files.
	Dir string

	// Force download even if the files already exist.
	Force bool

	// MaxParallel downloads.
	MaxParallel int

	// AuthToken, if set, is sent as a bearer token.
	AuthToken string

	downloadManager *downloader.Manager
}

// getDownloadManager returns current downloader.Manager, or creates a new one for this Fetcher.
func (f *Fetcher) getDownloadManager() *downloader.Manager {
	if f.downloadManager == nil {
		f.downloadManager = downloader.New().MaxParallel(f.MaxParallel).WithAuthToken(f.AuthToken)
	}
	return f.downloadManager
}

// Fetch downloads the split files into Dir, and returns their local paths.
// Files already present are not downloaded again, unless Force is set.
// Splits are downloaded concurrently, up to MaxParallel at a time.
func (f *Fetcher) Fetch(ctx context.Context, splits []SplitFile) ([]string, error) {
	if f.BaseURL == "" {
		return nil, errors.New("no base URL to fetch the dataset from")
	}
	paths := SplitPaths(f.Dir, splits)
	urls := make([]string, len(splits))
	for ii, split := range splits {
		fileURL, err := url.JoinPath(f.BaseURL, split.File)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid base URL %q", f.BaseURL)
		}
		urls[ii] = fileURL
	}

	manager := f.getDownloadManager()
	errs := make([]error, len(splits))
	var wg sync.WaitGroup
	for ii, split := range splits {
		wg.Go(func() {
			progress := func(downloaded, total int64) {
				klog.V(2).Infof("%s: %d of %d bytes", split.File, downloaded, total)
			}
			errs[ii] = f.lockedDownload(ctx, manager, urls[ii], paths[ii], progress)
			if errs[ii] == nil {
				klog.Infof("split %q available at %s", split.Name, paths[ii])
			}
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// lockedDownload url to the given filePath.
//
// If filePath exits and Force is false, it is assumed to already have been correctly downloaded, and it will return immediately.
//
// It downloads the file to filePath+".downloading" and then atomically move it to filePath.
//
// It uses a temporary filePath+".lock" to coordinate multiple processes trying to download the same file at the same time.
func (f *Fetcher) lockedDownload(ctx context.Context, manager *downloader.Manager, url, filePath string,
	progressCallback downloader.ProgressCallback) error {
	if files.Exists(filePath) {
		if !f.Force {
			return nil
		}
		err := os.Remove(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to remove %q while force-downloading %q", filePath, url)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}

	lockPath := filePath + ".lock"
	errLock := files.ExecOnFileLock(lockPath, func() error {
		if files.Exists(filePath) {
			// Some concurrent other process already downloaded the file.
			return nil
		}

		tmpPath := filePath + ".downloading"
		err := manager.Download(ctx, url, tmpPath, progressCallback)
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
				klog.Warningf("Failed removing temporary file %q: %v", tmpPath, removeErr)
			}
			return errors.WithMessagef(err, "while downloading %q to %q", url, tmpPath)
		}
		if err := os.Rename(tmpPath, filePath); err != nil {
			return errors.Wrapf(err, "failed to move downloaded file %q to %q", tmpPath, filePath)
		}

		// File already exists, so we no longer need the lock file.
		if err := os.Remove(lockPath); err != nil {
			klog.Warningf("error removing lock file %q: %+v", lockPath, err)
		}
		return nil
	})
	if errLock != nil {
		return errors.WithMessagef(errLock, "while locking %q to download %q", lockPath, url)
	}
	return nil
}
