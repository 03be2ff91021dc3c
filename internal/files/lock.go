package files

import (
	"math/rand"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ExecOnFileLock opens the lockPath file (or creates if it doesn't yet exist), locks it, and executes the function.
// If the lockPath is already locked, it polls with a 1 to 2 seconds period (randomly), until it acquires the lock.
//
// The lockPath is not removed. It's safe to remove it from the given fn, if one knows that no new calls to
// ExecOnFileLock with the same lockPath is going to be made.
func ExecOnFileLock(lockPath string, fn func() error) (err error) {
	fileLock := flock.New(lockPath)
	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "while trying to lock %q", lockPath)
		}
		if locked {
			break
		}
		klog.V(1).Infof("waiting for lock %q", lockPath)
		time.Sleep(time.Millisecond * time.Duration(1000+rand.Intn(1000)))
	}

	// Unlock even if fn panics.
	defer func() {
		unlockErr := fileLock.Unlock()
		if unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
			} else {
				klog.Errorf("Error unlocking file %q: %v", lockPath, unlockErr)
			}
		}
	}()

	return fn()
}
