// Package files implements generic file tools missing from the standard library.
package files

import (
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Exists returns true if file or directory exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReplaceTildeInDir replaces a "~" prefix in dir by the current user's home directory.
func ReplaceTildeInDir(dir string) (string, error) {
	if len(dir) == 0 || dir[0] != '~' {
		return dir, nil
	}
	var userName string
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		sepIdx := strings.IndexRune(dir, '/')
		if sepIdx == -1 {
			userName = dir[1:]
		} else {
			userName = dir[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return dir, errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	homeDir := usr.HomeDir
	return path.Join(homeDir, dir[1+len(userName):]), nil
}

// Missing returns the paths that don't exist, in the order given.
func Missing(paths ...string) []string {
	var missing []string
	for _, p := range paths {
		if !Exists(p) {
			missing = append(missing, p)
		}
	}
	return missing
}
