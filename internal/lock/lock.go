// Package lock enforces the single-instance guarantee with a pid file in
// the data directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "log/slog"
)

const fileName = "milo.lock"

// ErrAlreadyLocked means another daemon instance holds the lock.
var ErrAlreadyLocked = errors.New("lock: already held")

// Lock is a held instance lock. Release removes the file on clean exit; a
// crashed process leaves it behind and the next start reports the stale
// pid so the user can remove it.
type Lock struct {
	path string
}

// Acquire creates the lock file exclusively and writes the current pid
// into it.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, fileName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			pid := "unknown"
			if data, rerr := os.ReadFile(path); rerr == nil {
				pid = string(data)
			}
			return nil, fmt.Errorf("%w (pid %s, file %s)", ErrAlreadyLocked, pid, path)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove lock file", "path", l.path, "err", err)
	}
}
