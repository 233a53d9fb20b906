// Package singleton keeps concurrent autopunch processes from stepping on
// each other. It owns two kinds of filesystem markers under the config
// directory: the scheduler lock, which admits one long-running scheduler per
// machine, and per-day claim markers, which admit one clock-out per date.
package singleton

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	// LockFileName is the scheduler lock marker.
	LockFileName = "scheduler.lock"
	// ClaimDirName holds one claim marker per date.
	ClaimDirName = "claims"

	claimPrefix   = "claim-"
	dateKeyLayout = "2006-01-02"

	// DefaultRetentionDays is how many past claim markers PruneClaims keeps.
	DefaultRetentionDays = 7
)

var (
	// ErrLockContention is returned when a live process already holds the
	// scheduler lock.
	ErrLockContention = errors.New("scheduler lock is held by another process")
	// ErrNoLock is returned by LockOwner when no lock marker exists.
	ErrNoLock = errors.New("scheduler lock not held")
)

// Coordinator manages lock and claim markers in one directory.
type Coordinator struct {
	fs            afero.Fs
	dir           string
	pid           int
	alive         func(pid int) bool
	now           func() time.Time
	retentionDays int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFs overrides the filesystem, mainly for tests.
func WithFs(fsys afero.Fs) Option {
	return func(c *Coordinator) { c.fs = fsys }
}

// WithPID overrides the pid written into markers.
func WithPID(pid int) Option {
	return func(c *Coordinator) { c.pid = pid }
}

// WithLiveness replaces the process liveness probe.
func WithLiveness(alive func(pid int) bool) Option {
	return func(c *Coordinator) { c.alive = alive }
}

// WithRetentionDays sets how many days of claim markers PruneClaims keeps.
func WithRetentionDays(days int) Option {
	return func(c *Coordinator) {
		if days > 0 {
			c.retentionDays = days
		}
	}
}

// WithNow replaces the clock used for claim timestamps.
func WithNow(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New returns a Coordinator rooted at dir.
func New(dir string, opts ...Option) *Coordinator {
	c := &Coordinator{
		fs:            afero.NewOsFs(),
		dir:           dir,
		pid:           os.Getpid(),
		alive:         IsProcessAlive,
		now:           time.Now,
		retentionDays: DefaultRetentionDays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) lockPath() string {
	return filepath.Join(c.dir, LockFileName)
}

func (c *Coordinator) claimDir() string {
	return filepath.Join(c.dir, ClaimDirName)
}

// ClaimPath returns the marker path for a date key.
func (c *Coordinator) ClaimPath(dateKey string) string {
	return filepath.Join(c.claimDir(), claimPrefix+dateKey)
}

// Lock is a held scheduler lock.
type Lock struct {
	c    *Coordinator
	once sync.Once
	err  error
}

// AcquireSchedulerLock takes the scheduler lock. A marker naming a dead
// process, or one that cannot be parsed, is removed first.
func (c *Coordinator) AcquireSchedulerLock() (*Lock, error) {
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", c.dir, err)
	}
	pid, err := c.readLockPID()
	switch {
	case err == nil && pid == c.pid:
		// left behind by a previous incarnation with a recycled pid
		_ = c.fs.Remove(c.lockPath())
	case err == nil && c.alive(pid):
		return nil, fmt.Errorf("%w (pid %d)", ErrLockContention, pid)
	case errors.Is(err, fs.ErrNotExist):
	default:
		// stale or unreadable
		if rmErr := c.fs.Remove(c.lockPath()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", rmErr)
		}
	}

	f, err := c.fs.OpenFile(c.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrLockContention
		}
		return nil, fmt.Errorf("create lock: %w", err)
	}
	_, werr := f.WriteString(strconv.Itoa(c.pid))
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = c.fs.Remove(c.lockPath())
		return nil, fmt.Errorf("write lock: %w", werr)
	}
	return &Lock{c: c}, nil
}

// Release removes the lock marker if it still names this process. It is
// safe to call more than once and from multiple goroutines.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		pid, err := l.c.readLockPID()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				l.err = err
			}
			return
		}
		if pid != l.c.pid {
			return
		}
		if err := l.c.fs.Remove(l.c.lockPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.err = fmt.Errorf("remove lock: %w", err)
		}
	})
	return l.err
}

// LockOwner reports the pid recorded in the lock marker and whether that
// process is alive. ErrNoLock is returned when there is no marker.
func (c *Coordinator) LockOwner() (int, bool, error) {
	pid, err := c.readLockPID()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, ErrNoLock
		}
		return 0, false, err
	}
	return pid, c.alive(pid), nil
}

func (c *Coordinator) readLockPID() (int, error) {
	data, err := afero.ReadFile(c.fs, c.lockPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in lock: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid in lock: %d", pid)
	}
	return pid, nil
}

// ClaimDay atomically claims dateKey for this process. It returns false with
// a nil error when another process already claimed the date.
func (c *Coordinator) ClaimDay(dateKey string) (bool, error) {
	if _, err := time.Parse(dateKeyLayout, dateKey); err != nil {
		return false, fmt.Errorf("invalid date key %q: %w", dateKey, err)
	}
	if err := c.fs.MkdirAll(c.claimDir(), 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", c.claimDir(), err)
	}
	f, err := c.fs.OpenFile(c.ClaimPath(dateKey), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("claim %s: %w", dateKey, err)
	}
	defer f.Close()
	// The claim is won once the file exists; content is informational.
	_, _ = fmt.Fprintf(f, "%d\n%s\n", c.pid, c.now().Format(time.RFC3339))
	return true, nil
}

// IsClaimed reports whether a claim marker exists for dateKey.
func (c *Coordinator) IsClaimed(dateKey string) bool {
	_, err := c.fs.Stat(c.ClaimPath(dateKey))
	return err == nil
}

// PruneClaims removes claim markers dated more than the retention window
// before keep. Markers with unparseable names are left alone. It returns the
// removed date keys in ascending order.
func (c *Coordinator) PruneClaims(keep string) ([]string, error) {
	ref, err := time.Parse(dateKeyLayout, keep)
	if err != nil {
		return nil, fmt.Errorf("invalid date key %q: %w", keep, err)
	}
	cutoff := ref.AddDate(0, 0, -c.retentionDays)
	entries, err := afero.ReadDir(c.fs, c.claimDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var removed []string
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, claimPrefix) {
			continue
		}
		key := strings.TrimPrefix(name, claimPrefix)
		day, err := time.Parse(dateKeyLayout, key)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := c.fs.Remove(filepath.Join(c.claimDir(), name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, key)
	}
	sort.Strings(removed)
	return removed, errors.Join(errs...)
}
