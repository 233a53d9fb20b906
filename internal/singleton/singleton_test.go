package singleton

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func newTestCoordinator(fsys afero.Fs, pid int, alive map[int]bool) *Coordinator {
	return New("/cfg",
		WithFs(fsys),
		WithPID(pid),
		WithLiveness(func(p int) bool { return alive[p] }),
		WithNow(func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }),
	)
}

func TestClaimDay_Exclusive(t *testing.T) {
	fsys := afero.NewMemMapFs()
	a := newTestCoordinator(fsys, 100, nil)
	b := newTestCoordinator(fsys, 200, nil)

	won, err := a.ClaimDay("2024-06-03")
	if err != nil || !won {
		t.Fatalf("first claim = %v, %v; want true, nil", won, err)
	}
	won, err = b.ClaimDay("2024-06-03")
	if err != nil || won {
		t.Fatalf("second claim = %v, %v; want false, nil", won, err)
	}
	won, err = b.ClaimDay("2024-06-04")
	if err != nil || !won {
		t.Fatalf("next day claim = %v, %v; want true, nil", won, err)
	}

	data, err := afero.ReadFile(fsys, a.ClaimPath("2024-06-03"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "100\n2024-06-03T09:00:00Z\n"; string(data) != want {
		t.Errorf("claim content = %q, want %q", data, want)
	}
}

func TestClaimDay_ConcurrentSingleWinner(t *testing.T) {
	dir := t.TempDir()
	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			c := New(dir, WithPID(pid))
			won, err := c.ClaimDay("2024-06-03")
			if err != nil {
				t.Errorf("ClaimDay: %v", err)
				return
			}
			if won {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(1000 + i)
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
}

func TestClaimDay_InvalidKey(t *testing.T) {
	c := newTestCoordinator(afero.NewMemMapFs(), 1, nil)
	if _, err := c.ClaimDay("../etc"); err == nil {
		t.Fatal("expected error for invalid date key")
	}
}

func TestClaimDay_StorageError(t *testing.T) {
	c := newTestCoordinator(afero.NewReadOnlyFs(afero.NewMemMapFs()), 1, nil)
	won, err := c.ClaimDay("2024-06-03")
	if err == nil || won {
		t.Fatalf("got %v, %v; want false and an error", won, err)
	}
}

func TestAcquireSchedulerLock(t *testing.T) {
	fsys := afero.NewMemMapFs()
	alive := map[int]bool{100: true, 200: true}
	a := newTestCoordinator(fsys, 100, alive)
	b := newTestCoordinator(fsys, 200, alive)

	lock, err := a.AcquireSchedulerLock()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := b.AcquireSchedulerLock(); !errors.Is(err, ErrLockContention) {
		t.Fatalf("second acquire err = %v, want ErrLockContention", err)
	}

	pid, live, err := b.LockOwner()
	if err != nil || pid != 100 || !live {
		t.Fatalf("LockOwner = %d, %v, %v", pid, live, err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if _, _, err := b.LockOwner(); !errors.Is(err, ErrNoLock) {
		t.Fatalf("LockOwner after release err = %v, want ErrNoLock", err)
	}

	lockB, err := b.AcquireSchedulerLock()
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	defer lockB.Release()
}

func TestAcquireSchedulerLock_StaleRecovery(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/cfg", 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, filepath.Join("/cfg", LockFileName), []byte("4242"), 0644); err != nil {
		t.Fatal(err)
	}
	c := newTestCoordinator(fsys, 100, map[int]bool{100: true})
	lock, err := c.AcquireSchedulerLock()
	if err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}
	defer lock.Release()
	data, _ := afero.ReadFile(fsys, filepath.Join("/cfg", LockFileName))
	if string(data) != "100" {
		t.Errorf("lock content = %q, want 100", data)
	}
}

func TestAcquireSchedulerLock_Garbage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, filepath.Join("/cfg", LockFileName), []byte("not-a-pid"), 0644)
	c := newTestCoordinator(fsys, 100, nil)
	lock, err := c.AcquireSchedulerLock()
	if err != nil {
		t.Fatalf("acquire over garbage lock: %v", err)
	}
	lock.Release()
}

func TestRelease_LeavesForeignLock(t *testing.T) {
	fsys := afero.NewMemMapFs()
	c := newTestCoordinator(fsys, 100, nil)
	lock, err := c.AcquireSchedulerLock()
	if err != nil {
		t.Fatal(err)
	}
	// another process took over after ours was considered stale
	_ = afero.WriteFile(fsys, filepath.Join("/cfg", LockFileName), []byte("300"), 0644)
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(fsys, filepath.Join("/cfg", LockFileName)); !ok {
		t.Fatal("release removed a lock owned by another process")
	}
}

func TestPruneClaims(t *testing.T) {
	fsys := afero.NewMemMapFs()
	c := New("/cfg", WithFs(fsys), WithPID(1), WithRetentionDays(3))
	for _, key := range []string{"2024-05-28", "2024-05-30", "2024-05-31", "2024-06-01", "2024-06-03"} {
		if won, err := c.ClaimDay(key); err != nil || !won {
			t.Fatalf("claim %s: %v %v", key, won, err)
		}
	}
	_ = afero.WriteFile(fsys, filepath.Join("/cfg", ClaimDirName, "claim-garbage"), nil, 0644)

	removed, err := c.PruneClaims("2024-06-03")
	if err != nil {
		t.Fatalf("PruneClaims: %v", err)
	}
	want := []string{"2024-05-28", "2024-05-30"}
	if fmt.Sprint(removed) != fmt.Sprint(want) {
		t.Fatalf("removed = %v, want %v", removed, want)
	}
	for _, key := range []string{"2024-05-31", "2024-06-01", "2024-06-03"} {
		if !c.IsClaimed(key) {
			t.Errorf("claim %s should be kept", key)
		}
	}
	if ok, _ := afero.Exists(fsys, filepath.Join("/cfg", ClaimDirName, "claim-garbage")); !ok {
		t.Error("unparseable marker should be left alone")
	}
}

func TestPruneClaims_NoDir(t *testing.T) {
	c := New("/cfg", WithFs(afero.NewMemMapFs()))
	removed, err := c.PruneClaims("2024-06-03")
	if err != nil || len(removed) != 0 {
		t.Fatalf("got %v, %v", removed, err)
	}
}

func TestIsProcessAlive_Self(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Fatal("current process should be alive")
	}
	if IsProcessAlive(0) || IsProcessAlive(-1) {
		t.Fatal("non-positive pids are never alive")
	}
}
