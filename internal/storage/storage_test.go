package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rewired-gh/contest-countdown/internal/models"
)

func testContests() []models.Contest {
	return []models.Contest{
		{ID: 1901, Name: "Round 912", Phase: models.PhaseBefore, StartTimeSeconds: 1701700500, Participating: models.BoolPtr(true)},
		{ID: 1902, Name: "Round 913", Phase: models.PhaseBefore, StartTimeSeconds: 1701800500, Participating: models.BoolPtr(false)},
	}
}

func assertContestsEqual(t *testing.T, want, got []models.Contest) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d contests, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("Position %d: expected ID %d, got %d", i, want[i].ID, got[i].ID)
		}
		if got[i].Name != want[i].Name {
			t.Errorf("Position %d: expected name %q, got %q", i, want[i].Name, got[i].Name)
		}
		if got[i].StartTimeSeconds != want[i].StartTimeSeconds {
			t.Errorf("Position %d: expected start %d, got %d", i, want[i].StartTimeSeconds, got[i].StartTimeSeconds)
		}
		if got[i].IsParticipating() != want[i].IsParticipating() {
			t.Errorf("Position %d: expected participating %v, got %v", i, want[i].IsParticipating(), got[i].IsParticipating())
		}
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	s := NewFileStore(path)
	if err := s.Save(testContests()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temp file to be renamed away, stat err: %v", err)
	}

	s2 := NewFileStore(path)
	loaded, err := s2.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertContestsEqual(t, testContests(), loaded)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), FileName))

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty set, got %d contests", len(loaded))
	}
}

func TestFileStore_LoadRemovesStaleTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path+".tmp", []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected stale temp file to be removed")
	}
}

func TestFileStore_LoadCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("Expected error for corrupted file")
	}
}

func TestFileStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	// Parent "directory" is a regular file, so MkdirAll must fail
	s := NewFileStore(filepath.Join(blocker, FileName))
	if err := s.Save(testContests()); err == nil {
		t.Error("Expected error when cache directory cannot be created")
	}
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load on empty database failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty set, got %d contests", len(loaded))
	}

	if err := s.Save(testContests()[:1]); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := s.Save(testContests()); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = s2.Close() })

	loaded, err = s2.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertContestsEqual(t, testContests(), loaded)
}

func TestCacheDir(t *testing.T) {
	t.Run("explicit root", func(t *testing.T) {
		got, err := CacheDir("/var/cache", "contest-countdown")
		if err != nil {
			t.Fatalf("CacheDir failed: %v", err)
		}
		if got != filepath.Join("/var/cache", "contest-countdown") {
			t.Errorf("Unexpected cache dir %s", got)
		}
	})

	t.Run("xdg cache home", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/xdg")
		got, err := CacheDir("", "contest-countdown")
		if err != nil {
			t.Fatalf("CacheDir failed: %v", err)
		}
		if got != filepath.Join("/xdg", "contest-countdown") {
			t.Errorf("Unexpected cache dir %s", got)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")
		t.Setenv("HOME", "/home/tester")
		got, err := CacheDir("", "contest-countdown")
		if err != nil {
			t.Fatalf("CacheDir failed: %v", err)
		}
		if got != filepath.Join("/home/tester", ".cache", "contest-countdown") {
			t.Errorf("Unexpected cache dir %s", got)
		}
	})

	t.Run("invalid app id", func(t *testing.T) {
		if _, err := CacheDir("/tmp", "a/b"); err == nil {
			t.Error("Expected error for app id with separator")
		}
		if _, err := CacheDir("/tmp", " "); err == nil {
			t.Error("Expected error for blank app id")
		}
	})
}
