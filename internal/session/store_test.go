package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tinkering/twinby/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// failingBackend rejects writes.
type failingBackend struct{}

func (failingBackend) GetValue(string) (string, bool, error) { return "", false, nil }
func (failingBackend) SetValue(string, string) error         { return errors.New("disk full") }
func (failingBackend) DeleteValue(string) error              { return errors.New("disk full") }

func TestLoadWithoutPersistedToken(t *testing.T) {
	s := NewStore(testDB(t))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if tok, ok := s.Get(); ok {
		t.Errorf("Get() = %q, want no session", tok)
	}
}

func TestSetSurvivesRestart(t *testing.T) {
	db := testDB(t)

	s := NewStore(db)
	if err := s.Set("tok-1"); err != nil {
		t.Fatal(err)
	}
	if tok, ok := s.Get(); !ok || tok != "tok-1" {
		t.Fatalf("Get() = %q, %v", tok, ok)
	}

	restarted := NewStore(db)
	if err := restarted.Load(); err != nil {
		t.Fatal(err)
	}
	if tok, ok := restarted.Get(); !ok || tok != "tok-1" {
		t.Errorf("after restart Get() = %q, %v; want tok-1", tok, ok)
	}
}

func TestClearRemovesDurableCopy(t *testing.T) {
	db := testDB(t)

	s := NewStore(db)
	_ = s.Set("tok-1")
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(); ok {
		t.Error("Get() reports a session after Clear")
	}
	if _, ok, _ := db.GetValue(TokenKey); ok {
		t.Error("token still persisted after Clear")
	}
	if s.Token() != "" {
		t.Errorf("Token() = %q, want empty", s.Token())
	}
}

func TestSetBlankClears(t *testing.T) {
	s := NewStore(testDB(t))
	_ = s.Set("tok-1")
	if err := s.Set("   "); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(); ok {
		t.Error("blank Set did not clear the session")
	}
}

func TestFailedWriteKeepsMemory(t *testing.T) {
	s := NewStore(failingBackend{})
	if err := s.Set("tok-1"); err == nil {
		t.Fatal("Set() expected error from backend")
	}
	if _, ok := s.Get(); ok {
		t.Error("memory updated although the durable write failed")
	}
}

func TestConcurrentReadsNeverTorn(t *testing.T) {
	s := NewStore(testDB(t))
	valid := map[string]bool{"": true}
	for i := range 20 {
		valid[fmt.Sprintf("token-%02d-%s", i, "padding-to-make-it-long")] = true
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 1)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if tok := s.Token(); !valid[tok] {
					select {
					case errs <- tok:
					default:
					}
					return
				}
			}
		}()
	}

	for i := range 20 {
		if err := s.Set(fmt.Sprintf("token-%02d-%s", i, "padding-to-make-it-long")); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case tok := <-errs:
		t.Errorf("reader observed torn token %q", tok)
	default:
	}
}
