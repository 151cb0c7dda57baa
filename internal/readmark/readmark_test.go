package readmark

import (
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinkering/twinby/internal/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestUnread(t *testing.T) {
	const t5 = "2024-05-01T10:00:05Z"
	tests := []struct {
		name     string
		lastAt   string
		seenAt   string
		expected bool
	}{
		{"no last message", "", t5, false},
		{"no last message and no marker", "", "", false},
		{"blank last message", "  ", "", false},
		{"no marker", t5, "", true},
		{"equal timestamps", t5, t5, false},
		{"newer message", "2024-05-01T10:00:06Z", t5, true},
		{"older message", "2024-05-01T10:00:04Z", t5, false},
		{"same instant different offsets", "2024-05-01T13:00:05+03:00", t5, false},
		{"offset makes it newer", "2024-05-01T10:00:05-01:00", t5, true},
		{"fractional seconds", "2024-05-01T10:00:05.000001Z", t5, true},
		// Parsing fails without an offset: lexicographic fallback.
		{"naive newer", "2024-05-01T10:00:06.123", "2024-05-01T10:00:05.999", true},
		{"naive equal", "2024-05-01T10:00:06", "2024-05-01T10:00:06", false},
		{"mixed parse falls back", "2024-05-01T10:00:06", "2024-05-01T10:00:05Z", true},
		{"garbage compares as strings", "b", "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unread(tt.lastAt, tt.seenAt); got != tt.expected {
				t.Errorf("Unread(%q, %q) = %v, want %v", tt.lastAt, tt.seenAt, got, tt.expected)
			}
		})
	}
}

func TestNewer(t *testing.T) {
	tests := []struct {
		candidate, current string
		want               bool
	}{
		{"2024-05-01T10:00:05Z", "", true},
		{"", "2024-05-01T10:00:05Z", false},
		{"2024-05-01T10:00:05Z", "2024-05-01T10:00:05Z", false},
		{"2024-05-01T10:00:04Z", "2024-05-01T10:00:05Z", false},
		{"2024-05-01T10:00:06Z", "2024-05-01T10:00:05Z", true},
	}
	for _, tt := range tests {
		if got := Newer(tt.candidate, tt.current); got != tt.want {
			t.Errorf("Newer(%q, %q) = %v, want %v", tt.candidate, tt.current, got, tt.want)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)

	if _, ok, err := s.Get("c1"); err != nil || ok {
		t.Fatalf("Get(unset) = %v, %v", ok, err)
	}
	if err := s.Set("c1", "2024-05-01T10:00:03Z"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get("c1")
	if err != nil || !ok || got != "2024-05-01T10:00:03Z" {
		t.Errorf("Get(c1) = %q, %v, %v", got, ok, err)
	}

	m, err := s.Lookup([]string{"c1", "c2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m["c1"] != "2024-05-01T10:00:03Z" {
		t.Errorf("Lookup = %v", m)
	}
}

// A caller that advances the marker only through Newer with the newest
// createdAt of each observed list never moves it backwards.
func TestMarkerNonDecreasingUnderObservedLists(t *testing.T) {
	s := testStore(t)
	rng := rand.New(rand.NewPCG(7, 11))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var created []string
	var previous time.Time
	for step := range 200 {
		// The server appends messages; polls observe arbitrary prefixes,
		// including stale ones arriving late.
		if rng.IntN(3) == 0 || len(created) == 0 {
			created = append(created, base.Add(time.Duration(len(created))*time.Second).Format(time.RFC3339Nano))
		}
		observed := created[:1+rng.IntN(len(created))]
		newest := observed[len(observed)-1]

		current, _, err := s.Get("c1")
		if err != nil {
			t.Fatal(err)
		}
		if Newer(newest, current) {
			if err := s.Set("c1", newest); err != nil {
				t.Fatal(err)
			}
		}

		stored, ok, _ := s.Get("c1")
		if !ok {
			t.Fatalf("step %d: marker missing", step)
		}
		ts, _ := ParseTimestamp(stored)
		if ts.Before(previous) {
			t.Fatalf("step %d: marker went backwards from %v to %v", step, previous, ts)
		}
		previous = ts
	}
}
