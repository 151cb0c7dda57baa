package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := testDB(t)
	if err := db.SetMarker("c1", "2026-01-01T10:00:00Z"); err != nil {
		t.Fatal(err)
	}

	result, err := db.MigrateTo(0)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.Version != 0 {
		t.Fatalf("down result = %+v", result)
	}
	if _, _, err := db.GetMarker("c1"); err == nil {
		t.Fatal("read_markers should be gone after migrating to 0")
	}

	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := db.GetMarker("c1"); err != nil || ok {
		t.Fatalf("fresh schema: ok=%v err=%v", ok, err)
	}
}

func TestValueRoundTrip(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.GetValue("token"); err != nil || ok {
		t.Fatalf("GetValue(missing) = ok %v, err %v; want absent", ok, err)
	}

	if err := db.SetValue("token", "abc"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetValue("token", "def"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.GetValue("token")
	if err != nil || !ok || v != "def" {
		t.Fatalf("GetValue = %q, %v, %v; want def", v, ok, err)
	}

	if err := db.DeleteValue("token"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetValue("token"); ok {
		t.Error("value still present after DeleteValue")
	}
	if err := db.DeleteValue("token"); err != nil {
		t.Errorf("DeleteValue(missing) error = %v", err)
	}
}

func TestMarkerOverwrite(t *testing.T) {
	db := testDB(t)

	if err := db.SetMarker("c1", "2024-05-01T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	// The store itself does not order values.
	if err := db.SetMarker("c1", "2024-04-01T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.GetMarker("c1")
	if err != nil || !ok {
		t.Fatalf("GetMarker = %v, %v", ok, err)
	}
	if got != "2024-04-01T10:00:00Z" {
		t.Errorf("marker = %q, want last written value", got)
	}

	if _, ok, _ := db.GetMarker("c2"); ok {
		t.Error("GetMarker(c2) reported a marker that was never set")
	}
}

func TestListMarkers(t *testing.T) {
	db := testDB(t)

	_ = db.SetMarker("a", "t1")
	_ = db.SetMarker("b", "t2")
	_ = db.SetMarker("z", "t9")

	got, err := db.ListMarkers([]string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["a"] != "t1" || got["b"] != "t2" {
		t.Errorf("ListMarkers = %v, want a=t1 b=t2", got)
	}

	empty, err := db.ListMarkers(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListMarkers(nil) = %v, %v", empty, err)
	}
}

func TestReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMarker("c1", "2024-05-01T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := db.GetMarker("c1"); !ok || got != "2024-05-01T10:00:00Z" {
		t.Errorf("marker after reopen = %q, %v", got, ok)
	}
}
