package ui

import (
	"errors"
	"testing"
	"time"
)

func TestFlashExpiresAndRepeats(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("new model shows a message")
	}

	f.Err("Send failed", errors.New("boom"))
	f.Err("Send failed", errors.New("boom"))
	m := f.Current()
	if m == nil || m.Level != FlashErr || m.Repeat != 2 {
		t.Fatalf("Current = %+v", m)
	}
	select {
	case <-f.Watch():
	default:
		t.Fatal("raise did not signal")
	}

	f.Info("Profile saved")
	if m := f.Current(); m.Repeat != 1 || m.Text != "Profile saved" {
		t.Fatalf("a different message should reset the count: %+v", m)
	}

	now = now.Add(FlashInfo.ttl())
	if f.Current() != nil {
		t.Fatal("message outlived its ttl")
	}
	f.Info("Profile saved")
	if m := f.Current(); m.Repeat != 1 {
		t.Fatalf("an expired message should not be counted: %+v", m)
	}
}
