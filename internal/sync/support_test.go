package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
)

func TestSupportSendReloads(t *testing.T) {
	f := newFakeAPI()
	s := NewSupport(f, nil, nil, time.Hour)
	s.Open(context.Background())
	defer s.Close()
	waitFor(t, "initial load", func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.supportCalls >= 1
	})

	ex, err := s.Send(context.Background(), " where are my matches? ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ex.UserMessage.Text != "where are my matches?" {
		t.Fatalf("question = %q", ex.UserMessage.Text)
	}
	msgs := s.Messages()
	if len(msgs) != 2 || msgs[0].Role != api.RoleUser || msgs[1].Role != api.RoleAssistant {
		t.Fatalf("unexpected thread: %+v", msgs)
	}
	if s.Sending() {
		t.Fatal("sending should be cleared")
	}
}

func TestSupportPollsForGrowth(t *testing.T) {
	f := newFakeAPI()
	s := NewSupport(f, nil, nil, fast)
	s.Open(context.Background())
	s.Open(context.Background())
	defer s.Close()

	f.mu.Lock()
	f.support = append(f.support, api.SupportMessage{ID: "s1", Role: api.RoleAssistant, Text: "welcome", CreatedAt: ts(1)})
	f.mu.Unlock()

	waitFor(t, "poll to pick up the reply", func() bool { return len(s.Messages()) == 1 })
}

func TestSupportSendFailure(t *testing.T) {
	f := newFakeAPI()
	f.failSend = errNetwork
	b := bus.New()
	failed, unsub := b.Subscribe(bus.SupportSendFailed, 1)
	defer unsub()
	s := NewSupport(f, b, nil, time.Hour)

	if _, err := s.Send(context.Background(), "hi"); !errors.Is(err, errNetwork) {
		t.Fatalf("Send error = %v", err)
	}
	if len(failed) != 1 {
		t.Fatal("expected a send_failed event")
	}
	if _, err := s.Send(context.Background(), ""); !api.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSupportCloseStopsPolling(t *testing.T) {
	f := newFakeAPI()
	s := NewSupport(f, nil, nil, fast)
	s.Open(context.Background())
	waitFor(t, "a few polls", func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.supportCalls >= 3
	})
	s.Close()

	f.mu.Lock()
	calls := f.supportCalls
	f.support = append(f.support, api.SupportMessage{ID: "late"})
	f.mu.Unlock()
	time.Sleep(10 * fast)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.supportCalls != calls {
		t.Fatal("polling continued after Close")
	}
	if len(s.Messages()) != 0 {
		t.Fatal("thread changed after Close")
	}
}
