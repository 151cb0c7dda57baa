package sync_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/fakeapi"
	"github.com/tinkering/twinby/internal/readmark"
	"github.com/tinkering/twinby/internal/session"
	"github.com/tinkering/twinby/internal/store"
	"github.com/tinkering/twinby/internal/sync"
)

type stack struct {
	fake    *fakeapi.Server
	db      *store.DB
	markers *readmark.Store
	client  *api.Client
	bus     *bus.Bus
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "twinby.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	fake := fakeapi.New(fakeapi.Options{BcryptCost: bcrypt.MinCost})
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	sess := session.NewStore(db)
	return &stack{
		fake:    fake,
		db:      db,
		markers: readmark.NewStore(db),
		client:  api.New(srv.URL, sess, nil),
		bus:     bus.New(),
	}
}

func (s *stack) user(t *testing.T, login string) string {
	t.Helper()
	id, err := s.fake.CreateUser(fakeapi.Seed{
		Login: login, Password: "secret1", Name: login, Gender: "other", Age: 30, Interests: []string{"music"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestIncomingMessageMarksConversationRead(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	me := s.user(t, "me")
	other := s.user(t, "other")
	chatID, err := s.fake.CreateChat(me, other)
	if err != nil {
		t.Fatal(err)
	}
	first, err := s.fake.PostMessage(chatID, other, "hey")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.client.Login(ctx, "me", "secret1"); err != nil {
		t.Fatal(err)
	}

	list := sync.NewChatList(s.client, s.markers, s.bus, nil, time.Hour)
	if err := list.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if list.UnreadCount() != 1 {
		t.Fatalf("UnreadCount = %d before viewing, want 1", list.UnreadCount())
	}

	engine := sync.NewEngine(s.client, s.markers, s.bus, nil, 10*time.Millisecond)
	defer engine.CloseAll()
	conv := engine.Open(chatID)
	select {
	case <-conv.Loaded():
	case <-time.After(5 * time.Second):
		t.Fatal("initial load timed out")
	}
	if got, _, _ := s.db.GetMarker(chatID); got != first.CreatedAt {
		t.Fatalf("marker = %q, want %q", got, first.CreatedAt)
	}

	second, err := s.fake.PostMessage(chatID, other, "are you there?")
	if err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "poll to deliver the reply", func() bool {
		return len(conv.Snapshot().Messages) == 2
	})
	waitUntil(t, "marker to advance", func() bool {
		got, _, _ := s.db.GetMarker(chatID)
		return got == second.CreatedAt
	})

	engine.Close(chatID)
	if err := list.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if list.UnreadCount() != 0 {
		t.Fatalf("UnreadCount = %d after viewing, want 0", list.UnreadCount())
	}
}

func TestSendThroughEngine(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	me := s.user(t, "me")
	other := s.user(t, "other")
	chatID, err := s.fake.CreateChat(me, other)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.client.Login(ctx, "me", "secret1"); err != nil {
		t.Fatal(err)
	}

	engine := sync.NewEngine(s.client, s.markers, s.bus, nil, time.Hour)
	defer engine.CloseAll()
	conv := engine.Open(chatID)
	<-conv.Loaded()

	if err := conv.Send(ctx, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	snap := conv.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].SenderID != me {
		t.Fatalf("messages = %+v", snap.Messages)
	}
	got, ok, _ := s.db.GetMarker(chatID)
	if !ok || got != snap.Messages[0].CreatedAt {
		t.Fatalf("marker = %q, %v", got, ok)
	}
}
