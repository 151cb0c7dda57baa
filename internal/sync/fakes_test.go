package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	gosync "sync"
	"testing"
	"time"

	"github.com/tinkering/twinby/internal/api"
)

var errNetwork = errors.New("network unreachable")

func ts(n int) string {
	return fmt.Sprintf("2026-01-01T00:00:%02dZ", n)
}

func msg(conv string, n int) api.Message {
	return api.Message{ID: fmt.Sprintf("m%d", n), ConversationID: conv, SenderID: "u2", Text: fmt.Sprintf("text %d", n), CreatedAt: ts(n)}
}

// fakeAPI is an in-memory backend recording calls.
type fakeAPI struct {
	mu        gosync.Mutex
	messages  map[string][]api.Message
	summaries []api.ConversationSummary
	support   []api.SupportMessage

	failList     int
	failSummary  bool
	failSend     error
	listCalls    int
	inFlight     int
	maxInFlight  int
	listDelay    time.Duration
	gate         chan struct{}
	entered      chan struct{}
	sent         []string
	uploads      []string
	supportCalls int
	failSupport  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{messages: make(map[string][]api.Message)}
}

func (f *fakeAPI) ListMessages(ctx context.Context, id string) ([]api.Message, error) {
	f.mu.Lock()
	f.listCalls++
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	gate, entered, delay := f.gate, f.entered, f.listDelay
	fail := f.failList > 0
	if fail {
		f.failList--
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, errNetwork
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[id]), nil
}

func (f *fakeAPI) ListConversations(context.Context) ([]api.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSummary {
		return nil, errNetwork
	}
	return slices.Clone(f.summaries), nil
}

func (f *fakeAPI) SendMessage(_ context.Context, id, text string) (*api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return nil, f.failSend
	}
	f.sent = append(f.sent, text)
	n := 50 + len(f.sent)
	m := api.Message{ID: fmt.Sprintf("sent%d", n), ConversationID: id, SenderID: "me", Text: text, CreatedAt: ts(n)}
	f.messages[id] = append(f.messages[id], m)
	return &m, nil
}

func (f *fakeAPI) UploadAttachment(_ context.Context, id string, file *api.File) (*api.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, file.Name)
	return &api.Attachment{URL: "http://files/" + file.Name, Name: file.Name}, nil
}

func (f *fakeAPI) ListSupportMessages(context.Context) ([]api.SupportMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supportCalls++
	if f.failSupport > 0 {
		f.failSupport--
		return nil, errNetwork
	}
	return slices.Clone(f.support), nil
}

func (f *fakeAPI) SendSupportMessage(_ context.Context, text string) (*api.SupportExchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return nil, f.failSend
	}
	n := len(f.support)
	ex := &api.SupportExchange{
		UserMessage:      api.SupportMessage{ID: fmt.Sprintf("s%d", n), Role: api.RoleUser, Text: text, CreatedAt: ts(n)},
		AssistantMessage: api.SupportMessage{ID: fmt.Sprintf("s%d", n+1), Role: api.RoleAssistant, Text: "ok", CreatedAt: ts(n + 1)},
	}
	f.support = append(f.support, ex.UserMessage, ex.AssistantMessage)
	return ex, nil
}

func (f *fakeAPI) setMessages(id string, msgs ...api.Message) {
	f.mu.Lock()
	f.messages[id] = msgs
	f.mu.Unlock()
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// memMarkers is an in-memory read-marker store keeping every write.
type memMarkers struct {
	mu     gosync.Mutex
	values map[string]string
	writes map[string][]string
}

func newMemMarkers() *memMarkers {
	return &memMarkers{values: make(map[string]string), writes: make(map[string][]string)}
}

func (m *memMarkers) Get(id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[id]
	return v, ok, nil
}

func (m *memMarkers) Set(id, seenAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[id] = seenAt
	m.writes[id] = append(m.writes[id], seenAt)
	return nil
}

func (m *memMarkers) Lookup(ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for _, id := range ids {
		if v, ok := m.values[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (m *memMarkers) get(id string) string {
	v, _, _ := m.Get(id)
	return v
}

func (m *memMarkers) writeCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes[id])
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitLoaded(t *testing.T, c *Conversation) {
	t.Helper()
	select {
	case <-c.Loaded():
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for initial load")
	}
}
