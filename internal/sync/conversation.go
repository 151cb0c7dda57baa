package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	gosync "sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/readmark"
	"github.com/tinkering/twinby/internal/status"
)

// AttachmentText is the message body an uploaded file is sent as.
func AttachmentText(name, url string) string {
	return "📎 " + name + "\n" + url
}

// Snapshot is a copy of a conversation's view state.
type Snapshot struct {
	ConversationID string
	State          status.State
	Messages       []api.Message
	// Summary is nil until the header has been fetched.
	Summary *api.ConversationSummary
	Pending bool
	// Err is the initial load failure, cleared by the first successful fetch.
	Err error
}

// Conversation is one open conversation and its polling loop. The message
// list is only ever replaced wholesale with what the server returned.
type Conversation struct {
	id       string
	api      ConversationAPI
	markers  Markers
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	machine  *status.Machine
	forget   func(*Conversation)

	ctx    context.Context
	cancel context.CancelFunc
	loaded chan struct{}
	done   chan struct{}

	// fetchMu allows one message-list fetch in flight at a time.
	fetchMu gosync.Mutex

	// mu guards the view state. Every mutation checks closed under it, so
	// nothing changes once Close has returned.
	mu       gosync.Mutex
	messages []api.Message
	summary  *api.ConversationSummary
	sending  int
	err      error
	closed   bool
}

func newConversation(e *Engine, id string) *Conversation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		id:       id,
		api:      e.api,
		markers:  e.markers,
		bus:      e.bus,
		logger:   e.logger.With(zap.String("conversation_id", id)),
		interval: e.interval,
		machine:  status.NewMachine(id, e.bus),
		forget:   e.forget,
		ctx:      ctx,
		cancel:   cancel,
		loaded:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// Loaded is closed once the initial load has been attempted.
func (c *Conversation) Loaded() <-chan struct{} { return c.loaded }

// Done is closed when the polling loop has exited.
func (c *Conversation) Done() <-chan struct{} { return c.done }

// State returns the lifecycle state.
func (c *Conversation) State() status.State { return c.machine.Current() }

// Snapshot returns a copy of the current view state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		ConversationID: c.id,
		State:          c.machine.Current(),
		Messages:       slices.Clone(c.messages),
		Pending:        c.sending > 0,
		Err:            c.err,
	}
	if c.summary != nil {
		sum := *c.summary
		s.Summary = &sum
	}
	return s
}

// Close stops the loop. A fetch in flight is discarded when it returns.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if err := c.machine.Transition(status.Closed); err != nil {
		c.logger.Warn("close transition", zap.Error(err))
	}
	c.mu.Unlock()

	c.cancel()
	c.forget(c)
	c.logger.Debug("conversation closed")
}

func (c *Conversation) run() {
	defer close(c.done)

	c.load()
	close(c.loaded)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.poll()
		case <-c.ctx.Done():
			return
		}
	}
}

// load fetches the messages and the conversation header concurrently. A
// failed header fetch is not fatal; a failed message fetch leaves the list
// empty and the first tick retries.
func (c *Conversation) load() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	_ = c.machine.Transition(status.Loading)
	c.mu.Unlock()

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	var (
		msgs    []api.Message
		summary *api.ConversationSummary
		g       errgroup.Group
	)
	g.Go(func() error {
		var err error
		msgs, err = c.api.ListMessages(c.ctx, c.id)
		return err
	})
	g.Go(func() error {
		s, err := c.fetchSummary(c.ctx)
		if err != nil {
			c.logger.Debug("conversation header fetch failed", zap.Error(err))
			return nil
		}
		summary = s
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if summary != nil {
		c.summary = summary
	}
	if err != nil {
		c.err = err
		c.logger.Debug("initial load failed", zap.Error(err))
		_ = c.machine.Transition(status.Polling)
		c.bus.Emit(bus.ConversationUpdated, c.id, len(c.messages))
		return
	}

	c.replaceLocked(msgs)
	_ = c.machine.Transition(status.Loaded)
	_ = c.machine.Transition(status.Polling)
}

func (c *Conversation) fetchSummary(ctx context.Context) (*api.ConversationSummary, error) {
	all, err := c.api.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.ConversationID == c.id {
			return &s, nil
		}
	}
	return nil, nil
}

// poll is one tick: the list is replaced only when its length changed, and
// a failed fetch changes nothing.
func (c *Conversation) poll() {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	msgs, err := c.api.ListMessages(c.ctx, c.id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err != nil {
		c.logger.Debug("poll failed", zap.Error(err))
		return
	}
	if len(msgs) == len(c.messages) {
		if c.err != nil {
			c.err = nil
			c.bus.Emit(bus.ConversationUpdated, c.id, len(c.messages))
		}
		return
	}
	c.err = nil
	c.replaceLocked(msgs)
}

// reload fetches the list and replaces it unconditionally.
func (c *Conversation) reload(ctx context.Context) error {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	msgs, err := c.api.ListMessages(ctx, c.id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.err = nil
	c.replaceLocked(msgs)
	return nil
}

// replaceLocked installs msgs and advances the read marker to the newest
// message. Callers hold c.mu.
func (c *Conversation) replaceLocked(msgs []api.Message) {
	c.messages = msgs
	c.advanceMarkerLocked()
	c.bus.Emit(bus.ConversationUpdated, c.id, len(msgs))
}

func (c *Conversation) advanceMarkerLocked() {
	if len(c.messages) == 0 {
		return
	}
	newest := c.messages[len(c.messages)-1].CreatedAt
	current, _, err := c.markers.Get(c.id)
	if err != nil {
		c.logger.Warn("read marker lookup failed", zap.Error(err))
		return
	}
	if !readmark.Newer(newest, current) {
		return
	}
	if err := c.markers.Set(c.id, newest); err != nil {
		c.logger.Warn("read marker write failed", zap.Error(err))
	}
}

// Send posts text and reloads the full list. No local copy of the message is
// created; the view shows a pending flag until the reload lands. On failure
// the error is returned and the text is not kept anywhere.
func (c *Conversation) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &api.ValidationError{Field: "text", Reason: "message is empty"}
	}
	return c.withPending(func() error {
		return c.send(ctx, text)
	})
}

// SendAttachment uploads file and sends a message linking to it.
func (c *Conversation) SendAttachment(ctx context.Context, file *api.File) error {
	if file == nil || file.Content == nil {
		return &api.ValidationError{Field: "file", Reason: "is required"}
	}
	return c.withPending(func() error {
		att, err := c.api.UploadAttachment(ctx, c.id, file)
		if err != nil {
			return fmt.Errorf("upload %s: %w", file.Name, err)
		}
		name := file.Name
		if name == "" {
			name = att.Name
		}
		return c.send(ctx, AttachmentText(name, att.URL))
	})
}

func (c *Conversation) send(ctx context.Context, text string) error {
	if _, err := c.api.SendMessage(ctx, c.id, text); err != nil {
		return err
	}
	if err := c.reload(ctx); err != nil && !errors.Is(err, ErrClosed) {
		// Sent but not yet visible; the next tick sees the longer list.
		c.logger.Debug("reload after send failed", zap.Error(err))
	}
	return nil
}

func (c *Conversation) withPending(fn func() error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.sending++
	if c.sending == 1 {
		c.bus.Emit(bus.ConversationPending, c.id, true)
	}
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	c.sending--
	if !c.closed {
		if c.sending == 0 {
			c.bus.Emit(bus.ConversationPending, c.id, false)
		}
		if err != nil {
			c.bus.Emit(bus.ConversationSendFailed, c.id, err)
		}
	}
	c.mu.Unlock()
	return err
}
