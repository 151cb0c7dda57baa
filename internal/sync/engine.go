// Package sync keeps locally held conversation state close to the backend by
// polling it: one loop per open conversation, one for the conversation list
// and one for the support thread.
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
)

// Default poll intervals.
const (
	DefaultConversationInterval = 2500 * time.Millisecond
	DefaultChatListInterval     = 3 * time.Second
	DefaultSupportInterval      = 2500 * time.Millisecond
)

// ErrClosed is returned by operations on a closed conversation.
var ErrClosed = errors.New("conversation closed")

// ConversationAPI is the part of the API client a conversation loop needs.
type ConversationAPI interface {
	ListMessages(ctx context.Context, conversationID string) ([]api.Message, error)
	ListConversations(ctx context.Context) ([]api.ConversationSummary, error)
	SendMessage(ctx context.Context, conversationID, text string) (*api.Message, error)
	UploadAttachment(ctx context.Context, conversationID string, file *api.File) (*api.Attachment, error)
}

// Markers is the read-marker store.
type Markers interface {
	Get(conversationID string) (string, bool, error)
	Set(conversationID, seenAt string) error
	Lookup(conversationIDs []string) (map[string]string, error)
}

// Engine owns the open conversations, at most one per id.
type Engine struct {
	api      ConversationAPI
	markers  Markers
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu   gosync.Mutex
	open map[string]*Conversation
}

// NewEngine creates a conversation engine. interval <= 0 selects
// DefaultConversationInterval.
func NewEngine(client ConversationAPI, markers Markers, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultConversationInterval
	}
	return &Engine{
		api:      client,
		markers:  markers,
		bus:      b,
		logger:   logger,
		interval: interval,
		open:     make(map[string]*Conversation),
	}
}

// Open starts syncing conversationID and returns it. Opening an id that is
// already open returns the existing conversation without starting a second loop.
func (e *Engine) Open(conversationID string) *Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.open[conversationID]; ok {
		return c
	}
	c := newConversation(e, conversationID)
	e.open[conversationID] = c
	go c.run()
	e.logger.Debug("conversation opened", zap.String("conversation_id", conversationID))
	return c
}

// Get returns the open conversation for conversationID.
func (e *Engine) Get(conversationID string) (*Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.open[conversationID]
	return c, ok
}

// Close closes conversationID if it is open.
func (e *Engine) Close(conversationID string) {
	if c, ok := e.Get(conversationID); ok {
		c.Close()
	}
}

// CloseAll closes every open conversation and waits for their loops to exit.
func (e *Engine) CloseAll() {
	e.mu.Lock()
	open := make([]*Conversation, 0, len(e.open))
	for _, c := range e.open {
		open = append(open, c)
	}
	e.mu.Unlock()

	for _, c := range open {
		c.Close()
	}
	for _, c := range open {
		<-c.Done()
	}
}

// OpenCount returns the number of open conversations.
func (e *Engine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.open)
}

func (e *Engine) forget(c *Conversation) {
	e.mu.Lock()
	if e.open[c.id] == c {
		delete(e.open, c.id)
	}
	e.mu.Unlock()
}
