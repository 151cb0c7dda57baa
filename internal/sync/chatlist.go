package sync

import (
	"context"
	"slices"
	gosync "sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/readmark"
)

// ChatListAPI is the part of the API client the conversation list needs.
type ChatListAPI interface {
	ListConversations(ctx context.Context) ([]api.ConversationSummary, error)
	ListSupportMessages(ctx context.Context) ([]api.SupportMessage, error)
}

// ChatListItem is one row of the conversation list.
type ChatListItem struct {
	Summary api.ConversationSummary
	// SeenAt is the stored read marker, "" when the conversation was never opened.
	SeenAt string
	Unread bool
}

// ChatList polls the conversation summaries and derives unread state from
// the read markers.
type ChatList struct {
	api      ChatListAPI
	markers  Markers
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	fetchMu gosync.Mutex

	mu            gosync.RWMutex
	summaries     []api.ConversationSummary
	items         []ChatListItem
	supportLatest *api.SupportMessage
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewChatList creates a conversation list syncer. interval <= 0 selects
// DefaultChatListInterval.
func NewChatList(client ChatListAPI, markers Markers, b *bus.Bus, logger *zap.Logger, interval time.Duration) *ChatList {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultChatListInterval
	}
	return &ChatList{
		api:      client,
		markers:  markers,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Refresh loads the summaries and the latest support message and re-reads
// every marker, replacing the held list unconditionally. Screens call it each
// time the list is shown.
func (l *ChatList) Refresh(ctx context.Context) error {
	l.fetchMu.Lock()
	defer l.fetchMu.Unlock()

	var (
		summaries []api.ConversationSummary
		support   []api.SupportMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaries, err = l.api.ListConversations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		support, err = l.api.ListSupportMessages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	seen, err := l.markers.Lookup(conversationIDs(summaries))
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.install(summaries, seen)
	if n := len(support); n > 0 {
		latest := support[n-1]
		l.supportLatest = &latest
	} else {
		l.supportLatest = nil
	}
	l.mu.Unlock()

	l.bus.Emit(bus.ChatListUpdated, "", len(summaries))
	return nil
}

// Start runs Refresh and then polls until ctx is done or Stop is called.
func (l *ChatList) Start(ctx context.Context) {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		if err := l.Refresh(ctx); err != nil {
			l.logger.Debug("chat list load failed", zap.Error(err))
		}

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.poll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. The held list is kept.
func (l *ChatList) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// poll replaces the list only when the number of conversations or the
// first conversation's last-message time changed.
func (l *ChatList) poll(ctx context.Context) {
	l.fetchMu.Lock()
	defer l.fetchMu.Unlock()

	summaries, err := l.api.ListConversations(ctx)
	if err != nil {
		l.logger.Debug("chat list poll failed", zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	l.mu.RLock()
	changed := listChanged(l.summaries, summaries)
	l.mu.RUnlock()
	if !changed {
		return
	}

	seen, err := l.markers.Lookup(conversationIDs(summaries))
	if err != nil {
		l.logger.Warn("read marker lookup failed", zap.Error(err))
		return
	}
	l.mu.Lock()
	l.install(summaries, seen)
	l.mu.Unlock()
	l.bus.Emit(bus.ChatListUpdated, "", len(summaries))
}

// install replaces the held list. Callers hold l.mu.
func (l *ChatList) install(summaries []api.ConversationSummary, seen map[string]string) {
	items := make([]ChatListItem, len(summaries))
	for i, s := range summaries {
		seenAt := seen[s.ConversationID]
		items[i] = ChatListItem{
			Summary: s,
			SeenAt:  seenAt,
			Unread:  readmark.Unread(s.LastAt(), seenAt),
		}
	}
	l.summaries = summaries
	l.items = items
}

// Items returns a copy of the held list in server order.
func (l *ChatList) Items() []ChatListItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// UnreadCount returns the number of unread conversations.
func (l *ChatList) UnreadCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, it := range l.items {
		if it.Unread {
			n++
		}
	}
	return n
}

// SupportLatest returns the newest support message seen by Refresh.
func (l *ChatList) SupportLatest() (api.SupportMessage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.supportLatest == nil {
		return api.SupportMessage{}, false
	}
	return *l.supportLatest, true
}

func listChanged(old, fresh []api.ConversationSummary) bool {
	if len(old) != len(fresh) {
		return true
	}
	if len(fresh) == 0 {
		return false
	}
	return old[0].LastAt() != fresh[0].LastAt()
}

func conversationIDs(summaries []api.ConversationSummary) []string {
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ConversationID
	}
	return ids
}
