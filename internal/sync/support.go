package sync

import (
	"context"
	"slices"
	"strings"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
)

// SupportAPI is the part of the API client the support thread needs.
type SupportAPI interface {
	ListSupportMessages(ctx context.Context) ([]api.SupportMessage, error)
	SendSupportMessage(ctx context.Context, text string) (*api.SupportExchange, error)
}

// Support polls the support thread while it is open. It keeps no read marker.
type Support struct {
	api      SupportAPI
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	fetchMu gosync.Mutex

	mu       gosync.Mutex
	messages []api.SupportMessage
	sending  bool
	cancel   context.CancelFunc
	done     chan struct{}
	gen      uint64
}

// NewSupport creates a support thread syncer. interval <= 0 selects
// DefaultSupportInterval.
func NewSupport(client SupportAPI, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Support {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSupportInterval
	}
	return &Support{api: client, bus: b, logger: logger, interval: interval}
}

// Open loads the thread and starts polling. Opening an open thread is a no-op.
func (s *Support) Open(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.fetch(ctx, gen, true)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.fetch(ctx, gen, false)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops polling and waits for the loop to exit.
func (s *Support) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.gen++
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// fetch loads the thread; unless force is set the held list is replaced only
// when its length changed. Results from a closed generation are dropped.
func (s *Support) fetch(ctx context.Context, gen uint64, force bool) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	msgs, err := s.api.ListSupportMessages(ctx)
	if err != nil {
		s.logger.Debug("support poll failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if !force && len(msgs) == len(s.messages) {
		return
	}
	s.messages = msgs
	s.bus.Emit(bus.SupportUpdated, "", len(msgs))
}

// Send posts a question and reloads the thread, which then holds both the
// question and the assistant reply.
func (s *Support) Send(ctx context.Context, text string) (*api.SupportExchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &api.ValidationError{Field: "text", Reason: "message is empty"}
	}

	s.mu.Lock()
	s.sending = true
	gen := s.gen
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	ex, err := s.api.SendSupportMessage(ctx, text)
	if err != nil {
		s.bus.Emit(bus.SupportSendFailed, "", err)
		return nil, err
	}
	s.fetch(ctx, gen, true)
	return ex, nil
}

// Messages returns a copy of the held thread.
func (s *Support) Messages() []api.SupportMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Sending reports whether a question is in flight.
func (s *Support) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}
