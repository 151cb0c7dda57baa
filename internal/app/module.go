package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/config"
	"github.com/tinkering/twinby/internal/lock"
	"github.com/tinkering/twinby/internal/logging"
	"github.com/tinkering/twinby/internal/readmark"
	"github.com/tinkering/twinby/internal/session"
	"github.com/tinkering/twinby/internal/store"
	"github.com/tinkering/twinby/internal/sync"
	"github.com/tinkering/twinby/internal/workspace"
)

// Params holds the resolved workspace configuration passed to the fx module.
type Params struct {
	Workspace string
	Config    *config.Config
	// LogToStderr tees logs to stderr. The TUI owns the terminal and
	// leaves it off.
	LogToStderr bool
	// Foreground skips the background chat-list loop; one-shot CLI
	// commands set it.
	Foreground bool
}

// Module returns the fx module composing the client: local store, session,
// API client and sync engines.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("twinby",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideSession,
			provideMarkers,
			provideClient,
			provideEngine,
			provideChatList,
			provideSupport,
			NewRuntime,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:      workspace.LogPath(p.Workspace),
		Workspace: p.Workspace,
		Level:     p.Config.LogLevel,
		Stderr:    p.LogToStderr,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := workspace.EnsureDir(p.Workspace); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(workspace.Dir(p.Workspace))
	if err != nil {
		return nil, err
	}
	logger.Debug("workspace lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second process.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := workspace.DBPath(p.Workspace)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	}
	logger.Debug("store opened", zap.String("path", dbPath))
	return db, nil
}

func provideSession(db *store.DB) (*session.Store, error) {
	s := session.NewStore(db)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func provideMarkers(db *store.DB) *readmark.Store {
	return readmark.NewStore(db)
}

func provideClient(p Params, s *session.Store, logger *zap.Logger) *api.Client {
	return api.New(p.Config.APIBaseURL, s, logger.Named("api"))
}

func provideEngine(p Params, client *api.Client, markers *readmark.Store, b *bus.Bus, logger *zap.Logger) *sync.Engine {
	return sync.NewEngine(client, markers, b, logger.Named("conversation"), p.Config.Poll.ConversationInterval)
}

func provideChatList(p Params, client *api.Client, markers *readmark.Store, b *bus.Bus, logger *zap.Logger) *sync.ChatList {
	return sync.NewChatList(client, markers, b, logger.Named("chatlist"), p.Config.Poll.ChatListInterval)
}

func provideSupport(p Params, client *api.Client, b *bus.Bus, logger *zap.Logger) *sync.Support {
	return sync.NewSupport(client, b, logger.Named("support"), p.Config.Poll.SupportInterval)
}

func registerLifecycle(lc fx.Lifecycle, rt *Runtime, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if rt.LoggedIn() {
				rt.startBackground()
			} else {
				logger.Info("no session, login required")
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			rt.stopBackground()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Debug("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
