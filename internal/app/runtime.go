package app

import (
	"context"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/sync"
)

// Runtime is what the screens and the CLI drive: the API client, the sync
// engines and the bus they report on. Session changes go through it so the
// background chat-list loop follows the login state.
type Runtime struct {
	Client   *api.Client
	Engine   *sync.Engine
	ChatList *sync.ChatList
	Support  *sync.Support
	Bus      *bus.Bus
	Logger   *zap.Logger

	Workspace string
	FeedLimit int

	foreground bool
	mu         gosync.Mutex
	running    bool
}

// NewRuntime assembles a Runtime from its parts.
func NewRuntime(p Params, client *api.Client, engine *sync.Engine, chatList *sync.ChatList, support *sync.Support, b *bus.Bus, logger *zap.Logger) *Runtime {
	return &Runtime{
		Client:    client,
		Engine:    engine,
		ChatList:  chatList,
		Support:   support,
		Bus:       b,
		Logger:    logger,
		Workspace: p.Workspace,
		FeedLimit: p.Config.FeedLimit,

		foreground: p.Foreground,
	}
}

// LoggedIn reports whether a session token is held.
func (r *Runtime) LoggedIn() bool {
	return r.Client.LoggedIn()
}

// Login authenticates and starts the background chat-list loop.
func (r *Runtime) Login(ctx context.Context, login, password string) error {
	if err := r.Client.Login(ctx, login, password); err != nil {
		return err
	}
	r.signedIn(login)
	return nil
}

// Register creates the account, which also signs it in.
func (r *Runtime) Register(ctx context.Context, in api.RegisterInput) error {
	if err := r.Client.Register(ctx, in); err != nil {
		return err
	}
	r.signedIn(in.Login)
	return nil
}

// Logout stops every loop and forgets the token. Read markers are kept.
func (r *Runtime) Logout() error {
	r.stopBackground()
	if err := r.Client.Logout(); err != nil {
		return err
	}
	r.Logger.Info("logged out")
	r.Bus.Emit(bus.SessionChanged, "", false)
	return nil
}

func (r *Runtime) signedIn(login string) {
	r.Logger.Info("logged in", zap.String("login", login))
	r.startBackground()
	r.Bus.Emit(bus.SessionChanged, "", true)
}

func (r *Runtime) startBackground() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.foreground {
		return
	}
	r.running = true
	r.ChatList.Start(context.Background())
}

func (r *Runtime) stopBackground() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.Engine.CloseAll()
	r.Support.Close()
	r.ChatList.Stop()
}
