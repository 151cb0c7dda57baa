package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/app"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/sync"
	"github.com/tinkering/twinby/internal/tui/keys"
	"github.com/tinkering/twinby/internal/tui/ui"
	"github.com/tinkering/twinby/internal/tui/views"
)

// Page names.
const (
	pageAuth    = "auth"
	pageFeed    = "feed"
	pageChats   = "chats"
	pageChat    = "chat"
	pageSupport = "support"
	pageProfile = "profile"
	pageHelp    = "help"
)

// App is the main TUI application shell. Every field below the views is
// only touched on the tview event goroutine.
type App struct {
	app      *tview.Application
	rt       *app.Runtime
	logger   *zap.Logger
	theme    *ui.Theme
	pages    *ui.Pages
	registry *keys.Registry
	flash    *ui.FlashModel

	body     *tview.Flex
	info     *ui.AccountInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt

	auth    *views.AuthView
	feed    *views.FeedView
	chats   *views.ConversationList
	thread  *views.MessageThread
	support *views.SupportThread
	profile *views.ProfileView
	help    *views.HelpView

	components map[string]ui.Component

	ctx    context.Context
	cancel context.CancelFunc

	me           *api.Profile
	conv         *sync.Conversation
	promptShown  bool
	filterBefore string
	feedLoaded   bool
}

// NewApp creates the TUI over rt.
func NewApp(rt *app.Runtime) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		rt:       rt,
		logger:   rt.Logger.Named("tui"),
		theme:    theme,
		pages:    ui.NewPages(),
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		info:     ui.NewAccountInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		auth:     views.NewAuthView(theme),
		feed:     views.NewFeedView(theme),
		chats:    views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		support:  views.NewSupportThread(theme),
		profile:  views.NewProfileView(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.components = map[string]ui.Component{
		pageAuth:    a.auth,
		pageFeed:    a.feed,
		pageChats:   a.chats,
		pageChat:    a.thread,
		pageSupport: a.support,
		pageProfile: a.profile,
		pageHelp:    a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'f',
		Hint:    ui.MenuHint{Key: "f", Description: "Discover"},
		Handler: func() { a.navigate(pageFeed) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Hint:    ui.MenuHint{Key: "c", Description: "Chats"},
		Handler: func() { a.navigate(pageChats) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'p',
		Hint:    ui.MenuHint{Key: "p", Description: "Profile"},
		Handler: func() { a.navigate(pageProfile) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Hint:    ui.MenuHint{Key: ":", Description: "Command"},
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Hint:    ui.MenuHint{Key: "?", Description: "Help"},
		Handler: func() { a.navigate(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Hint:    ui.MenuHint{Key: "q", Description: "Back / Quit"},
		Handler: func() {
			if !a.back() {
				a.Stop()
			}
		},
	})

	like := func() { a.swipe(api.Right) }
	skip := func() { a.swipe(api.Left) }
	a.registry.AddView(pageFeed, &keys.Action{Key: tcell.KeyRune, Rune: 'l', Handler: like})
	a.registry.AddView(pageFeed, &keys.Action{Key: tcell.KeyRight, Handler: like})
	a.registry.AddView(pageFeed, &keys.Action{Key: tcell.KeyRune, Rune: 'h', Handler: skip})
	a.registry.AddView(pageFeed, &keys.Action{Key: tcell.KeyLeft, Handler: skip})
	a.registry.AddView(pageFeed, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Handler: a.loadFeed})

	a.registry.AddView(pageChats, &keys.Action{Key: tcell.KeyRune, Rune: '/', Handler: func() { a.showPrompt(ui.PromptFilter) }})
	a.registry.AddView(pageChats, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Handler: a.refreshChats})

	a.registry.AddView(pageChat, &keys.Action{Key: tcell.KeyRune, Rune: 'i', Handler: func() { a.app.SetFocus(a.thread.Composer()) }})
	a.registry.AddView(pageSupport, &keys.Action{Key: tcell.KeyRune, Rune: 'i', Handler: func() { a.app.SetFocus(a.support.Composer()) }})
}

func (a *App) setupCallbacks() {
	a.auth.SetOnLogin(a.login)
	a.auth.SetOnRegister(a.register)

	a.chats.SetSelectedFunc(func(int, int) {
		switch id := a.chats.Selected(); id {
		case "":
		case views.SupportRowID:
			a.openSupport()
		default:
			it, _ := a.chats.Item(id)
			a.openConversation(id, it.Summary.CounterpartName)
		}
	})

	a.thread.SetOnSend(a.sendMessage)
	a.support.SetOnSend(a.sendSupport)

	a.profile.SetOnSave(a.saveProfile)
	a.profile.SetOnLogout(a.logout)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chats.SetFilter(strings.TrimSpace(text))
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnChange(func(text string) { a.chats.SetFilter(strings.TrimSpace(text)) })
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.chats.SetFilter(a.filterBefore)
		}
		a.hidePrompt()
	})
	a.prompt.SetCommands(commandNames)

	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, 0, len(stack))
		for _, p := range stack {
			names = append(names, a.components[p].Name())
		}
		a.crumbs.Update(names)
		a.updateMenu()
	})
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c.(tview.Primitive), true, false)
	}

	header := tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 20, 0, false)

	a.body = tview.NewFlex().SetDirection(tview.FlexRow)
	a.body.AddItem(a.pages, 0, 1, true)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 5, 0, false).
		AddItem(a.body, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.captureKey)
}

func (a *App) captureKey(ev *tcell.EventKey) *tcell.EventKey {
	page := a.pages.Current()
	if a.promptShown || page == pageAuth {
		return ev
	}

	switch a.app.GetFocus().(type) {
	case *tview.InputField, *tview.DropDown:
		if ev.Key() != tcell.KeyEscape {
			return ev
		}
		// Esc leaves the composer first, then the page.
		switch page {
		case pageChat:
			a.app.SetFocus(a.thread.Messages())
		case pageSupport:
			a.app.SetFocus(a.support.Messages())
		default:
			a.back()
		}
		return nil
	}

	if ev.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

// Run shows the sign-in screen or the chats and blocks until the user quits.
func (a *App) Run() error {
	defer a.cancel()

	a.renderInfo()
	if a.rt.LoggedIn() {
		a.enter()
	} else {
		a.showAuth()
	}
	go a.watch()
	return a.app.Run()
}

// Stop shuts the screen down; Run returns afterwards.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// watch forwards bus events and flash changes to the UI goroutine.
func (a *App) watch() {
	events, unsubscribe := a.rt.Bus.Subscribe("", 256)
	defer unsubscribe()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.app.QueueUpdateDraw(func() { a.handleEvent(evt) })
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.ChatListUpdated:
		a.renderChats()
		a.renderInfo()
	case bus.ConversationStateChanged, bus.ConversationUpdated, bus.ConversationPending, bus.ConversationSendFailed:
		if a.conv != nil && evt.Key == a.conv.ID() {
			a.thread.Update(a.conv.Snapshot(), a.myID())
		}
	case bus.SupportUpdated:
		a.support.Update(a.rt.Support.Messages(), a.rt.Support.Sending())
	case bus.SessionChanged:
		if signedIn, _ := evt.Payload.(bool); !signedIn && a.pages.Current() != pageAuth {
			a.showAuth()
		}
		a.renderInfo()
	}
}

// navigate shows a page. Conversation and support loops run only while
// their page is on screen; the chat list is refreshed every time it is shown.
func (a *App) navigate(name string) {
	if name != pageChat {
		a.closeConversation()
	}
	if name != pageSupport {
		a.rt.Support.Close()
	}
	switch name {
	case pageChats:
		a.refreshChats()
	case pageFeed:
		if !a.feedLoaded {
			a.loadFeed()
		}
	case pageProfile:
		if a.me != nil {
			a.profile.Update(a.me)
		}
	}
	a.pages.Push(name)
	a.focusPage(name)
}

// back pops the current page; false means the root is showing.
func (a *App) back() bool {
	if a.pages.Pop() == "" {
		return false
	}
	a.navigate(a.pages.Current())
	return true
}

func (a *App) focusPage(name string) {
	switch name {
	case pageAuth:
		a.app.SetFocus(a.auth.Focus())
	case pageChat:
		a.app.SetFocus(a.thread.Composer())
	case pageSupport:
		a.app.SetFocus(a.support.Composer())
	default:
		a.app.SetFocus(a.components[name].(tview.Primitive))
	}
}

func (a *App) updateMenu() {
	page := a.pages.Current()
	hints := a.components[page].Hints()
	if page != pageAuth {
		hints = append(hints, a.registry.Hints("")...)
	}
	a.menu.Update(hints)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	seed := ""
	if mode == ui.PromptFilter {
		a.filterBefore = a.chats.Filter()
		seed = a.filterBefore
	}
	a.prompt.Activate(mode, seed)
	a.promptShown = true
	a.body.Clear()
	a.body.AddItem(a.prompt, 3, 0, true)
	a.body.AddItem(a.pages, 0, 1, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.promptShown = false
	a.body.Clear()
	a.body.AddItem(a.pages, 0, 1, true)
	a.focusPage(a.pages.Current())
}

// commandNames feeds prompt completion; keep in sync with runCommand.
var commandNames = []string{"feed", "discover", "chats", "support", "profile", "me", "help", "logout", "quit"}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "feed", "discover":
		a.navigate(pageFeed)
	case "chats":
		a.navigate(pageChats)
	case "support":
		a.openSupport()
	case "profile", "me":
		a.navigate(pageProfile)
	case "help", "h":
		a.navigate(pageHelp)
	case "logout":
		a.logout()
	case "quit", "q":
		a.Stop()
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
}

// fail reports a failed action. An expired session signs the user out.
func (a *App) fail(what string, err error) {
	if errors.Is(err, api.ErrUnauthorized) && a.rt.LoggedIn() {
		a.flash.Warn("Your session has expired. Please sign in again.")
		a.logout()
		return
	}
	a.logger.Debug(what, zap.Error(err))
	a.flash.Err(what, err)
}

// enter shows the signed-in part of the app.
func (a *App) enter() {
	a.me = nil
	a.feedLoaded = false
	a.pages.Reset(pageChats)
	a.navigate(pageChats)
	a.loadMe()
}

func (a *App) showAuth() {
	a.closeConversation()
	a.auth.Reset()
	a.pages.Reset(pageAuth)
	a.focusPage(pageAuth)
}

func (a *App) login(login, password string) {
	a.auth.ShowMessage("Signing in…")
	go func() {
		err := a.rt.Login(a.ctx, login, password)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.auth.ShowError(err)
				return
			}
			a.enter()
		})
	}()
}

func (a *App) register(r views.Registration) {
	in, err := r.Input()
	if err != nil {
		a.auth.ShowError(err)
		return
	}
	var closer io.Closer
	if r.PhotoPath != "" {
		in.Photo, closer, err = api.OpenFile(expandHome(r.PhotoPath))
		if err != nil {
			a.auth.ShowError(fmt.Errorf("photo: %w", err))
			return
		}
	}
	if err := in.Validate(); err != nil {
		closeQuietly(closer)
		a.auth.ShowError(err)
		return
	}

	a.auth.ShowMessage("Creating your account…")
	go func() {
		defer closeQuietly(closer)
		err := a.rt.Register(a.ctx, in)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.auth.ShowError(err)
				return
			}
			a.flash.Info("Welcome to twinby, " + in.Name + "!")
			a.enter()
		})
	}()
}

func (a *App) logout() {
	if err := a.rt.Logout(); err != nil {
		a.flash.Err("Log out", err)
		return
	}
	a.me = nil
	a.feed.SetProfiles(nil)
	a.chats.Update(nil, nil)
	a.showAuth()
	a.renderInfo()
}

func (a *App) loadMe() {
	go func() {
		me, err := a.rt.Client.Me(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.fail("Load profile", err)
				return
			}
			a.me = me
			a.profile.Update(me)
			a.renderInfo()
			if a.conv != nil {
				a.thread.Update(a.conv.Snapshot(), a.myID())
			}
		})
	}()
}

func (a *App) myID() string {
	if a.me == nil {
		return ""
	}
	return a.me.UserID
}

func (a *App) loadFeed() {
	a.feedLoaded = true
	a.feed.SetLoading(true)
	go func() {
		profiles, err := a.rt.Client.Feed(a.ctx, a.rt.FeedLimit)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.feed.SetLoading(false)
				a.fail("Load feed", err)
				return
			}
			a.feed.SetProfiles(profiles)
		})
	}()
}

func (a *App) swipe(dir api.Direction) {
	p, ok := a.feed.Current()
	if !ok {
		return
	}
	if a.feed.Advance() == 0 {
		a.loadFeed()
	}
	go func() {
		chatID, err := a.rt.Client.Swipe(a.ctx, p.UserID, dir)
		a.app.QueueUpdateDraw(func() {
			switch {
			case err != nil:
				a.fail("Swipe", err)
			case chatID != "":
				a.flash.Info(fmt.Sprintf("You liked %s. Say hi in Chats!", p.Name))
				a.refreshChats()
			}
		})
	}()
}

func (a *App) refreshChats() {
	go func() {
		if err := a.rt.ChatList.Refresh(a.ctx); err != nil && a.ctx.Err() == nil {
			a.app.QueueUpdateDraw(func() { a.fail("Load chats", err) })
		}
	}()
}

func (a *App) renderChats() {
	var latest *api.SupportMessage
	if m, ok := a.rt.ChatList.SupportLatest(); ok {
		latest = &m
	}
	a.chats.Update(a.rt.ChatList.Items(), latest)
}

func (a *App) renderInfo() {
	data := ui.AccountData{
		Workspace: a.rt.Workspace,
		Backend:   a.rt.Client.BaseURL(),
		SignedIn:  a.rt.LoggedIn(),
		Unread:    a.rt.ChatList.UnreadCount(),
	}
	if a.me != nil {
		data.Name = a.me.Name
	}
	if !data.SignedIn {
		data.Unread = 0
	}
	a.info.Update(data)
}

func (a *App) openConversation(id, name string) {
	a.closeConversation()
	a.thread.Reset(id, name)
	a.conv = a.rt.Engine.Open(id)
	a.thread.Update(a.conv.Snapshot(), a.myID())
	a.navigate(pageChat)
}

func (a *App) closeConversation() {
	if a.conv == nil {
		return
	}
	a.conv.Close()
	a.conv = nil
}

func (a *App) sendMessage(text string) {
	conv := a.conv
	if conv == nil {
		return
	}
	cmd, body, isCmd := composerCommand(text)
	if isCmd {
		switch cmd.Name {
		case "attach":
			a.attach(conv, cmd.Args)
		default:
			a.flash.Warn(fmt.Sprintf("unknown command /%s, use //%s to send it as text", cmd.Name, cmd.Name))
			a.thread.Composer().SetText(text)
		}
		return
	}

	go func() {
		err := conv.Send(a.ctx, body)
		if err == nil || errors.Is(err, sync.ErrClosed) {
			return
		}
		a.app.QueueUpdateDraw(func() { a.fail("Send failed", err) })
	}()
}

func (a *App) attach(conv *sync.Conversation, path string) {
	if path == "" {
		a.flash.Warn("usage: /attach <path>")
		return
	}
	file, closer, err := api.OpenFile(expandHome(path))
	if err != nil {
		a.flash.Err("Attach", err)
		return
	}
	a.flash.Info("Uploading " + file.Name + "…")
	go func() {
		defer closeQuietly(closer)
		err := conv.SendAttachment(a.ctx, file)
		if err == nil || errors.Is(err, sync.ErrClosed) {
			return
		}
		a.app.QueueUpdateDraw(func() { a.fail("Attach failed", err) })
	}()
}

func (a *App) openSupport() {
	a.support.Update(a.rt.Support.Messages(), false)
	a.navigate(pageSupport)
	a.rt.Support.Open(a.ctx)
}

func (a *App) sendSupport(text string) {
	a.support.Update(a.rt.Support.Messages(), true)
	go func() {
		_, err := a.rt.Support.Send(a.ctx, text)
		a.app.QueueUpdateDraw(func() {
			a.support.Update(a.rt.Support.Messages(), false)
			if err != nil {
				a.fail("Support", err)
			}
		})
	}()
}

func (a *App) saveProfile(edit views.ProfileEdit) {
	u, err := edit.Update()
	if err != nil {
		a.flash.Err("Profile", err)
		return
	}
	var closer io.Closer
	if edit.PhotoPath != "" {
		u.Photo, closer, err = api.OpenFile(expandHome(edit.PhotoPath))
		if err != nil {
			a.flash.Err("Photo", err)
			return
		}
	}
	go func() {
		defer closeQuietly(closer)
		me, err := a.rt.Client.UpdateMe(a.ctx, u)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.fail("Save profile", err)
				return
			}
			a.me = me
			a.profile.Update(me)
			a.renderInfo()
			a.flash.Info("Profile saved")
		})
	}()
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
