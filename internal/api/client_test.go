package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/fakeapi"
)

type memSession struct {
	mu    sync.Mutex
	token string
}

func (m *memSession) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memSession) Set(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

type env struct {
	fake    *fakeapi.Server
	session *memSession
	client  *api.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := fakeapi.New(fakeapi.Options{BcryptCost: bcrypt.MinCost})
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	sess := &memSession{}
	return &env{fake: fake, session: sess, client: api.New(srv.URL, sess, nil)}
}

// seedAndLogin creates a user on the fake backend and logs the client in.
func (e *env) seedAndLogin(t *testing.T, login string) string {
	t.Helper()
	id, err := e.fake.CreateUser(fakeapi.Seed{
		Login: login, Password: "secret1", Name: strings.ToUpper(login[:1]) + login[1:],
		Gender: "other", Age: 30, About: "hi", Interests: []string{"music"},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := e.client.Login(context.Background(), login, "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return id
}

func validRegistration() api.RegisterInput {
	return api.RegisterInput{
		Login:     "alice",
		Password:  "secret1",
		Name:      "Alice",
		Gender:    "female",
		Age:       27,
		About:     "film photography",
		Interests: []string{"art", "travel"},
		Photo:     &api.File{Name: "me.png", MIME: "image/png", Content: strings.NewReader("png-bytes")},
	}
}

func TestRegisterStoresToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.client.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if e.session.Token() == "" {
		t.Fatal("expected token to be stored")
	}

	me, err := e.client.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Name != "Alice" || me.Age != 27 || len(me.Interests) != 2 {
		t.Fatalf("unexpected profile: %+v", me)
	}
	if !strings.Contains(me.PhotoURL, "/static/") {
		t.Fatalf("expected photo url, got %q", me.PhotoURL)
	}
}

func TestRegisterValidationSendsNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*api.RegisterInput)
		field  string
	}{
		{"no photo", func(in *api.RegisterInput) { in.Photo = nil }, "photo"},
		{"short login", func(in *api.RegisterInput) { in.Login = "ab" }, "login"},
		{"short password", func(in *api.RegisterInput) { in.Password = "12345" }, "password"},
		{"blank name", func(in *api.RegisterInput) { in.Name = "  " }, "name"},
		{"blank about", func(in *api.RegisterInput) { in.About = "" }, "about"},
		{"no interests", func(in *api.RegisterInput) { in.Interests = nil }, "interests"},
		{"unknown interest", func(in *api.RegisterInput) { in.Interests = []string{"knitting"} }, "interests"},
		{"underage", func(in *api.RegisterInput) { in.Age = 17 }, "age"},
		{"bad gender", func(in *api.RegisterInput) { in.Gender = "robot" }, "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			in := validRegistration()
			tt.mutate(&in)

			err := e.client.Register(context.Background(), in)
			var ve *api.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("field = %q, want %q", ve.Field, tt.field)
			}
			if n := e.fake.Hits("POST /auth/register"); n != 0 {
				t.Fatalf("expected no request, got %d", n)
			}
		})
	}
}

func TestLoginBadCredentials(t *testing.T) {
	e := newEnv(t)
	e.seedAndLogin(t, "alice")
	_ = e.client.Logout()

	err := e.client.Login(context.Background(), "alice", "wrong-password")
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := api.UserMessage(err); got != "Invalid credentials" {
		t.Fatalf("UserMessage = %q", got)
	}
	if e.session.Token() != "" {
		t.Fatal("failed login must not store a token")
	}
}

func TestMissingTokenFailsLocally(t *testing.T) {
	e := newEnv(t)

	_, err := e.client.ListConversations(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if n := e.fake.Hits("GET /chats"); n != 0 {
		t.Fatalf("expected no request without a token, got %d", n)
	}
}

func TestExpiredToken(t *testing.T) {
	e := newEnv(t)
	id := e.seedAndLogin(t, "alice")

	expired, err := e.fake.IssueToken(id, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	_ = e.session.Set(expired)

	if _, err := e.client.Me(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	e := newEnv(t)
	e.seedAndLogin(t, "alice")
	if !e.client.LoggedIn() {
		t.Fatal("expected logged in")
	}
	if err := e.client.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if e.client.LoggedIn() {
		t.Fatal("expected logged out")
	}
}

func TestSwipeAndChat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob, err := e.fake.CreateUser(fakeapi.Seed{Login: "bob", Password: "secret1", Name: "Bob", Gender: "male", Age: 30, About: "x", Interests: []string{"coding"}})
	if err != nil {
		t.Fatal(err)
	}
	e.seedAndLogin(t, "alice")

	feed, err := e.client.Feed(ctx, 10)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(feed) != 1 || feed[0].UserID != bob {
		t.Fatalf("unexpected feed: %+v", feed)
	}

	chatID, err := e.client.Swipe(ctx, bob, api.Right)
	if err != nil {
		t.Fatalf("Swipe: %v", err)
	}
	if chatID == "" {
		t.Fatal("right swipe should return a conversation id")
	}

	feed, err = e.client.Feed(ctx, 10)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(feed) != 0 {
		t.Fatalf("swiped profile should leave the feed, got %d", len(feed))
	}

	convs, err := e.client.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].ConversationID != chatID || convs[0].LastMessageAt != nil {
		t.Fatalf("unexpected conversations: %+v", convs)
	}

	sent, err := e.client.SendMessage(ctx, chatID, "  hello  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if sent.Text != "hello" {
		t.Fatalf("Text = %q", sent.Text)
	}

	msgs, err := e.client.ListMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != sent.ID {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	convs, err = e.client.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if convs[0].LastAt() != sent.CreatedAt || convs[0].LastText() != "hello" {
		t.Fatalf("summary not updated: %+v", convs[0])
	}
}

func TestSwipeRejectsBadDirection(t *testing.T) {
	e := newEnv(t)
	e.seedAndLogin(t, "alice")

	_, err := e.client.Swipe(context.Background(), "someone", api.Direction("up"))
	if !api.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLeftSwipeHasNoConversation(t *testing.T) {
	e := newEnv(t)
	bob, _ := e.fake.CreateUser(fakeapi.Seed{Login: "bob", Password: "secret1", Name: "Bob"})
	e.seedAndLogin(t, "alice")

	chatID, err := e.client.Swipe(context.Background(), bob, api.Left)
	if err != nil {
		t.Fatalf("Swipe: %v", err)
	}
	if chatID != "" {
		t.Fatalf("left swipe returned %q", chatID)
	}
}

func TestSendEmptyMessage(t *testing.T) {
	e := newEnv(t)
	e.seedAndLogin(t, "alice")

	_, err := e.client.SendMessage(context.Background(), "chat", "   ")
	if !api.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnknownConversation(t *testing.T) {
	e := newEnv(t)
	e.seedAndLogin(t, "alice")

	_, err := e.client.ListMessages(context.Background(), "does-not-exist")
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadAttachment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob, _ := e.fake.CreateUser(fakeapi.Seed{Login: "bob", Password: "secret1", Name: "Bob"})
	alice := e.seedAndLogin(t, "alice")
	chatID, err := e.fake.CreateChat(alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	att, err := e.client.UploadAttachment(ctx, chatID, &api.File{Name: "notes.txt", Content: strings.NewReader("some notes")})
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if att.Name != "notes.txt" || att.MIME == nil || *att.MIME != "application/octet-stream" {
		t.Fatalf("unexpected attachment: %+v", att)
	}

	resp, err := http.Get(att.URL)
	if err != nil {
		t.Fatalf("GET %s: %v", att.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "some notes" {
		t.Fatalf("static body = %q", body)
	}
}

func TestUpdateMePartial(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedAndLogin(t, "alice")

	age := 40
	about := "new bio"
	p, err := e.client.UpdateMe(ctx, api.ProfileUpdate{Age: &age, About: &about})
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if p.Age != 40 || p.About != "new bio" || p.Name != "Alice" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.Interests) != 1 || p.Interests[0] != "music" {
		t.Fatalf("interests should be unchanged, got %v", p.Interests)
	}

	bad := 150
	if _, err := e.client.UpdateMe(ctx, api.ProfileUpdate{Age: &bad}); !api.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSupportExchange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedAndLogin(t, "alice")

	ex, err := e.client.SendSupportMessage(ctx, "how do I change my photo?")
	if err != nil {
		t.Fatalf("SendSupportMessage: %v", err)
	}
	if ex.UserMessage.Role != api.RoleUser || ex.AssistantMessage.Role != api.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", ex)
	}
	if ex.AssistantMessage.Text == "" {
		t.Fatal("expected assistant reply")
	}

	msgs, err := e.client.ListSupportMessages(ctx)
	if err != nil {
		t.Fatalf("ListSupportMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != ex.UserMessage.ID || msgs[1].ID != ex.AssistantMessage.ID {
		t.Fatalf("unexpected support history: %+v", msgs)
	}
}

func TestServerErrorCarriesDetail(t *testing.T) {
	e := newEnv(t)
	e.seedAndLogin(t, "alice")
	e.fake.FailRequests(1)

	_, err := e.client.ListConversations(context.Background())
	var ae *api.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if ae.StatusCode != http.StatusInternalServerError || ae.Detail != "injected failure" {
		t.Fatalf("unexpected error: %+v", ae)
	}

	if _, err := e.client.ListConversations(context.Background()); err != nil {
		t.Fatalf("second call should succeed: %v", err)
	}
}
