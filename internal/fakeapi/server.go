// Package fakeapi is an in-memory twinby backend. It serves the same routes and
// JSON shapes as the real service and is used by tests and local development.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinkering/twinby/internal/api"
)

// timeLayout is fixed-width so timestamps also sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Options configures a Server.
type Options struct {
	// Secret signs bearer tokens. Empty picks a random secret.
	Secret string
	// TokenTTL defaults to 24h.
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Reply produces the assistant answer to a support question.
	Reply  func(question string) string
	Logger *zap.Logger
}

type user struct {
	id        string
	login     string
	hash      []byte
	name      string
	gender    string
	age       int
	about     string
	photo     string
	interests []string
}

type chat struct {
	id       string
	a, b     string
	messages []api.Message
}

type blob struct {
	mime string
	data []byte
}

// Server is an http.Handler holding all backend state in memory.
type Server struct {
	opts   Options
	secret []byte
	logger *zap.Logger
	router *mux.Router

	mu       sync.Mutex
	users    map[string]*user
	logins   map[string]string
	joined   []string
	swipes   map[string]map[string]api.Direction
	chats    map[string]*chat
	chatList []string
	pairs    map[[2]string]string
	support  map[string][]api.SupportMessage
	files    map[string]blob
	last     time.Time
	failNext int
	hits     map[string]int
}

// New creates an empty backend.
func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = uuid.NewString()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Reply == nil {
		opts.Reply = cannedReply
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		opts:    opts,
		secret:  []byte(opts.Secret),
		logger:  opts.Logger,
		users:   make(map[string]*user),
		logins:  make(map[string]string),
		swipes:  make(map[string]map[string]api.Direction),
		chats:   make(map[string]*chat),
		pairs:   make(map[[2]string]string),
		support: make(map[string][]api.SupportMessage),
		files:   make(map[string]blob),
		hits:    make(map[string]int),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.track)

	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/static/{name}", s.handleStatic).Methods(http.MethodGet)

	r.Handle("/me", s.authed(s.handleGetMe)).Methods(http.MethodGet)
	r.Handle("/me", s.authed(s.handleUpdateMe)).Methods(http.MethodPut)
	r.Handle("/feed", s.authed(s.handleFeed)).Methods(http.MethodGet)
	r.Handle("/swipe", s.authed(s.handleSwipe)).Methods(http.MethodPost)
	r.Handle("/chats", s.authed(s.handleListChats)).Methods(http.MethodGet)
	r.Handle("/chats/{chat_id}/messages", s.authed(s.handleListMessages)).Methods(http.MethodGet)
	r.Handle("/chats/{chat_id}/messages", s.authed(s.handleSendMessage)).Methods(http.MethodPost)
	r.Handle("/chats/{chat_id}/attachments", s.authed(s.handleUpload)).Methods(http.MethodPost)
	r.Handle("/support/messages", s.authed(s.handleListSupport)).Methods(http.MethodGet)
	r.Handle("/support/messages", s.authed(s.handleSendSupport)).Methods(http.MethodPost)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailRequests makes the next n matched requests answer 500.
func (s *Server) FailRequests(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Hits returns how many requests reached route, written as "METHOD /template",
// e.g. "GET /chats/{chat_id}/messages".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// track counts requests per route and applies injected failures.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tpl
			}
		}

		s.mu.Lock()
		s.hits[key]++
		fail := s.failNext > 0
		if fail {
			s.failNext--
		}
		s.mu.Unlock()

		s.logger.Debug("fakeapi request", zap.String("route", key), zap.Bool("injected_failure", fail))
		if fail {
			writeError(w, http.StatusInternalServerError, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authed resolves the bearer token to a user before calling h.
func (s *Server) authed(h func(http.ResponseWriter, *http.Request, *user)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		id, err := s.verifyToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.mu.Lock()
		u := s.users[id]
		s.mu.Unlock()
		if u == nil {
			writeError(w, http.StatusUnauthorized, "Inactive user")
			return
		}
		h(w, r, u)
	})
}

// now returns a strictly increasing UTC timestamp. Callers hold s.mu.
func (s *Server) now() string {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t.Format(timeLayout)
}

func cannedReply(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "password"):
		return "Passwords cannot be changed in the app yet. Write us your login and we will reset it."
	case strings.Contains(q, "photo"):
		return "Open your profile and pick a new photo. Changes are visible in the feed right away."
	case strings.Contains(q, "match") || strings.Contains(q, "chat"):
		return "A chat opens as soon as you swipe right on someone. Find it on the Chats tab."
	}
	return "Thanks for reaching out! Tell us a bit more and we will help."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type fieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// writeInvalid answers 422 with a list of field errors.
func writeInvalid(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{"detail": errs})
}
