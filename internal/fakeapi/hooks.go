package fakeapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinkering/twinby/internal/api"
)

var (
	ErrUnknownUser = errors.New("unknown user")
	ErrUnknownChat = errors.New("unknown chat")
	ErrLoginTaken  = errors.New("login already used")
)

// Seed describes a user created directly, bypassing the HTTP surface.
type Seed struct {
	Login     string
	Password  string
	Name      string
	Gender    string
	Age       int
	About     string
	Interests []string
}

// CreateUser adds a user without a photo and returns its id.
func (s *Server) CreateUser(in Seed) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.logins[in.Login]; taken {
		return "", fmt.Errorf("%w: %s", ErrLoginTaken, in.Login)
	}
	u := &user{
		id:        uuid.NewString(),
		login:     in.Login,
		hash:      hash,
		name:      in.Name,
		gender:    in.Gender,
		age:       in.Age,
		about:     in.About,
		interests: dedupe(in.Interests),
	}
	s.addUser(u)
	return u.id, nil
}

// UserID returns the id registered for login.
func (s *Server) UserID(login string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.logins[login]
	return id, ok
}

// CreateChat returns the chat between two users, creating it if needed.
func (s *Server) CreateChat(a, b string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[a] == nil || s.users[b] == nil {
		return "", ErrUnknownUser
	}
	return s.chatFor(a, b), nil
}

// PostMessage appends a message as if senderID had sent it, e.g. to simulate
// the counterpart writing while a client polls.
func (s *Server) PostMessage(chatID, senderID, text string) (api.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.memberChat(chatID, senderID)
	if c == nil {
		return api.Message{}, fmt.Errorf("%w: %s for sender %s", ErrUnknownChat, chatID, senderID)
	}
	return s.appendMessage(c, senderID, text), nil
}

// SeedDemo populates a few profiles for local development. Every demo user
// has the password "password".
func (s *Server) SeedDemo() error {
	demo := []Seed{
		{Login: "alice", Name: "Alice", Gender: "female", Age: 27, About: "Weekend hikes and film photography.", Interests: []string{"travel", "art", "movies"}},
		{Login: "boris", Name: "Boris", Gender: "male", Age: 31, About: "Backend dev, amateur goalkeeper.", Interests: []string{"coding", "football", "sports"}},
		{Login: "chen", Name: "Chen", Gender: "other", Age: 24, About: "Vinyl, synths and long books.", Interests: []string{"music", "reading"}},
		{Login: "dana", Name: "Dana", Gender: "female", Age: 29, About: "Looking for a concert buddy.", Interests: []string{"music", "travel"}},
	}
	for _, d := range demo {
		d.Password = "password"
		if _, err := s.CreateUser(d); err != nil && !errors.Is(err, ErrLoginTaken) {
			return fmt.Errorf("seed %s: %w", strings.ToLower(d.Login), err)
		}
	}
	return nil
}
