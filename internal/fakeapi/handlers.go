package fakeapi

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinkering/twinby/internal/api"
)

const maxUpload = 10 << 20

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form")
		return
	}

	var errs []fieldError
	invalid := func(field, msg string) {
		errs = append(errs, fieldError{Loc: []string{"body", field}, Msg: msg})
	}
	login, _ := formValue(r, "login")
	if len(login) < 3 || len(login) > 64 {
		invalid("login", "login must be 3 to 64 characters")
	}
	password, _ := formValue(r, "password")
	if len(password) < 6 || len(password) > 128 {
		invalid("password", "password must be 6 to 128 characters")
	}
	name, ok := formValue(r, "name")
	if !ok || len(name) > 64 {
		invalid("name", "name is required, at most 64 characters")
	}
	gender, _ := formValue(r, "gender")
	if !slices.Contains(api.Genders, gender) {
		invalid("gender", "gender must be one of "+strings.Join(api.Genders, ", "))
	}
	ageRaw, _ := formValue(r, "age")
	age, err := strconv.Atoi(ageRaw)
	if err != nil || age < api.MinAge || age > api.MaxAge {
		invalid("age", "age must be an integer between 18 and 99")
	}
	about, ok := formValue(r, "about")
	if !ok {
		invalid("about", "about is required")
	}
	interestsRaw, ok := formValue(r, "interests")
	if !ok {
		invalid("interests", "interests is required")
	}
	photo, photoHeader, err := r.FormFile("photo")
	if err != nil {
		invalid("photo", "photo is required")
	} else {
		defer func() { _ = photo.Close() }()
	}
	if len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}

	keys := dedupe(api.ParseInterests(interestsRaw))
	if len(keys) == 0 {
		writeError(w, http.StatusBadRequest, "Interests required")
		return
	}
	if !knownInterests(keys) {
		writeError(w, http.StatusBadRequest, "Unknown interest in list")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	data, err := io.ReadAll(photo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Photo upload failed")
		return
	}

	s.mu.Lock()
	if _, taken := s.logins[login]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Login already used")
		return
	}
	u := &user{
		id:        uuid.NewString(),
		login:     login,
		hash:      hash,
		name:      name,
		gender:    gender,
		age:       age,
		about:     about,
		photo:     s.storeFile(photoHeader, data),
		interests: keys,
	}
	s.addUser(u)
	s.mu.Unlock()

	s.writeToken(w, u.id)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	u := s.users[s.logins[req.Login]]
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.writeToken(w, u.id)
}

func (s *Server) writeToken(w http.ResponseWriter, userID string) {
	token, err := s.IssueToken(userID, s.opts.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	p := s.profile(r, u)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, u *user) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form")
		return
	}

	var errs []fieldError
	invalid := func(field, msg string) {
		errs = append(errs, fieldError{Loc: []string{"body", field}, Msg: msg})
	}
	name, hasName := formValue(r, "name")
	if hasName && len(name) > 64 {
		invalid("name", "name must be at most 64 characters")
	}
	gender, hasGender := formValue(r, "gender")
	if hasGender && !slices.Contains(api.Genders, gender) {
		invalid("gender", "gender must be one of "+strings.Join(api.Genders, ", "))
	}
	ageRaw, hasAge := formValue(r, "age")
	age, err := strconv.Atoi(ageRaw)
	if hasAge && (err != nil || age < api.MinAge || age > api.MaxAge) {
		invalid("age", "age must be an integer between 18 and 99")
	}
	about, hasAbout := formValue(r, "about")
	interestsRaw, hasInterests := formValue(r, "interests")
	if len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}
	keys := dedupe(api.ParseInterests(interestsRaw))
	if hasInterests && !knownInterests(keys) {
		writeError(w, http.StatusBadRequest, "Unknown interest in list")
		return
	}

	var photoData []byte
	var photoHeader *multipart.FileHeader
	if f, hdr, err := r.FormFile("photo"); err == nil {
		photoData, err = io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Photo upload failed")
			return
		}
		photoHeader = hdr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if hasName {
		u.name = name
	}
	if hasGender {
		u.gender = gender
	}
	if hasAge {
		u.age = age
	}
	if hasAbout {
		u.about = about
	}
	if hasInterests {
		u.interests = keys
	}
	if photoHeader != nil {
		u.photo = s.storeFile(photoHeader, photoData)
	}
	writeJSON(w, http.StatusOK, s.profile(r, u))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, u *user) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeInvalid(w, []fieldError{{Loc: []string{"query", "limit"}, Msg: "limit must be a non-negative integer"}})
			return
		}
		limit = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	swiped := s.swipes[u.id]
	users := make([]api.Profile, 0, limit)
	for i := len(s.joined) - 1; i >= 0 && len(users) < limit; i-- {
		id := s.joined[i]
		if id == u.id {
			continue
		}
		if _, done := swiped[id]; done {
			continue
		}
		users = append(users, s.profile(r, s.users[id]))
	}
	writeJSON(w, http.StatusOK, map[string][]api.Profile{"users": users})
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		TargetUserID string        `json:"target_user_id"`
		Direction    api.Direction `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.TargetUserID == u.id {
		writeError(w, http.StatusBadRequest, "Cannot swipe self")
		return
	}
	if req.Direction != api.Left && req.Direction != api.Right {
		writeError(w, http.StatusBadRequest, "Invalid direction")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[req.TargetUserID] == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if s.swipes[u.id] == nil {
		s.swipes[u.id] = make(map[string]api.Direction)
	}
	s.swipes[u.id][req.TargetUserID] = req.Direction

	var created *string
	if req.Direction == api.Right {
		id := s.chatFor(u.id, req.TargetUserID)
		created = &id
	}
	writeJSON(w, http.StatusOK, map[string]*string{"created_chat_id": created})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]api.ConversationSummary, 0)
	for i := len(s.chatList) - 1; i >= 0; i-- {
		c := s.chats[s.chatList[i]]
		if c.a != u.id && c.b != u.id {
			continue
		}
		otherID := c.a
		if otherID == u.id {
			otherID = c.b
		}
		other := s.users[otherID]
		sum := api.ConversationSummary{
			ConversationID:      c.id,
			CounterpartID:       otherID,
			CounterpartName:     other.name,
			CounterpartPhotoURL: s.photoURL(r, other.photo),
		}
		if n := len(c.messages); n > 0 {
			last := c.messages[n-1]
			sum.LastMessageText = &last.Text
			sum.LastMessageAt = &last.CreatedAt
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	c := s.memberChat(mux.Vars(r)["chat_id"], u.id)
	var msgs []api.Message
	if c != nil {
		msgs = slices.Clone(c.messages)
	}
	s.mu.Unlock()

	if c == nil {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	if msgs == nil {
		msgs = []api.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.memberChat(mux.Vars(r)["chat_id"], u.id)
	if c == nil {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Empty message")
		return
	}
	writeJSON(w, http.StatusOK, s.appendMessage(c, u.id, text))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	member := s.memberChat(mux.Vars(r)["chat_id"], u.id) != nil
	s.mu.Unlock()
	if !member {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeInvalid(w, []fieldError{{Loc: []string{"body", "file"}, Msg: "file is required"}})
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	s.mu.Lock()
	stored := s.storeFile(hdr, data)
	s.mu.Unlock()

	att := api.Attachment{URL: s.photoURL(r, stored), Name: hdr.Filename}
	if mt := hdr.Header.Get("Content-Type"); mt != "" {
		att.MIME = &mt
	}
	writeJSON(w, http.StatusOK, att)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b, ok := s.files[mux.Vars(r)["name"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if b.mime != "" {
		w.Header().Set("Content-Type", b.mime)
	}
	_, _ = w.Write(b.data)
}

func (s *Server) handleListSupport(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	msgs := slices.Clone(s.support[u.id])
	s.mu.Unlock()
	if msgs == nil {
		msgs = []api.SupportMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSendSupport(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Empty message")
		return
	}
	answer := s.opts.Reply(text)

	s.mu.Lock()
	ex := api.SupportExchange{
		UserMessage:      api.SupportMessage{ID: uuid.NewString(), Role: api.RoleUser, Text: text, CreatedAt: s.now()},
		AssistantMessage: api.SupportMessage{ID: uuid.NewString(), Role: api.RoleAssistant, Text: answer, CreatedAt: s.now()},
	}
	s.support[u.id] = append(s.support[u.id], ex.UserMessage, ex.AssistantMessage)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ex)
}

// The helpers below expect s.mu to be held.

func (s *Server) addUser(u *user) {
	s.users[u.id] = u
	s.logins[u.login] = u.id
	s.joined = append(s.joined, u.id)
}

func (s *Server) profile(r *http.Request, u *user) api.Profile {
	return api.Profile{
		UserID:    u.id,
		Name:      u.name,
		Gender:    u.gender,
		Age:       u.age,
		About:     u.about,
		PhotoURL:  s.photoURL(r, u.photo),
		Interests: slices.Clone(u.interests),
	}
}

func (s *Server) photoURL(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/static/" + name
}

func (s *Server) storeFile(hdr *multipart.FileHeader, data []byte) string {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(hdr.Filename))
	s.files[name] = blob{mime: hdr.Header.Get("Content-Type"), data: data}
	return name
}

// chatFor returns the chat between a and b, creating it on first use.
func (s *Server) chatFor(a, b string) string {
	key := [2]string{a, b}
	if b < a {
		key = [2]string{b, a}
	}
	if id, ok := s.pairs[key]; ok {
		return id
	}
	c := &chat{id: uuid.NewString(), a: key[0], b: key[1]}
	s.chats[c.id] = c
	s.chatList = append(s.chatList, c.id)
	s.pairs[key] = c.id
	return c.id
}

func (s *Server) memberChat(id, userID string) *chat {
	c := s.chats[id]
	if c == nil || (c.a != userID && c.b != userID) {
		return nil
	}
	return c
}

func (s *Server) appendMessage(c *chat, senderID, text string) api.Message {
	m := api.Message{
		ID:             uuid.NewString(),
		ConversationID: c.id,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      s.now(),
	}
	c.messages = append(c.messages, m)
	return m
}

func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	vs, ok := r.MultipartForm.Value[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

func knownInterests(keys []string) bool {
	for _, k := range keys {
		if !slices.Contains(api.Interests, k) {
			return false
		}
	}
	return true
}

func dedupe(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
