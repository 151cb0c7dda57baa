package api

import "io"

// Profile is a user's public profile.
type Profile struct {
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	Gender    string   `json:"gender"`
	Age       int      `json:"age"`
	About     string   `json:"about"`
	PhotoURL  string   `json:"photo_url"`
	Interests []string `json:"interests"`
}

// ConversationSummary is one row of the conversation list, computed server-side.
type ConversationSummary struct {
	ConversationID      string  `json:"chat_id"`
	CounterpartID       string  `json:"other_user_id"`
	CounterpartName     string  `json:"other_name"`
	CounterpartPhotoURL string  `json:"other_photo_url"`
	LastMessageText     *string `json:"last_message"`
	LastMessageAt       *string `json:"last_message_at"`
}

// LastAt returns LastMessageAt or "" when the conversation has no messages.
func (c ConversationSummary) LastAt() string {
	if c.LastMessageAt == nil {
		return ""
	}
	return *c.LastMessageAt
}

// LastText returns LastMessageText or "".
func (c ConversationSummary) LastText() string {
	if c.LastMessageText == nil {
		return ""
	}
	return *c.LastMessageText
}

// Message is immutable once created. CreatedAt is the raw server timestamp.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"chat_id"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
}

// Support message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SupportMessage is one entry of the support conversation.
type SupportMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// SupportExchange is the user's message and the assistant reply it produced.
type SupportExchange struct {
	UserMessage      SupportMessage `json:"user_message"`
	AssistantMessage SupportMessage `json:"assistant_message"`
}

// Attachment is an uploaded file reference.
type Attachment struct {
	URL  string  `json:"url"`
	Name string  `json:"name"`
	MIME *string `json:"mime"`
}

// Direction is a swipe direction.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// File is an upload body.
type File struct {
	Name    string
	MIME    string
	Content io.Reader
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type feedResponse struct {
	Users []Profile `json:"users"`
}

type swipeRequest struct {
	TargetUserID string    `json:"target_user_id"`
	Direction    Direction `json:"direction"`
}

type swipeResponse struct {
	CreatedChatID *string `json:"created_chat_id"`
}

type textRequest struct {
	Text string `json:"text"`
}
