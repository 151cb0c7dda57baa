package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// ListConversations returns the caller's conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var out []ConversationSummary
	if err := c.do(ctx, request{method: http.MethodGet, path: "/chats"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages returns every message of a conversation in server order.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	if err := c.do(ctx, request{method: http.MethodGet, path: messagesPath(conversationID)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts text to a conversation and returns the created message.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Field: "text", Reason: "message is empty"}
	}
	r, err := jsonRequest(http.MethodPost, messagesPath(conversationID), textRequest{Text: text})
	if err != nil {
		return nil, err
	}
	var m Message
	if err := c.do(ctx, r, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UploadAttachment stores a file for a conversation and returns its URL.
func (c *Client) UploadAttachment(ctx context.Context, conversationID string, file *File) (*Attachment, error) {
	if file == nil || file.Content == nil {
		return nil, &ValidationError{Field: "file", Reason: "is required"}
	}
	f := newForm()
	f.file("file", file, "application/octet-stream")
	r, err := f.request(http.MethodPost, "/chats/"+url.PathEscape(conversationID)+"/attachments")
	if err != nil {
		return nil, err
	}
	var a Attachment
	if err := c.do(ctx, r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func messagesPath(conversationID string) string {
	return "/chats/" + url.PathEscape(conversationID) + "/messages"
}
