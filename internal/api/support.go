package api

import (
	"context"
	"net/http"
	"strings"
)

// ListSupportMessages returns the caller's support conversation, oldest first.
func (c *Client) ListSupportMessages(ctx context.Context) ([]SupportMessage, error) {
	var out []SupportMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/support/messages"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendSupportMessage posts a question and returns it with the assistant reply.
func (c *Client) SendSupportMessage(ctx context.Context, text string) (*SupportExchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Field: "text", Reason: "message is empty"}
	}
	r, err := jsonRequest(http.MethodPost, "/support/messages", textRequest{Text: text})
	if err != nil {
		return nil, err
	}
	var ex SupportExchange
	if err := c.do(ctx, r, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}
