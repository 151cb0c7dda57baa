package api

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"Chat not found"}`, "Chat not found"},
		{"list", `{"detail":[{"loc":["body","age"],"msg":"too young"},{"msg":"bad gender"}]}`, "too young; bad gender"},
		{"no detail", `{"error":"x"}`, `{"error":"x"}`},
		{"plain text", "Internal Server Error\n", "Internal Server Error"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDetail([]byte(tt.body)); got != tt.want {
				t.Fatalf("parseDetail(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	tests := []struct {
		status       int
		unauthorized bool
		notFound     bool
	}{
		{401, true, false},
		{403, true, false},
		{404, false, true},
		{500, false, false},
	}

	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &Error{Method: "GET", Path: "/me", StatusCode: tt.status})
		if got := errors.Is(err, ErrUnauthorized); got != tt.unauthorized {
			t.Errorf("%d: Is(ErrUnauthorized) = %v", tt.status, got)
		}
		if got := errors.Is(err, ErrNotFound); got != tt.notFound {
			t.Errorf("%d: Is(ErrNotFound) = %v", tt.status, got)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ValidationError{Field: "age", Reason: "must be between 18 and 99"}, "invalid age: must be between 18 and 99"},
		{&Error{StatusCode: 401}, "not authorized, please log in again"},
		{&Error{StatusCode: 400, Detail: "Login already used"}, "Login already used"},
		{&Error{StatusCode: 502}, "server error (502)"},
		{errors.New("dial tcp: refused"), "dial tcp: refused"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseInterests(t *testing.T) {
	got := ParseInterests(" music, ,coding,")
	if len(got) != 2 || got[0] != "music" || got[1] != "coding" {
		t.Fatalf("ParseInterests = %v", got)
	}
	if got := ParseInterests(""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
