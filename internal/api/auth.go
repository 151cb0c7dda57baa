package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// Interests is the catalogue of interest keys the backend accepts.
var Interests = []string{"music", "sports", "coding", "movies", "travel", "art", "football", "reading"}

// Genders the backend accepts.
var Genders = []string{"male", "female", "other"}

// Age bounds enforced by the backend.
const (
	MinAge = 18
	MaxAge = 99
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Login     string
	Password  string
	Name      string
	Gender    string
	Age       int
	About     string
	Interests []string
	Photo     *File
}

// Validate checks the form locally so an incomplete submission never reaches
// the network.
func (in *RegisterInput) Validate() error {
	switch {
	case in.Photo == nil || in.Photo.Content == nil:
		return &ValidationError{Field: "photo", Reason: "a photo is required"}
	case len(strings.TrimSpace(in.Login)) < 3 || len(in.Login) > 64:
		return &ValidationError{Field: "login", Reason: "must be 3 to 64 characters"}
	case len(in.Password) < 6 || len(in.Password) > 128:
		return &ValidationError{Field: "password", Reason: "must be 6 to 128 characters"}
	case strings.TrimSpace(in.Name) == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case len(in.Name) > 64:
		return &ValidationError{Field: "name", Reason: "must be at most 64 characters"}
	case strings.TrimSpace(in.About) == "":
		return &ValidationError{Field: "about", Reason: "is required"}
	case len(in.Interests) == 0:
		return &ValidationError{Field: "interests", Reason: "pick at least one"}
	}
	if err := validateGender(in.Gender); err != nil {
		return err
	}
	if err := validateAge(in.Age); err != nil {
		return err
	}
	return validateInterests(in.Interests)
}

// Register creates an account and stores the returned token as the session.
func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	f := newForm()
	f.field("login", strings.TrimSpace(in.Login))
	f.field("password", in.Password)
	f.field("name", strings.TrimSpace(in.Name))
	f.field("gender", strings.TrimSpace(in.Gender))
	f.field("age", strconv.Itoa(in.Age))
	f.field("about", strings.TrimSpace(in.About))
	f.field("interests", strings.Join(in.Interests, ","))
	f.file("photo", in.Photo, "image/*")
	r, err := f.request(http.MethodPost, "/auth/register")
	if err != nil {
		return err
	}
	r.public = true

	var tok tokenResponse
	if err := c.do(ctx, r, &tok); err != nil {
		return err
	}
	return c.storeToken(tok)
}

// Login exchanges credentials for a token and stores it as the session.
func (c *Client) Login(ctx context.Context, login, password string) error {
	if strings.TrimSpace(login) == "" {
		return &ValidationError{Field: "login", Reason: "is required"}
	}
	if password == "" {
		return &ValidationError{Field: "password", Reason: "is required"}
	}

	r, err := jsonRequest(http.MethodPost, "/auth/login", loginRequest{Login: strings.TrimSpace(login), Password: password})
	if err != nil {
		return err
	}
	r.public = true

	var tok tokenResponse
	if err := c.do(ctx, r, &tok); err != nil {
		return err
	}
	return c.storeToken(tok)
}

// Logout forgets the session locally. The backend keeps no session state.
func (c *Client) Logout() error {
	return c.session.Set("")
}

// LoggedIn reports whether requests would currently be signed.
func (c *Client) LoggedIn() bool {
	return c.session.Token() != ""
}

func (c *Client) storeToken(tok tokenResponse) error {
	if tok.AccessToken == "" {
		return fmt.Errorf("backend returned an empty access token")
	}
	return c.session.Set(tok.AccessToken)
}

func validateGender(g string) error {
	if !slices.Contains(Genders, strings.TrimSpace(g)) {
		return &ValidationError{Field: "gender", Reason: "must be one of " + strings.Join(Genders, ", ")}
	}
	return nil
}

func validateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return &ValidationError{Field: "age", Reason: fmt.Sprintf("must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

func validateInterests(keys []string) error {
	for _, k := range keys {
		if !slices.Contains(Interests, k) {
			return &ValidationError{Field: "interests", Reason: fmt.Sprintf("unknown interest %q", k)}
		}
	}
	return nil
}

// ParseInterests splits a comma-separated list, dropping blanks.
func ParseInterests(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
