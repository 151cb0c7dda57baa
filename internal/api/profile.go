package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ProfileUpdate carries the fields to change; nil fields are left as they are.
// A non-nil empty Interests clears the list.
type ProfileUpdate struct {
	Name      *string
	Gender    *string
	Age       *int
	About     *string
	Interests []string
	Photo     *File
}

// Validate checks the provided fields.
func (u *ProfileUpdate) Validate() error {
	if u.Name != nil && (strings.TrimSpace(*u.Name) == "" || len(*u.Name) > 64) {
		return &ValidationError{Field: "name", Reason: "must be 1 to 64 characters"}
	}
	if u.Gender != nil {
		if err := validateGender(*u.Gender); err != nil {
			return err
		}
	}
	if u.Age != nil {
		if err := validateAge(*u.Age); err != nil {
			return err
		}
	}
	if u.Interests != nil {
		return validateInterests(u.Interests)
	}
	return nil
}

// Me returns the caller's own profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: "/me"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateMe changes the caller's profile and returns the result.
func (c *Client) UpdateMe(ctx context.Context, u ProfileUpdate) (*Profile, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	f := newForm()
	if u.Name != nil {
		f.field("name", strings.TrimSpace(*u.Name))
	}
	if u.Gender != nil {
		f.field("gender", strings.TrimSpace(*u.Gender))
	}
	if u.Age != nil {
		f.field("age", strconv.Itoa(*u.Age))
	}
	if u.About != nil {
		f.field("about", *u.About)
	}
	if u.Interests != nil {
		f.field("interests", strings.Join(u.Interests, ","))
	}
	if u.Photo != nil {
		f.file("photo", u.Photo, "image/*")
	}
	r, err := f.request(http.MethodPut, "/me")
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := c.do(ctx, r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Feed returns up to limit profiles the caller has not swiped yet.
func (c *Client) Feed(ctx context.Context, limit int) ([]Profile, error) {
	r := request{method: http.MethodGet, path: "/feed"}
	if limit > 0 {
		r.query = url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var resp feedResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Swipe records a decision on targetID. A right swipe returns the id of the
// conversation it created or joined; a left swipe returns "".
func (c *Client) Swipe(ctx context.Context, targetID string, dir Direction) (string, error) {
	if dir != Left && dir != Right {
		return "", &ValidationError{Field: "direction", Reason: "must be left or right"}
	}
	if strings.TrimSpace(targetID) == "" {
		return "", &ValidationError{Field: "target", Reason: "is required"}
	}

	r, err := jsonRequest(http.MethodPost, "/swipe", swipeRequest{TargetUserID: targetID, Direction: dir})
	if err != nil {
		return "", err
	}
	var resp swipeResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return "", err
	}
	if resp.CreatedChatID == nil {
		return "", nil
	}
	return *resp.CreatedChatID, nil
}
