package crm

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jzx17/crmclient/pkg/transport"
)

// UsersService manages users
type UsersService struct {
	client *Client
}

type usersEnvelope struct {
	Users []User `json:"users" validate:"dive"`
}

// Get returns a user by id
func (s *UsersService) Get(ctx context.Context, userID string, opts ...CallOption) (*User, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}

	var out User
	req := transport.Request{Method: http.MethodGet, Path: "/users/" + escape(userID)}
	if err := s.client.call(ctx, "users.get", req, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the users of a location (Config.LocationID when empty)
func (s *UsersService) List(ctx context.Context, locationID string, opts ...CallOption) ([]User, error) {
	loc, err := s.client.locationID(locationID)
	if err != nil {
		return nil, err
	}

	var out usersEnvelope
	req := transport.Request{
		Method: http.MethodGet,
		Path:   "/users/",
		Query:  url.Values{"locationId": {loc}},
	}
	if err := s.client.call(ctx, "users.list", req, nil, &out, opts); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Create creates a user
func (s *UsersService) Create(ctx context.Context, input UserInput, opts ...CallOption) (*User, error) {
	var out User
	req := transport.Request{Method: http.MethodPost, Path: "/users/", Body: input}
	if err := s.client.call(ctx, "users.create", req, input, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes a user
func (s *UsersService) Update(ctx context.Context, userID string, input UserUpdate, opts ...CallOption) (*User, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}

	var out User
	req := transport.Request{Method: http.MethodPut, Path: "/users/" + escape(userID), Body: input}
	if err := s.client.call(ctx, "users.update", req, input, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete deletes a user
func (s *UsersService) Delete(ctx context.Context, userID string) error {
	if err := requireID("userId", userID); err != nil {
		return err
	}

	req := transport.Request{Method: http.MethodDelete, Path: "/users/" + escape(userID)}
	return s.client.call(ctx, "users.delete", req, nil, nil, nil)
}
