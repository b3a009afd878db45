package crm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jzx17/crmclient/pkg/transport"
	"github.com/jzx17/crmclient/pkg/types"
)

// ContactsService manages contacts
type ContactsService struct {
	client *Client
}

type contactEnvelope struct {
	Contact Contact `json:"contact" validate:"required"`
}

type upsertEnvelope struct {
	New     bool    `json:"new"`
	Contact Contact `json:"contact" validate:"required"`
}

type tagsEnvelope struct {
	Tags []string `json:"tags" validate:"omitempty,dive,required"`
}

// contactBody is a ContactInput scoped to a location
type contactBody struct {
	LocationID string `json:"locationId"`
	ContactInput
}

// Get returns a contact by id
func (s *ContactsService) Get(ctx context.Context, contactID string, opts ...CallOption) (*Contact, error) {
	if err := requireID("contactId", contactID); err != nil {
		return nil, err
	}

	var out contactEnvelope
	req := transport.Request{Method: http.MethodGet, Path: "/contacts/" + escape(contactID)}
	if err := s.client.call(ctx, "contacts.get", req, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out.Contact, nil
}

// Create creates a contact in locationID (Config.LocationID when empty)
func (s *ContactsService) Create(ctx context.Context, locationID string, input ContactInput, opts ...CallOption) (*Contact, error) {
	loc, err := s.client.locationID(locationID)
	if err != nil {
		return nil, err
	}

	var out contactEnvelope
	req := transport.Request{
		Method: http.MethodPost,
		Path:   "/contacts/",
		Body:   contactBody{LocationID: loc, ContactInput: input},
	}
	if err := s.client.call(ctx, "contacts.create", req, input, &out, opts); err != nil {
		return nil, err
	}
	return &out.Contact, nil
}

// Update changes a contact
func (s *ContactsService) Update(ctx context.Context, contactID string, input ContactUpdate, opts ...CallOption) (*Contact, error) {
	if err := requireID("contactId", contactID); err != nil {
		return nil, err
	}

	var out contactEnvelope
	req := transport.Request{Method: http.MethodPut, Path: "/contacts/" + escape(contactID), Body: input}
	if err := s.client.call(ctx, "contacts.update", req, input, &out, opts); err != nil {
		return nil, err
	}
	return &out.Contact, nil
}

// Delete deletes a contact
func (s *ContactsService) Delete(ctx context.Context, contactID string) error {
	if err := requireID("contactId", contactID); err != nil {
		return err
	}

	req := transport.Request{Method: http.MethodDelete, Path: "/contacts/" + escape(contactID)}
	return s.client.call(ctx, "contacts.delete", req, nil, nil, nil)
}

// Upsert creates the contact or updates the one matching its email or phone.
// created reports whether a new contact was made.
func (s *ContactsService) Upsert(ctx context.Context, locationID string, input ContactInput, opts ...CallOption) (contact *Contact, created bool, err error) {
	loc, err := s.client.locationID(locationID)
	if err != nil {
		return nil, false, err
	}

	var out upsertEnvelope
	req := transport.Request{
		Method: http.MethodPost,
		Path:   "/contacts/upsert",
		Body:   contactBody{LocationID: loc, ContactInput: input},
	}
	if err := s.client.call(ctx, "contacts.upsert", req, input, &out, opts); err != nil {
		return nil, false, err
	}
	return &out.Contact, out.New, nil
}

// Search lists contacts of a location. Use Meta.StartAfterID and
// Meta.StartAfter of the result to request the next page.
func (s *ContactsService) Search(ctx context.Context, params ContactSearchParams, opts ...CallOption) (*ContactPage, error) {
	loc, err := s.client.locationID(params.LocationID)
	if err != nil {
		return nil, err
	}

	query := url.Values{"locationId": {loc}}
	if params.Query != "" {
		query.Set("query", params.Query)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.StartAfterID != "" {
		query.Set("startAfterId", params.StartAfterID)
	}
	if params.StartAfter > 0 {
		query.Set("startAfter", strconv.FormatInt(params.StartAfter, 10))
	}

	var out ContactPage
	req := transport.Request{Method: http.MethodGet, Path: "/contacts/", Query: query}
	if err := s.client.call(ctx, "contacts.search", req, params, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddTags adds tags to a contact and returns the resulting tag list
func (s *ContactsService) AddTags(ctx context.Context, contactID string, tags []string) ([]string, error) {
	return s.tags(ctx, http.MethodPost, "contacts.add_tags", contactID, tags)
}

// RemoveTags removes tags from a contact and returns the resulting tag list
func (s *ContactsService) RemoveTags(ctx context.Context, contactID string, tags []string) ([]string, error) {
	return s.tags(ctx, http.MethodDelete, "contacts.remove_tags", contactID, tags)
}

func (s *ContactsService) tags(ctx context.Context, method, op, contactID string, tags []string) ([]string, error) {
	if err := requireID("contactId", contactID); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, &types.ValidationError{Violations: []types.Violation{{Path: "tags", Message: "is required"}}}
	}

	body := tagsEnvelope{Tags: tags}
	var out tagsEnvelope
	req := transport.Request{Method: method, Path: "/contacts/" + escape(contactID) + "/tags", Body: body}
	if err := s.client.call(ctx, op, req, body, &out, nil); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// requireID reports an empty path identifier as a validation error
func requireID(name, id string) error {
	if id == "" {
		return &types.ValidationError{Violations: []types.Violation{{Path: name, Message: "is required"}}}
	}
	return nil
}
