package crm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jzx17/crmclient/pkg/cache"
	"github.com/jzx17/crmclient/pkg/transport"
)

// OpportunitiesService manages opportunities and pipelines
type OpportunitiesService struct {
	client    *Client
	pipelines *cache.TTL[string, *PipelineMap]
}

type opportunityEnvelope struct {
	Opportunity Opportunity `json:"opportunity" validate:"required"`
}

type opportunityBody struct {
	LocationID string `json:"locationId"`
	OpportunityInput
}

type statusBody struct {
	Status string `json:"status" validate:"required,oneof=open won lost abandoned"`
}

// Get returns an opportunity by id
func (s *OpportunitiesService) Get(ctx context.Context, opportunityID string, opts ...CallOption) (*Opportunity, error) {
	if err := requireID("opportunityId", opportunityID); err != nil {
		return nil, err
	}

	var out opportunityEnvelope
	req := transport.Request{Method: http.MethodGet, Path: "/opportunities/" + escape(opportunityID)}
	if err := s.client.call(ctx, "opportunities.get", req, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out.Opportunity, nil
}

// Create creates an opportunity in locationID (Config.LocationID when empty)
func (s *OpportunitiesService) Create(ctx context.Context, locationID string, input OpportunityInput, opts ...CallOption) (*Opportunity, error) {
	loc, err := s.client.locationID(locationID)
	if err != nil {
		return nil, err
	}

	var out opportunityEnvelope
	req := transport.Request{
		Method: http.MethodPost,
		Path:   "/opportunities/",
		Body:   opportunityBody{LocationID: loc, OpportunityInput: input},
	}
	if err := s.client.call(ctx, "opportunities.create", req, input, &out, opts); err != nil {
		return nil, err
	}
	return &out.Opportunity, nil
}

// Update changes an opportunity
func (s *OpportunitiesService) Update(ctx context.Context, opportunityID string, input OpportunityUpdate, opts ...CallOption) (*Opportunity, error) {
	if err := requireID("opportunityId", opportunityID); err != nil {
		return nil, err
	}

	var out opportunityEnvelope
	req := transport.Request{Method: http.MethodPut, Path: "/opportunities/" + escape(opportunityID), Body: input}
	if err := s.client.call(ctx, "opportunities.update", req, input, &out, opts); err != nil {
		return nil, err
	}
	return &out.Opportunity, nil
}

// Delete deletes an opportunity
func (s *OpportunitiesService) Delete(ctx context.Context, opportunityID string) error {
	if err := requireID("opportunityId", opportunityID); err != nil {
		return err
	}

	req := transport.Request{Method: http.MethodDelete, Path: "/opportunities/" + escape(opportunityID)}
	return s.client.call(ctx, "opportunities.delete", req, nil, nil, nil)
}

// UpdateStatus sets the status of an opportunity (open, won, lost or abandoned)
func (s *OpportunitiesService) UpdateStatus(ctx context.Context, opportunityID, status string) error {
	if err := requireID("opportunityId", opportunityID); err != nil {
		return err
	}

	body := statusBody{Status: status}
	req := transport.Request{
		Method: http.MethodPut,
		Path:   "/opportunities/" + escape(opportunityID) + "/status",
		Body:   body,
	}
	return s.client.call(ctx, "opportunities.update_status", req, body, nil, nil)
}

// Search lists opportunities of a location, page by page
func (s *OpportunitiesService) Search(ctx context.Context, params OpportunitySearchParams, opts ...CallOption) (*OpportunityPage, error) {
	loc, err := s.client.locationID(params.LocationID)
	if err != nil {
		return nil, err
	}

	query := url.Values{"location_id": {loc}}
	set := func(key, value string) {
		if value != "" {
			query.Set(key, value)
		}
	}
	set("pipeline_id", params.PipelineID)
	set("pipeline_stage_id", params.PipelineStageID)
	set("status", params.Status)
	set("contact_id", params.ContactID)
	set("q", params.Query)
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}

	var out OpportunityPage
	req := transport.Request{Method: http.MethodGet, Path: "/opportunities/search", Query: query}
	if err := s.client.call(ctx, "opportunities.search", req, params, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// MoveToStage moves an opportunity to the stage of pipelineID named
// stageName (case-insensitive). The stage is resolved through the pipeline
// cache; an unknown stage yields ErrStageNotFound.
func (s *OpportunitiesService) MoveToStage(ctx context.Context, opportunityID, locationID, pipelineID, stageName string) (*Opportunity, error) {
	if err := requireID("opportunityId", opportunityID); err != nil {
		return nil, err
	}

	stage, ok, err := s.FindStageByName(ctx, locationID, pipelineID, stageName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &StageNotFoundError{PipelineID: pipelineID, StageName: stageName}
	}

	return s.Update(ctx, opportunityID, OpportunityUpdate{
		PipelineID:      pipelineID,
		PipelineStageID: stage.ID,
	})
}

// StageNotFoundError reports a stage name missing from a pipeline
type StageNotFoundError struct {
	PipelineID string
	StageName  string
}

func (e *StageNotFoundError) Error() string {
	return "crm: stage " + strconv.Quote(e.StageName) + " not found in pipeline " + e.PipelineID
}

// Is matches ErrStageNotFound
func (e *StageNotFoundError) Is(target error) bool {
	return target == ErrStageNotFound
}

// ErrStageNotFound matches a *StageNotFoundError
var ErrStageNotFound = errors.New("stage not found")
