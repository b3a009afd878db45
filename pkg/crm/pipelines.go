package crm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jzx17/crmclient/pkg/transport"
)

// PipelineMap maps pipeline ids to pipelines, keeping API order
type PipelineMap struct {
	ids  []string
	byID map[string]Pipeline
}

// NewPipelineMap indexes pipelines by id; a repeated id keeps its first
// position and its last value
func NewPipelineMap(pipelines []Pipeline) *PipelineMap {
	m := &PipelineMap{byID: make(map[string]Pipeline, len(pipelines))}
	for _, p := range pipelines {
		if _, seen := m.byID[p.ID]; !seen {
			m.ids = append(m.ids, p.ID)
		}
		m.byID[p.ID] = p
	}
	return m
}

// Get returns the pipeline with the given id
func (m *PipelineMap) Get(id string) (Pipeline, bool) {
	p, ok := m.byID[id]
	return p, ok
}

// IDs returns the pipeline ids in API order
func (m *PipelineMap) IDs() []string {
	return append([]string(nil), m.ids...)
}

// Pipelines returns the pipelines in API order
func (m *PipelineMap) Pipelines() []Pipeline {
	out := make([]Pipeline, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.byID[id])
	}
	return out
}

// Len returns the number of pipelines
func (m *PipelineMap) Len() int {
	return len(m.ids)
}

// StageByName returns the first stage of pipelineID whose name matches
// name case-insensitively
func (m *PipelineMap) StageByName(pipelineID, name string) (StageRef, bool) {
	p, ok := m.byID[pipelineID]
	if !ok {
		return StageRef{}, false
	}
	for _, stage := range p.Stages {
		if strings.EqualFold(stage.Name, name) {
			return StageRef{ID: stage.ID, Name: stage.Name}, true
		}
	}
	return StageRef{}, false
}

type pipelinesEnvelope struct {
	Pipelines []Pipeline `json:"pipelines" validate:"dive"`
}

// ListPipelines fetches the pipelines of a location, bypassing the cache
func (s *OpportunitiesService) ListPipelines(ctx context.Context, locationID string, opts ...CallOption) ([]Pipeline, error) {
	loc, err := s.client.locationID(locationID)
	if err != nil {
		return nil, err
	}

	var out pipelinesEnvelope
	req := transport.Request{
		Method: http.MethodGet,
		Path:   "/opportunities/pipelines",
		Query:  url.Values{"locationId": {loc}},
	}
	if err := s.client.call(ctx, "opportunities.list_pipelines", req, nil, &out, opts); err != nil {
		return nil, err
	}
	return out.Pipelines, nil
}

// LoadPipelinesCache returns the pipelines of a location from the cache, or
// fetches and caches them when the entry is missing or older than the TTL
func (s *OpportunitiesService) LoadPipelinesCache(ctx context.Context, locationID string) (*PipelineMap, error) {
	loc, err := s.client.locationID(locationID)
	if err != nil {
		return nil, err
	}

	if m, ok := s.pipelines.Get(loc); ok {
		return m, nil
	}

	pipelines, err := s.ListPipelines(ctx, loc)
	if err != nil {
		return nil, err
	}

	m := NewPipelineMap(pipelines)
	s.pipelines.Set(loc, m)
	s.client.logger.DebugContext(ctx, "pipelines cached", "location_id", loc, "pipelines", m.Len())
	return m, nil
}

// FindStageByName looks a stage up by name (case-insensitive, first match)
// in a cached pipeline. ok is false when the pipeline or the stage is unknown.
func (s *OpportunitiesService) FindStageByName(ctx context.Context, locationID, pipelineID, name string) (stage StageRef, ok bool, err error) {
	m, err := s.LoadPipelinesCache(ctx, locationID)
	if err != nil {
		return StageRef{}, false, err
	}
	stage, ok = m.StageByName(pipelineID, name)
	return stage, ok, nil
}

// ClearPipelinesCache drops the cached pipelines of locationID, or of every
// location when locationID is empty
func (s *OpportunitiesService) ClearPipelinesCache(locationID string) {
	if locationID == "" {
		s.pipelines.Clear()
		return
	}
	s.pipelines.Delete(locationID)
}
