// Package client is a Go SDK for the opportunity solution tree REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	fclient "github.com/gofiber/fiber/v3/client"
	"github.com/meikuraledutech/ost"
)

// APIError is returned for any response with status >= 400.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.Status)
}

// APIMessage returns the server's user-facing message, if any.
func (e *APIError) APIMessage() string { return e.Message }

// Client calls the API. It is safe for concurrent use.
type Client struct {
	http *fclient.Client
}

// Option configures New.
type Option func(*fclient.Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *fclient.Client) { c.SetTimeout(d) }
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *fclient.Client) { c.SetHeader(key, value) }
}

// New returns a client for the given base URL (e.g. "http://localhost:3000").
func New(baseURL string, opts ...Option) *Client {
	hc := fclient.New().SetBaseURL(baseURL)
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{http: hc}
}

// do sends one request and decodes the JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	cfg := fclient.Config{Ctx: ctx}
	if body != nil {
		cfg.Body = body
	}

	var (
		resp *fclient.Response
		err  error
	)
	switch method {
	case fiber.MethodGet:
		resp, err = c.http.Get(path, cfg)
	case fiber.MethodPost:
		resp, err = c.http.Post(path, cfg)
	case fiber.MethodPut:
		resp, err = c.http.Put(path, cfg)
	case fiber.MethodDelete:
		resp, err = c.http.Delete(path, cfg)
	default:
		return fmt.Errorf("api %s %s: unsupported method", method, path)
	}
	if err != nil {
		return fmt.Errorf("api %s %s: %w", method, path, err)
	}
	defer resp.Close()

	if resp.StatusCode() >= 400 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode()}
		var errBody struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(resp.Body(), &errBody) == nil {
			apiErr.Message = errBody.Message
		}
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("api %s %s: decode: %w", method, path, err)
		}
	}
	return nil
}

// putBody is the PUT shape: the id alongside the patched fields.
type putBody[P any] struct {
	ID    string `json:"id"`
	Patch P      `json:"-"`
}

func (b putBody[P]) MarshalJSON() ([]byte, error) {
	fields, err := json.Marshal(b.Patch)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	id, _ := json.Marshal(b.ID)
	m["id"] = id
	return json.Marshal(m)
}

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	err := c.do(ctx, fiber.MethodGet, path, nil, &out)
	return out, err
}

func create[T any](ctx context.Context, c *Client, path string, v T) (*T, error) {
	var out T
	if err := c.do(ctx, fiber.MethodPost, path, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func update[P, T any](ctx context.Context, c *Client, path, id string, p P) (*T, error) {
	var out T
	if err := c.do(ctx, fiber.MethodPut, path, putBody[P]{ID: id, Patch: p}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func remove(ctx context.Context, c *Client, path, id string) error {
	return c.do(ctx, fiber.MethodDelete, path+"/"+url.PathEscape(id), nil, nil)
}

// Health returns the /healthz response.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.do(ctx, fiber.MethodGet, "/healthz", nil, &out)
	return out.OK, err
}

// CreateSchema creates the server's tables.
func (c *Client) CreateSchema(ctx context.Context) error {
	return c.do(ctx, fiber.MethodPost, "/schema", nil, nil)
}

// ListOutcomes returns all outcomes.
func (c *Client) ListOutcomes(ctx context.Context) ([]ost.Outcome, error) {
	return list[ost.Outcome](ctx, c, "/outcomes")
}

// CreateOutcome creates an outcome and returns it with its server id.
func (c *Client) CreateOutcome(ctx context.Context, o ost.Outcome) (*ost.Outcome, error) {
	return create(ctx, c, "/outcomes", o)
}

// UpdateOutcome applies p and returns the stored outcome.
func (c *Client) UpdateOutcome(ctx context.Context, id string, p ost.OutcomePatch) (*ost.Outcome, error) {
	return update[ost.OutcomePatch, ost.Outcome](ctx, c, "/outcomes", id, p)
}

// DeleteOutcome deletes an outcome.
func (c *Client) DeleteOutcome(ctx context.Context, id string) error {
	return remove(ctx, c, "/outcomes", id)
}

// ListOpportunities returns all opportunities with linked evidence.
func (c *Client) ListOpportunities(ctx context.Context) ([]ost.Opportunity, error) {
	return list[ost.Opportunity](ctx, c, "/opportunities")
}

// CreateOpportunity creates an opportunity.
func (c *Client) CreateOpportunity(ctx context.Context, o ost.Opportunity) (*ost.Opportunity, error) {
	return create(ctx, c, "/opportunities", o)
}

// UpdateOpportunity applies p. Setting EvidenceIDs replaces the linked set.
func (c *Client) UpdateOpportunity(ctx context.Context, id string, p ost.OpportunityPatch) (*ost.Opportunity, error) {
	return update[ost.OpportunityPatch, ost.Opportunity](ctx, c, "/opportunities", id, p)
}

// DeleteOpportunity deletes an opportunity.
func (c *Client) DeleteOpportunity(ctx context.Context, id string) error {
	return remove(ctx, c, "/opportunities", id)
}

// ListSolutions returns all solutions.
func (c *Client) ListSolutions(ctx context.Context) ([]ost.Solution, error) {
	return list[ost.Solution](ctx, c, "/solutions")
}

// CreateSolution creates a solution.
func (c *Client) CreateSolution(ctx context.Context, s ost.Solution) (*ost.Solution, error) {
	return create(ctx, c, "/solutions", s)
}

// UpdateSolution applies p.
func (c *Client) UpdateSolution(ctx context.Context, id string, p ost.SolutionPatch) (*ost.Solution, error) {
	return update[ost.SolutionPatch, ost.Solution](ctx, c, "/solutions", id, p)
}

// DeleteSolution deletes a solution.
func (c *Client) DeleteSolution(ctx context.Context, id string) error {
	return remove(ctx, c, "/solutions", id)
}

// ListInterviews returns all interviews.
func (c *Client) ListInterviews(ctx context.Context) ([]ost.Interview, error) {
	return list[ost.Interview](ctx, c, "/interviews")
}

// CreateInterview creates an interview.
func (c *Client) CreateInterview(ctx context.Context, i ost.Interview) (*ost.Interview, error) {
	return create(ctx, c, "/interviews", i)
}

// UpdateInterview applies p.
func (c *Client) UpdateInterview(ctx context.Context, id string, p ost.InterviewPatch) (*ost.Interview, error) {
	return update[ost.InterviewPatch, ost.Interview](ctx, c, "/interviews", id, p)
}

// DeleteInterview deletes an interview and its evidence.
func (c *Client) DeleteInterview(ctx context.Context, id string) error {
	return remove(ctx, c, "/interviews", id)
}

// ListEvidence returns all evidence.
func (c *Client) ListEvidence(ctx context.Context) ([]ost.Evidence, error) {
	return list[ost.Evidence](ctx, c, "/evidence")
}

// CreateEvidence creates evidence under an interview.
func (c *Client) CreateEvidence(ctx context.Context, e ost.Evidence) (*ost.Evidence, error) {
	return create(ctx, c, "/evidence", e)
}

// UpdateEvidence applies p.
func (c *Client) UpdateEvidence(ctx context.Context, id string, p ost.EvidencePatch) (*ost.Evidence, error) {
	return update[ost.EvidencePatch, ost.Evidence](ctx, c, "/evidence", id, p)
}

// DeleteEvidence deletes evidence and unlinks it everywhere.
func (c *Client) DeleteEvidence(ctx context.Context, id string) error {
	return remove(ctx, c, "/evidence", id)
}
