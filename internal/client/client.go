// Package client provides an HTTP client for the visit-scheduler REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/message"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

// Client is an HTTP client for the visit-scheduler API.
type Client struct {
	http *resty.Client
}

// New creates a new API client. apiKey may be an API key or an access token.
func New(baseURL, apiKey string) *Client {
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		r.SetAuthToken(apiKey)
	}
	return &Client{http: r}
}

// Error is a failed API call as reported by the server's envelope.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TokenResponse is returned by Token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Token exchanges an API key for a short-lived access token.
func (c *Client) Token(ctx context.Context, apiKey string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", map[string]string{"api_key": apiKey}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var u auth.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// APIKey describes a stored key. The raw key is only returned on creation.
type APIKey struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

// CreatedKey is returned by CreateKey.
type CreatedKey struct {
	Key    string `json:"key"`
	APIKey APIKey `json:"api_key"`
}

// CreateKey creates an API key for the caller.
func (c *Client) CreateKey(ctx context.Context, name string) (*CreatedKey, error) {
	var resp CreatedKey
	if err := c.do(ctx, http.MethodPost, "/api/keys", map[string]string{"name": name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListKeys returns the caller's API keys.
func (c *Client) ListKeys(ctx context.Context) ([]APIKey, error) {
	keys := []APIKey{}
	if err := c.do(ctx, http.MethodGet, "/api/keys", nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// RevokeKey deletes one of the caller's API keys.
func (c *Client) RevokeKey(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/keys/%d", id), nil, nil)
}

// PropertyQuery filters ListProperties.
type PropertyQuery struct {
	Mine bool
	City string
}

// ListProperties returns properties, newest first.
func (c *Client) ListProperties(ctx context.Context, q PropertyQuery) ([]*property.Property, error) {
	params := url.Values{}
	if q.Mine {
		params.Set("mine", "true")
	}
	if q.City != "" {
		params.Set("city", q.City)
	}

	var props []*property.Property
	if err := c.do(ctx, http.MethodGet, withQuery("/api/properties", params), nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// NewProperty is the body of AddProperty.
type NewProperty struct {
	Title     string `json:"title"`
	Address   string `json:"address"`
	City      string `json:"city,omitempty"`
	RentCents *int64 `json:"rent_cents,omitempty"`
}

// AddProperty creates a property owned by the caller.
func (c *Client) AddProperty(ctx context.Context, p NewProperty) (*property.Property, error) {
	var out property.Property
	if err := c.do(ctx, http.MethodPost, "/api/properties", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProperty returns one property.
func (c *Client) GetProperty(ctx context.Context, id int64) (*property.Property, error) {
	var p property.Property
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/properties/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProperty removes a property and everything attached to it.
func (c *Client) DeleteProperty(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/properties/%d", id), nil, nil)
}

// SlotQuery filters ListSlots and AvailableSlots.
type SlotQuery struct {
	Bookable bool
	Time     string // morning, afternoon, evening
	Type     string // individual, group
}

func (q SlotQuery) values() url.Values {
	params := url.Values{}
	if q.Bookable {
		params.Set("bookable", "true")
	}
	if q.Time != "" {
		params.Set("time", q.Time)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	return params
}

// ListSlots returns a property's visit slots.
func (c *Client) ListSlots(ctx context.Context, propertyID int64, q SlotQuery) ([]*slot.VisitSlot, error) {
	var slots []*slot.VisitSlot
	path := withQuery(fmt.Sprintf("/api/properties/%d/visit-slots", propertyID), q.values())
	if err := c.do(ctx, http.MethodGet, path, nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

type slotsBody struct {
	Slots []slot.Draft `json:"slots"`
}

// SaveSlots replaces the property's slots with drafts.
func (c *Client) SaveSlots(ctx context.Context, propertyID int64, drafts []slot.Draft) ([]*slot.VisitSlot, error) {
	if drafts == nil {
		drafts = []slot.Draft{}
	}
	var slots []*slot.VisitSlot
	path := fmt.Sprintf("/api/properties/%d/visit-slots", propertyID)
	if err := c.do(ctx, http.MethodPost, path, slotsBody{Slots: drafts}, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// GenerateRequest describes a recurring slot window.
type GenerateRequest struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	DayStart        string   `json:"day_start"`
	DayEnd          string   `json:"day_end"`
	DurationMinutes int      `json:"duration_minutes"`
	Capacity        int      `json:"capacity,omitempty"`
	Group           bool     `json:"group,omitempty"`
	Weekdays        []string `json:"weekdays,omitempty"`
}

// GenerateSlots returns draft rows for a window without saving them.
func (c *Client) GenerateSlots(ctx context.Context, propertyID int64, req GenerateRequest) ([]slot.Draft, error) {
	var resp slotsBody
	path := fmt.Sprintf("/api/properties/%d/visit-slots/generate", propertyID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return resp.Slots, nil
}

// UpdateSlot applies a partial edit to one slot.
func (c *Client) UpdateSlot(ctx context.Context, propertyID int64, slotID string, patch slot.Patch) (*slot.VisitSlot, error) {
	var s slot.VisitSlot
	path := fmt.Sprintf("/api/properties/%d/visit-slots/%s", propertyID, url.PathEscape(slotID))
	if err := c.do(ctx, http.MethodPatch, path, patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSlot removes a slot without bookings.
func (c *Client) DeleteSlot(ctx context.Context, propertyID int64, slotID string) error {
	path := fmt.Sprintf("/api/properties/%d/visit-slots/%s", propertyID, url.PathEscape(slotID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ExportSchedule downloads the property's schedule workbook into w.
func (c *Client) ExportSchedule(ctx context.Context, propertyID int64, w io.Writer) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/properties/%d/visit-slots/export", propertyID))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	if _, err := w.Write(resp.Body()); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Apply files the caller's application for a property.
func (c *Client) Apply(ctx context.Context, propertyID int64) (*application.Application, error) {
	var a application.Application
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/properties/%d/applications", propertyID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListApplications returns a property's applications (owner).
func (c *Client) ListApplications(ctx context.Context, propertyID int64) ([]*application.Application, error) {
	var apps []*application.Application
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/properties/%d/applications", propertyID), nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// MyApplications returns the caller's own applications.
func (c *Client) MyApplications(ctx context.Context) ([]*application.Application, error) {
	var apps []*application.Application
	if err := c.do(ctx, http.MethodGet, "/api/applications", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApplication returns one application.
func (c *Client) GetApplication(ctx context.Context, id string) (*application.Application, error) {
	var a application.Application
	if err := c.do(ctx, http.MethodGet, appPath(id, ""), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Propose offers visit slots to the applicant.
func (c *Client) Propose(ctx context.Context, applicationID string, slotIDs []string, msg string) (*application.Application, error) {
	body := map[string]interface{}{"slot_ids": slotIDs, "message": msg}
	var a application.Application
	if err := c.do(ctx, http.MethodPost, appPath(applicationID, "/propose-visit-slots"), body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AvailableSlots returns the proposed slots still bookable, grouped by date.
func (c *Client) AvailableSlots(ctx context.Context, applicationID string, q SlotQuery) ([]slot.DateGroup, error) {
	var groups []slot.DateGroup
	if err := c.do(ctx, http.MethodGet, withQuery(appPath(applicationID, "/available-slots"), q.values()), nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Choose books one proposed slot.
func (c *Client) Choose(ctx context.Context, applicationID, slotID string) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.do(ctx, http.MethodPost, appPath(applicationID, "/choose-visit-slot"), map[string]string{"slot_id": slotID}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Advance applies an owner decision to the application.
func (c *Client) Advance(ctx context.Context, applicationID string, to application.Status) (*application.Application, error) {
	var a application.Application
	if err := c.do(ctx, http.MethodPost, appPath(applicationID, "/status"), map[string]string{"status": string(to)}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// History returns the application's status changes.
func (c *Client) History(ctx context.Context, applicationID string) ([]application.StatusEvent, error) {
	var events []application.StatusEvent
	if err := c.do(ctx, http.MethodGet, appPath(applicationID, "/history"), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Messages returns the messages attached to the application.
func (c *Client) Messages(ctx context.Context, applicationID string) ([]*message.Message, error) {
	var msgs []*message.Message
	if err := c.do(ctx, http.MethodGet, appPath(applicationID, "/messages"), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Visits returns the application's booked visits.
func (c *Client) Visits(ctx context.Context, applicationID string) ([]*visit.Visit, error) {
	var visits []*visit.Visit
	if err := c.do(ctx, http.MethodGet, appPath(applicationID, "/visits"), nil, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// UpdateVisit records a visit outcome.
func (c *Client) UpdateVisit(ctx context.Context, visitID string, status visit.Status) (*visit.Visit, error) {
	var v visit.Visit
	path := "/api/visits/" + url.PathEscape(visitID) + "/status"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"status": string(status)}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func appPath(id, suffix string) string {
	return "/api/applications/" + url.PathEscape(id) + suffix
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// do sends a JSON request and unwraps the response envelope into result.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

func decodeError(resp *resty.Response) error {
	apiErr := &Error{Status: resp.StatusCode()}
	var env envelope
	if json.Unmarshal(resp.Body(), &env) == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		return apiErr
	}
	apiErr.Message = "server error: " + strconv.Itoa(resp.StatusCode()) + " " + http.StatusText(resp.StatusCode())
	return apiErr
}
