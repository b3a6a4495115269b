// Package client talks to a running mergington server over HTTP.
package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/store"
)

const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Detail, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL string
	http    fastshot.ClientHttpMethods
}

func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http: fastshot.NewClient(baseURL).
			Config().SetTimeout(timeout).
			Build(),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// List fetches every activity keyed by name.
func (c *Client) List() (map[string]registry.Activity, error) {
	resp, err := c.http.GET("/activities").Send()
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	var out map[string]registry.Activity
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	for name, a := range out {
		a.Name = name
		out[name] = a
	}
	return out, nil
}

func (c *Client) Signup(activity, email string) (string, error) {
	resp, err := c.http.POST(rosterPath(activity, registry.ActionSignup)).
		Query().AddParam("email", email).
		Send()
	if err != nil {
		return "", fmt.Errorf("signup: %w", err)
	}
	return decodeMessage(resp)
}

func (c *Client) Unregister(activity, email string) (string, error) {
	resp, err := c.http.DELETE(rosterPath(activity, registry.ActionUnregister)).
		Query().AddParam("email", email).
		Send()
	if err != nil {
		return "", fmt.Errorf("unregister: %w", err)
	}
	return decodeMessage(resp)
}

// Journal fetches recorded roster changes, newest first.
func (c *Client) Journal(query store.EnrollmentQuery) ([]store.Enrollment, error) {
	req := c.http.GET("/api/journal")
	if v := strings.TrimSpace(query.Activity); v != "" {
		req = req.Query().AddParam("activity", v)
	}
	if v := strings.TrimSpace(query.Email); v != "" {
		req = req.Query().AddParam("email", v)
	}
	if query.Limit > 0 {
		req = req.Query().AddParam("limit", strconv.Itoa(query.Limit))
	}
	resp, err := req.Send()
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	var out struct {
		Entries []store.Enrollment `json:"entries"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Entries == nil {
		out.Entries = []store.Enrollment{}
	}
	return out.Entries, nil
}

func rosterPath(activity, action string) string {
	return "/activities/" + url.PathEscape(activity) + "/" + action
}

func decodeMessage(resp *fastshot.Response) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := decode(resp, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func decode(resp *fastshot.Response, v any) error {
	defer resp.Body().Close()

	status := resp.Status().Code()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		var body struct {
			Detail string `json:"detail"`
		}
		_ = resp.Body().AsJSON(&body)
		return &APIError{Status: status, Detail: body.Detail}
	}
	if err := resp.Body().AsJSON(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
