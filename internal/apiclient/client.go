// Package apiclient is a typed client for the deals HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pauljones0/maodevaca/internal/ai"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/moderation"
	"github.com/pauljones0/maodevaca/internal/util"
)

const (
	requestTimeout = 15 * time.Second
	getRetries     = 2
)

// codeErrors maps API error codes back to the sentinels callers test against.
var codeErrors = map[string]error{
	"USER_BANNED":        models.ErrUserBanned,
	"ALREADY_VOTED":      models.ErrAlreadyVoted,
	"UNAUTHENTICATED":    models.ErrNotAuthenticated,
	"FORBIDDEN":          models.ErrForbidden,
	"NOT_FOUND":          models.ErrDealNotFound,
	"INVALID":            models.ErrInvalidInput,
	"NOT_CONFIRMED":      models.ErrNotConfirmed,
	"INVALID_TRANSITION": models.ErrInvalidTransition,
	"UNCONFIGURED":       models.ErrUnconfigured,
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

// do sends one request. GETs are retried on transport errors and 5xx.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	send := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode, Code: "UPSTREAM", Message: resp.Status}
			var eb struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Code != "" {
				apiErr.Code = eb.Code
				apiErr.Message = eb.Error
			}
			return apiErr
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	}

	if method != http.MethodGet {
		return send()
	}
	return util.RetryWithBackoff(ctx, getRetries, 300*time.Millisecond, func(int) error {
		err := send()
		if err != nil && !retryable(err) {
			return util.Permanent(err)
		}
		return err
	})
}

// retryable is true for transport failures and 5xx answers.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// ListDeals fetches the approved deals, already filtered and sorted server side.
func (c *Client) ListDeals(ctx context.Context, search, category, payment, sort string) ([]models.Deal, error) {
	q := url.Values{}
	for k, v := range map[string]string{"q": search, "category": category, "payment": payment, "sort": sort} {
		if v != "" {
			q.Set(k, v)
		}
	}
	path := "/deals"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	deals := []models.Deal{}
	if err := c.do(ctx, http.MethodGet, path, nil, &deals); err != nil {
		return []models.Deal{}, err
	}
	return deals, nil
}

func (c *Client) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	var d models.Deal
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/deals/%d", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CreateDeal(ctx context.Context, input models.NewDeal) (*models.Deal, error) {
	var d models.Deal
	if err := c.do(ctx, http.MethodPost, "/deals", input, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Vote upvotes a deal and returns the server's temperature.
func (c *Client) Vote(ctx context.Context, dealID int64) (int, error) {
	var out struct {
		Temperature int `json:"temperature"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/deals/%d/vote", dealID), nil, &out); err != nil {
		return 0, err
	}
	return out.Temperature, nil
}

func (c *Client) ReportExpired(ctx context.Context, dealID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/deals/%d/report", dealID), nil, nil)
}

func (c *Client) Describe(ctx context.Context, title string, price float64, store string) (ai.Analysis, error) {
	var a ai.Analysis
	in := map[string]any{"title": title, "price": price, "storeName": store}
	err := c.do(ctx, http.MethodPost, "/assistant/describe", in, &a)
	return a, err
}

type Session struct {
	Token    string              `json:"token"`
	Identity *models.Identity    `json:"identity"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
}

// SignIn opens a session and keeps its token on the client.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/signin", map[string]string{"email": email, "password": password}, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/signup", map[string]string{"email": email, "password": password}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/reset", map[string]string{"email": email}, nil)
}

// SignOut ends the server session. The local token is dropped even when the call fails.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Me(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Dashboard(ctx context.Context) (*moderation.Dashboard, error) {
	var d moderation.Dashboard
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Moderate runs a confirmed action ("approve", "reject", "dismiss", "ban-owner") on a deal.
func (c *Client) Moderate(ctx context.Context, action string, dealID int64) (*moderation.Dashboard, error) {
	var d moderation.Dashboard
	path := fmt.Sprintf("/admin/deals/%d/%s", dealID, action)
	if err := c.do(ctx, http.MethodPost, path, map[string]bool{"confirm": true}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DeleteDeal(ctx context.Context, dealID int64) (*moderation.Dashboard, error) {
	var d moderation.Dashboard
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/deals/%d?confirm=true", dealID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) EditDeal(ctx context.Context, deal models.Deal) (*moderation.Dashboard, error) {
	body := struct {
		models.Deal
		Confirm bool `json:"confirm"`
	}{deal, true}
	var d moderation.Dashboard
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/deals/%d", deal.ID), body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ToggleBan(ctx context.Context, userID string) (*moderation.Dashboard, error) {
	var d moderation.Dashboard
	path := "/admin/users/" + url.PathEscape(userID) + "/ban"
	if err := c.do(ctx, http.MethodPost, path, map[string]bool{"confirm": true}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
