// Package meetclient is a Go client for the meetsync API. It keeps the
// signed in identity in memory and refuses privileged meeting actions
// locally when the cached role does not allow them.
package meetclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const RoleAdmin = "admin"

var (
	ErrNotSignedIn = errors.New("meetclient: not signed in")
	// ErrSessionExpired is matched by an *APIError with status 401. The cached
	// session is dropped before it is returned.
	ErrSessionExpired = errors.New("meetclient: session expired")
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Session struct {
	User        User
	Token       string
	StreamToken string
}

type Meeting struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	StartsAt      time.Time `json:"startsAt"`
}

type SearchResult struct {
	Total    int64     `json:"total"`
	Meetings []Meeting `json:"meetings"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meetclient: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return nil
}

// GateError is returned without contacting the server when the cached
// identity may not perform an action.
type GateError struct {
	Title       string
	Description string
}

func (e *GateError) Error() string {
	return e.Title + ": " + e.Description
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	session *Session
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Session returns a copy of the cached session, or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/signup", body, nil)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var resp struct {
		Token       string `json:"token"`
		StreamToken string `json:"streamToken"`
		User        User   `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", body, &resp); err != nil {
		return nil, err
	}

	s := &Session{User: resp.User, Token: resp.Token, StreamToken: resp.StreamToken}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return c.Session(), nil
}

// SignOut drops the cached identity even when the request fails.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return err
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) CreateMeeting(ctx context.Context, title string) (*Meeting, error) {
	if err := c.requireAdmin("Only Admin can create meeting."); err != nil {
		return nil, err
	}
	var resp struct {
		Meeting Meeting `json:"meeting"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/meetings", map[string]string{"title": title}, &resp); err != nil {
		return nil, err
	}
	return &resp.Meeting, nil
}

func (c *Client) EndMeeting(ctx context.Context, id string) error {
	if err := c.requireAdmin("Only Admin can end meeting for everyone."); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/meetings/"+url.PathEscape(id)+"/end", nil, nil)
}

func (c *Client) SearchMeetings(ctx context.Context, query string, page, size int) (*SearchResult, error) {
	v := url.Values{}
	v.Set("q", query)
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}
	var res SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/meetings/search?"+v.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) requireAdmin(description string) error {
	s := c.Session()
	if s == nil {
		return ErrNotSignedIn
	}
	if s.User.Role != RoleAdmin {
		return &GateError{Title: "Not Authorized", Description: description}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s := c.Session(); s != nil && s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.Lock()
			c.session = nil
			c.mu.Unlock()
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
