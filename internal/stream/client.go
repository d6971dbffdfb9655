package stream

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

	"github.com/golang-jwt/jwt/v5"
)

// ErrProviderUnavailable covers every failure talking to the video provider:
// transport errors, timeouts, rejected credentials and non-2xx answers.
var ErrProviderUnavailable = errors.New("video provider unavailable")

const DefaultBaseURL = "https://video.stream-io-api.com"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Image string `json:"image,omitempty"`
}

type CallRequest struct {
	CreatedByID string         `json:"created_by_id,omitempty"`
	StartsAt    time.Time      `json:"starts_at"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// Client talks to the Stream video REST API with server-side credentials.
type Client struct {
	apiKey     string
	secret     []byte
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, secret, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// CreateToken mints a user token the browser SDK accepts.
func (c *Client) CreateToken(userID string, iat, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     iat.Unix(),
		"exp":     exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign user token: %v", ErrProviderUnavailable, err)
	}
	return token, nil
}

func (c *Client) serverToken() (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true}).SignedString(c.secret)
}

func (c *Client) UpsertUsers(ctx context.Context, users ...User) error {
	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return c.do(ctx, http.MethodPost, "/api/v2/users", map[string]any{"users": byID})
}

func (c *Client) GetOrCreateCall(ctx context.Context, callType, callID string, req CallRequest) error {
	path := fmt.Sprintf("/api/v2/video/call/%s/%s", url.PathEscape(callType), url.PathEscape(callID))
	return c.do(ctx, http.MethodPost, path, map[string]any{"data": req})
}

func (c *Client) EndCall(ctx context.Context, callType, callID string) error {
	path := fmt.Sprintf("/api/v2/video/call/%s/%s/mark_ended", url.PathEscape(callType), url.PathEscape(callID))
	return c.do(ctx, http.MethodPost, path, map[string]any{})
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("stream: encode body: %w", err)
	}

	auth, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("%w: sign server token: %v", ErrProviderUnavailable, err)
	}

	endpoint := c.baseURL + path + "?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("stream: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrProviderUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
