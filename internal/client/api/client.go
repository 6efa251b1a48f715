// Package api is the HTTP client for the BookDrive server. It attaches the
// bearer token, decodes the JSON error envelope and maps HTTP statuses onto
// the shared sentinel errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
)

var ErrUnavailable = errors.New("server unavailable")

// Error is a non-2xx answer from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap lets callers match statuses with errors.Is and the common sentinels.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return common.ErrBadRequest
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrForbidden
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusConflict:
		return common.ErrConflict
	case http.StatusBadGateway:
		return common.ErrUploadFailed
	case http.StatusTooManyRequests:
		return common.ErrRateLimited
	default:
		return common.ErrorInternal
	}
}

// Client talks to a BookDrive server on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == "" {
		envelope.Error = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	return &Error{StatusCode: resp.StatusCode, Message: envelope.Error}
}

// Ping checks that the server answers its health probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil, "")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
