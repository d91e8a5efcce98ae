package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rag-chat-client/apperr"
)

// TokenSource returns the current bearer token. It is read at call time so
// a sign-in that replaces the token takes effect on the next request.
type TokenSource func() string

// Client talks to the RAG backend. It issues exactly one network call per
// invocation and never retries on its own.
type Client struct {
	baseURL string
	client  *http.Client
	token   TokenSource
	log     zerolog.Logger
}

// New creates a backend client. The transport only bounds connection setup
// and response headers; streamed bodies have no overall timeout.
func New(baseURL string, token TokenSource, logger zerolog.Logger) *Client {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 120 * time.Second,
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		token:   token,
		log:     logger,
	}
}

// newRequest builds an authenticated JSON request against the backend.
func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// checkStatus maps a non-2xx response to a tagged error. The body is read
// for the server's message; callers must not reuse it afterwards.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Newf(apperr.KindAuth, "authentication rejected: %s", msg)
	case http.StatusNotFound:
		return apperr.Newf(apperr.KindNotFound, "resource not found: %s", msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.Newf(apperr.KindRejected, "request rejected by server: %s", msg)
	default:
		return apperr.Newf(apperr.KindTransport, "unexpected status %d: %s", resp.StatusCode, msg)
	}
}

// do runs a request and decodes the JSON response into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.New(apperr.KindTransport, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.New(apperr.KindTransport, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
