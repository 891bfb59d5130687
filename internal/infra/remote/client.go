// Package remote implements the repository interfaces over the study-room REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskloop-sync/internal/dto"
	"taskloop-sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// TokenSource returns the token to attach to outgoing requests.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StoreTokens reads the token from a device store on every request, so a
// login or logout is picked up without rebuilding the client.
type StoreTokens struct {
	Store repository.DeviceStore
}

func (s StoreTokens) Token(ctx context.Context) (string, error) {
	token, err := s.Store.Get(ctx, repository.KeyToken)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return "", nil
	}
	return token, err
}

// StaticToken always returns the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client sends JSON requests to the API and maps failures to repository errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a client. httpClient is injected so callers control
// timeouts and transports.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		panic("http client cannot be nil for remote.Client")
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// do performs one request. in is encoded as the JSON body when non-nil; out
// receives the decoded response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	logCtx := logrus.WithFields(logrus.Fields{"method": method, "path": path})

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logCtx.WithError(err).Debug("Request failed before a response was received")
		return fmt.Errorf("%s %s: %w: %v", method, path, repository.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %v", method, path, repository.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &repository.APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Kind:   kindForStatus(resp.StatusCode),
		}
		var eb dto.ErrorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Message = eb.Message()
		}
		logCtx.WithField("status", resp.StatusCode).Debug("API returned an error status")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &repository.DecodeError{Endpoint: method + " " + path, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &repository.DecodeError{Endpoint: method + " " + path, Err: err}
	}
	return nil
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return repository.ErrUnauthorized
	case status == http.StatusForbidden:
		return repository.ErrForbidden
	case status == http.StatusNotFound:
		return repository.ErrNotFound
	case status >= 500:
		return repository.ErrUnavailable
	default:
		return repository.ErrRejected
	}
}

func decodeError(method, path string, err error) error {
	return &repository.DecodeError{Endpoint: method + " " + path, Err: err}
}
