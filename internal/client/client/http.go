package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/boostauth/internal/common"
)

const maxResponseBytes = 1 << 20

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a client for the session API at baseURL. A nil
// httpClient means http.DefaultClient.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (c *HTTPClient) Register(ctx context.Context, in RegisterInput) (string, error) {
	return c.token(ctx, "/api/v1/auth/register", in)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	return c.token(ctx, "/api/v1/auth/login", map[string]string{"email": email, "password": password})
}

func (c *HTTPClient) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	return c.token(ctx, "/api/v1/auth/google-oauth", map[string]string{"id_token": idToken})
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", token, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *HTTPClient) token(ctx context.Context, path string, body any) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" || !bearer(out.TokenType) {
		return "", fmt.Errorf("unexpected token response (type %q)", out.TokenType)
	}
	return out.AccessToken, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return mapStatus(resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}

func mapStatus(code int, body []byte) error {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	detail := e.Detail
	if detail == "" {
		detail = http.StatusText(code)
	}

	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, detail)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidInput, detail)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, detail)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, detail)
	}
}

// bearer reports whether tokenType is the scheme the server issues.
func bearer(tokenType string) bool {
	return strings.EqualFold(tokenType, common.BearerScheme)
}
