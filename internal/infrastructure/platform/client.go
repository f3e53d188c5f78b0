// Package platform is the HTTP client of the external trading platform that
// holds the partners' trading accounts.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

const (
	loginPath       = "/api/auth/login"
	closedTradePath = "/api/trades/closed"
	legacyTradePath = "/api/trades/history"
	profilePath     = "/api/clients/%s/profile"

	maxErrorBody = 2048
)

// List keys an object response may carry its items under.
var envelopeKeys = []string{"data", "items", "trades", "result", "rows"}

var tokenFields = []string{"token", "accessToken", "access_token"}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	MaxPages int
}

// APIError is a non-2xx answer of the platform.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return []error{domain.ErrUpstreamAuth, domain.ErrUpstream}
	}
	return []error{domain.ErrUpstream}
}

type Client struct {
	baseURL  string
	client   *http.Client
	pageSize int
	maxPages int
	tokens   *tokenCache
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		tokens:   newTokenCache(),
		logger:   logger,
	}
}

// Authenticate exchanges an account's credentials for a session token.
// Tokens are reused until shortly before they expire.
func (c *Client) Authenticate(ctx context.Context, login, password string) (string, error) {
	if token, ok := c.tokens.get(login); ok {
		return token, nil
	}

	payload, err := json.Marshal(map[string]string{"login": login, "password": password})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	var body map[string]any
	if err := c.do(ctx, http.MethodPost, loginPath, nil, "", bytes.NewReader(payload), &body); err != nil {
		return "", err
	}

	token, ok := domain.RawTrade(body).String(tokenFields)
	if !ok {
		if data, isObj := body["data"].(map[string]any); isObj {
			token, ok = domain.RawTrade(data).String(tokenFields)
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: login response carries no token", domain.ErrUpstreamAuth)
	}

	c.tokens.put(login, token)
	return token, nil
}

// ClosedTrades pages through the account's closed trades in [from, to].
// Platforms without the closed-trades endpoint are served by the legacy
// history endpoint.
func (c *Client) ClosedTrades(ctx context.Context, token, login string, from, to time.Time) ([]domain.RawTrade, error) {
	trades, err := c.pagedTrades(ctx, closedTradePath, token, login, from, to)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusMethodNotAllowed) {
		c.logger.Debug("closed trades endpoint unavailable, using history", "login", login)
		return c.pagedTrades(ctx, legacyTradePath, token, login, from, to)
	}
	if errors.Is(err, domain.ErrUpstreamAuth) {
		c.tokens.drop(login)
	}
	return trades, err
}

func (c *Client) pagedTrades(ctx context.Context, path, token, login string, from, to time.Time) ([]domain.RawTrade, error) {
	var all []domain.RawTrade
	for page := 1; page <= c.maxPages; page++ {
		query := url.Values{}
		query.Set("login", login)
		query.Set("from", from.UTC().Format(time.RFC3339))
		query.Set("to", to.UTC().Format(time.RFC3339))
		query.Set("page", strconv.Itoa(page))
		query.Set("pageSize", strconv.Itoa(c.pageSize))

		var body any
		if err := c.do(ctx, http.MethodGet, path, query, token, nil, &body); err != nil {
			return nil, err
		}

		items := extractItems(body)
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				all = append(all, domain.RawTrade(obj))
			}
		}
		if len(items) < c.pageSize {
			return all, nil
		}
	}
	c.logger.Warn("closed trades truncated at page limit", "login", login, "pages", c.maxPages)
	return all, nil
}

// ClientGroup returns the account's current broker group path.
func (c *Client) ClientGroup(ctx context.Context, token, login string) (string, error) {
	var body map[string]any
	path := fmt.Sprintf(profilePath, url.PathEscape(login))
	if err := c.do(ctx, http.MethodGet, path, nil, token, nil, &body); err != nil {
		return "", err
	}

	profile := domain.RawTrade(body)
	if group, ok := profile.String(domain.GroupFields); ok {
		return group, nil
	}
	for _, key := range envelopeKeys {
		if nested, ok := body[key].(map[string]any); ok {
			if group, ok := domain.RawTrade(nested).String(domain.GroupFields); ok {
				return group, nil
			}
		}
	}
	return "", nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body io.Reader, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(snippet))}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %w", domain.ErrUpstream, path, err)
	}
	return nil
}

// extractItems accepts a bare array or an object holding the array under one
// of the envelope keys, nested at most one level deep.
func extractItems(body any) []any {
	return extractItemsDepth(body, 2)
}

func extractItemsDepth(body any, depth int) []any {
	switch v := body.(type) {
	case []any:
		return v
	case map[string]any:
		if depth == 0 {
			return nil
		}
		for _, key := range envelopeKeys {
			if inner, ok := lookupKey(v, key); ok {
				if items := extractItemsDepth(inner, depth-1); items != nil {
					return items
				}
			}
		}
	}
	return nil
}

func lookupKey(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
