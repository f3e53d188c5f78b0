package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestAuthenticateCachesToken(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, loginPath, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "1001", body["login"])
		logins.Add(1)
		writeJSON(t, w, map[string]any{"data": map[string]any{"accessToken": "opaque-token"}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	for i := 0; i < 3; i++ {
		token, err := c.Authenticate(context.Background(), "1001", "secret")
		require.NoError(t, err)
		require.Equal(t, "opaque-token", token)
	}
	require.EqualValues(t, 1, logins.Load())
}

func TestAuthenticateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Authenticate(context.Background(), "1001", "wrong")
	require.ErrorIs(t, err, domain.ErrUpstreamAuth)
	require.ErrorIs(t, err, domain.ErrUpstream)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "bad credentials")
}

func TestClosedTradesPagesThroughEnvelope(t *testing.T) {
	var pages []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, closedTradePath, r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "1001", r.URL.Query().Get("login"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)

		var items []map[string]any
		switch page {
		case 1:
			items = []map[string]any{{"orderId": 1, "symbol": "EURUSD"}, {"orderId": 2, "symbol": "EURUSD"}}
		case 2:
			items = []map[string]any{{"orderId": 3, "symbol": "GBPUSD"}}
		}
		writeJSON(t, w, map[string]any{"data": map[string]any{"items": items, "total": 3}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, PageSize: 2}, nil)
	trades, err := c.ClosedTrades(context.Background(), "tok", "1001", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, trades, 3)
	require.Equal(t, []int{1, 2}, pages)

	id, ok := trades[2].ExternalID()
	require.True(t, ok)
	require.Equal(t, "3", id)
}

func TestClosedTradesFallsBackToHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case closedTradePath:
			http.NotFound(w, r)
		case legacyTradePath:
			writeJSON(t, w, []map[string]any{{"Ticket": "77", "Symbol": "XAUUSD", "Volume": 100}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	trades, err := c.ClosedTrades(context.Background(), "tok", "1001", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, trades, 1)

	id, ok := trades[0].ExternalID()
	require.True(t, ok)
	require.Equal(t, "77", id)
}

func TestClosedTradesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).ClosedTrades(context.Background(), "tok", "1001", time.Now(), time.Now())
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.NotErrorIs(t, err, domain.ErrUpstreamAuth)
}

func TestClientGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/clients/1001/profile":
			writeJSON(t, w, map[string]any{"login": "1001", "groupName": "real\\bbook\\pro"})
		case "/api/clients/1002/profile":
			writeJSON(t, w, map[string]any{"result": map[string]any{"Group": "demo/std"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	group, err := c.ClientGroup(context.Background(), "tok", "1001")
	require.NoError(t, err)
	require.Equal(t, "real\\bbook\\pro", group)

	group, err = c.ClientGroup(context.Background(), "tok", "1002")
	require.NoError(t, err)
	require.Equal(t, "demo/std", group)

	_, err = c.ClientGroup(context.Background(), "tok", "1003")
	require.ErrorIs(t, err, domain.ErrUpstream)
}

func TestExtractItems(t *testing.T) {
	decode := func(s string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(s), &v))
		return v
	}

	require.Len(t, extractItems(decode(`[{"id":1},{"id":2}]`)), 2)
	require.Len(t, extractItems(decode(`{"trades":[{"id":1}]}`)), 1)
	require.Len(t, extractItems(decode(`{"Rows":[{"id":1}]}`)), 1)
	require.Len(t, extractItems(decode(`{"result":{"data":[{"id":1},{"id":2},{"id":3}]}}`)), 3)
	require.Nil(t, extractItems(decode(`{"a":{"b":{"items":[{"id":1}]}}}`)))
	require.Nil(t, extractItems(decode(`{"data":null}`)))
}

func TestTokenExpiryFromJWT(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(time.Hour)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("platform-secret"))
	require.NoError(t, err)

	require.WithinDuration(t, exp.Add(-expirySkew), tokenExpiry(signed, now), 0)
	require.WithinDuration(t, now.Add(opaqueTokenTTL), tokenExpiry("not-a-jwt", now), 0)
}
