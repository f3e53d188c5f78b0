package platform

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// Opaque tokens carry no expiry; keep them for a conservative while.
	opaqueTokenTTL = 10 * time.Minute
	expirySkew     = 30 * time.Second
)

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// tokenCache keeps one session token per login.
type tokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

func newTokenCache() *tokenCache {
	return &tokenCache{
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

func (c *tokenCache) get(login string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[login]
	if !ok || !c.now().Before(t.expiresAt) {
		delete(c.tokens, login)
		return "", false
	}
	return t.value, true
}

func (c *tokenCache) put(login, token string) {
	expiresAt := tokenExpiry(token, c.now())
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[login] = cachedToken{value: token, expiresAt: expiresAt}
}

func (c *tokenCache) drop(login string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, login)
}

// tokenExpiry reads exp from a JWT without verifying it; the platform is the
// only party that needs to trust the signature.
func tokenExpiry(token string, now time.Time) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return now.Add(opaqueTokenTTL)
	}
	return claims.ExpiresAt.Time.Add(-expirySkew)
}
