package middlewares

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/rate"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := ChainFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }, tag("a"), tag("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "h"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
}

type limiterFunc func(ctx context.Context, key string) (rate.Result, error)

func (f limiterFunc) Allow(ctx context.Context, key string) (rate.Result, error) { return f(ctx, key) }

func TestWithRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("fails open on limiter error", func(t *testing.T) {
		h := Chain(ok, WithRateLimit(RateLimitConfig{Limiter: limiterFunc(func(context.Context, string) (rate.Result, error) {
			return rate.Result{}, errors.New("redis down")
		})}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denies with retry headers", func(t *testing.T) {
		var gotKey string
		h := Chain(ok, WithRateLimit(RateLimitConfig{
			KeyFunc: LoginRateKey,
			Limiter: limiterFunc(func(_ context.Context, key string) (rate.Result, error) {
				gotKey = key
				return rate.Result{Allowed: false, RetryAfter: 1500 * time.Millisecond, WindowTTL: 2 * time.Second}, nil
			}),
		}))
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":" A@X.com ","password":"p"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.7:51234"
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
		assert.Equal(t, "10.0.0.7|a@x.com", gotKey)
	})

	t.Run("whitelist skips limiter", func(t *testing.T) {
		h := Chain(ok, WithRateLimit(RateLimitConfig{
			Whitelist: []string{"/healthz"},
			Limiter: limiterFunc(func(context.Context, string) (rate.Result, error) {
				return rate.Result{Allowed: false}, nil
			}),
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestWithClientIP(t *testing.T) {
	resolve := func(mw Middleware, remote string, xff ...string) string {
		var got string
		h := Chain(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = clientIP(r)
		}), mw)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		for _, v := range xff {
			req.Header.Add("X-Forwarded-For", v)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	t.Run("ignores forwarded header without trusted proxies", func(t *testing.T) {
		assert.Equal(t, "198.51.100.4", resolve(WithClientIP(nil), "198.51.100.4:4000", "1.2.3.4"))
	})

	t.Run("untrusted peer keeps remote addr", func(t *testing.T) {
		mw := WithClientIP([]string{"10.0.0.0/8"})
		assert.Equal(t, "198.51.100.4", resolve(mw, "198.51.100.4:4000", "1.2.3.4"))
	})

	t.Run("trusted peer yields rightmost untrusted hop", func(t *testing.T) {
		mw := WithClientIP([]string{"10.0.0.0/8", "192.168.1.10"})
		assert.Equal(t, "203.0.113.9", resolve(mw, "10.0.0.2:4000", "1.2.3.4, 203.0.113.9, 192.168.1.10"))
		assert.Equal(t, "203.0.113.9", resolve(mw, "10.0.0.2:4000", "1.2.3.4", "203.0.113.9"))
	})

	t.Run("all hops trusted falls back to leftmost", func(t *testing.T) {
		mw := WithClientIP([]string{"10.0.0.0/8"})
		assert.Equal(t, "10.0.0.9", resolve(mw, "10.0.0.2:4000", "10.0.0.9, 10.0.0.5"))
	})

	t.Run("garbage hop stops the walk", func(t *testing.T) {
		mw := WithClientIP([]string{"10.0.0.0/8"})
		assert.Equal(t, "10.0.0.5", resolve(mw, "10.0.0.2:4000", "evil, 10.0.0.5"))
	})

	t.Run("spoofed header does not change the login key", func(t *testing.T) {
		ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		var keys []string
		h := Chain(ok, WithClientIP([]string{"10.0.0.0/8"}), WithRateLimit(RateLimitConfig{
			KeyFunc: LoginRateKey,
			Limiter: limiterFunc(func(_ context.Context, key string) (rate.Result, error) {
				keys = append(keys, key)
				return rate.Result{Allowed: true}, nil
			}),
		}))
		for _, spoof := range []string{"", "1.1.1.1", "2.2.2.2, 3.3.3.3"} {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@x.com"}`))
			req.Header.Set("Content-Type", "application/json")
			req.RemoteAddr = "10.0.0.2:4000"
			if spoof != "" {
				req.Header.Set("X-Forwarded-For", spoof+", 198.51.100.4")
			} else {
				req.Header.Set("X-Forwarded-For", "198.51.100.4")
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
		}
		require.Len(t, keys, 3)
		for _, k := range keys {
			assert.Equal(t, "198.51.100.4|a@x.com", k)
		}
	})
}

func TestParseTrustedProxies(t *testing.T) {
	got := ParseTrustedProxies([]string{" 10.1.2.3/8 ", "192.168.1.10", "::ffff:172.16.0.1", "nope", ""})
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
	assert.Equal(t, "192.168.1.10/32", got[1].String())
	assert.Equal(t, "172.16.0.1/32", got[2].String())
}

func TestExtractJSONFieldRestoresBody(t *testing.T) {
	body := `{"email":"a@x.com","password":"` + strings.Repeat("x", 5000) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// el body excede el límite de lectura: no se extrae, pero se repone entero
	assert.Equal(t, "", extractJSONField(req, "email", 4096))
	rest, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(rest))
}

type sessionsFunc func(ctx context.Context, sid, uid string) error

func (f sessionsFunc) ValidateSession(ctx context.Context, sid, uid string) error {
	return f(ctx, sid, uid)
}

type rolesFunc func(ctx context.Context, uid string) (repository.Role, error)

func (f rolesFunc) RoleOf(ctx context.Context, uid string) (repository.Role, error) {
	return f(ctx, uid)
}

func TestRequireAuthAndAdmin(t *testing.T) {
	ks, err := jwtx.NewEphemeralKeySet()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("test", ks, time.Minute)
	tok, _, err := issuer.IssueAccess("u1", map[string]any{"sid": "s1", "email": "a@x.com"})
	require.NoError(t, err)

	var got Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	active := sessionsFunc(func(context.Context, string, string) error { return nil })
	revoked := sessionsFunc(func(context.Context, string, string) error { return ErrSessionInactive })

	call := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := call(Chain(final, RequireAuth(issuer, active), RequireAdmin(rolesFunc(func(context.Context, string) (repository.Role, error) {
		return repository.RoleAdmin, nil
	}))))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Principal{UserID: "u1", SessionID: "s1", Email: "a@x.com", Role: repository.RoleAdmin}, got)

	rec = call(Chain(final, RequireAuth(issuer, revoked)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_EXPIRED")

	rec = call(Chain(final, RequireAuth(issuer, active), RequireAdmin(rolesFunc(func(context.Context, string) (repository.Role, error) {
		return "", repository.ErrNotFound
	}))))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(Chain(final, RequireAuth(issuer, active), RequireAdmin(rolesFunc(func(context.Context, string) (repository.Role, error) {
		return "", repository.ErrUnavailable
	}))))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	noSid, _, err := issuer.IssueAccess("u1", nil)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+noSid)
	rec = httptest.NewRecorder()
	Chain(final, RequireAuth(issuer, active)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
