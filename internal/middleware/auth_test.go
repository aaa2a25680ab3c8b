package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bookmarks/internal/auth"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/auth/token"
	"bookmarks/internal/metrics"
	"bookmarks/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	data    map[string]session.Session
	getErr  error
	deleted []string
}

func newMemStore(sessions ...session.Session) *memStore {
	s := &memStore{data: map[string]session.Session{}}
	for _, sess := range sessions {
		s.data[sess.SessionID] = sess
	}
	return s
}

func (m *memStore) Create(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.SessionID] = s
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Update(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.SessionID] = s
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

type fakeRefresher struct {
	calls int
	grant *auth.Session
	err   error
}

func (f *fakeRefresher) RefreshSession(_ context.Context, _ string) (*auth.Session, error) {
	f.calls++
	return f.grant, f.err
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(context.Context, string) (*token.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &token.Claims{Subject: "u-1"}, nil
}

func liveSession(tokenExpiry time.Time) session.Session {
	return session.Session{
		SessionID:         "sid",
		UserID:            "u-1",
		Email:             "ada@example.com",
		AccessToken:       "at-old",
		RefreshToken:      "rt-old",
		TokenType:         "bearer",
		TokenExpiresAt:    tokenExpiry,
		CreatedAt:         now.Add(-time.Hour),
		AbsoluteExpiresAt: now.Add(24 * time.Hour),
		ExpiresAt:         now.Add(24 * time.Hour),
	}
}

type harness struct {
	mw     *SessionMiddleware
	store  *memStore
	ref    *fakeRefresher
	router *gin.Engine
}

func newHarness(t *testing.T, store *memStore, ref *fakeRefresher) *harness {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	mw := NewSessionMiddleware(store, ref, session.CookieOptions{}, time.Minute)
	mw.Now = func() time.Time { return now }
	mw.Metrics = m

	r := gin.New()
	r.Use(GinLoadSession(mw))
	r.GET("/", func(c *gin.Context) {
		if s, ok := SessionFromContext(c.Request.Context()); ok {
			c.String(http.StatusOK, "user:"+s.UserID+":"+s.AccessToken)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	groups := r.Group("/groups", GinRequireSession(mw, "/login"))
	groups.GET("", func(c *gin.Context) { c.String(http.StatusOK, "groups") })
	groups.GET("/*path", func(c *gin.Context) { c.String(http.StatusOK, "group "+c.Param("path")) })

	return &harness{mw: mw, store: store, ref: ref, router: r}
}

func (h *harness) get(path string, withCookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: session.InsecureCookieName, Value: "sid"})
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func clearedCookie(rr *httptest.ResponseRecorder) bool {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.InsecureCookieName && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestAnonymousPublicRoute(t *testing.T) {
	h := newHarness(t, newMemStore(), &fakeRefresher{})

	rr := h.get("/", false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestProtectedRedirectsToLogin(t *testing.T) {
	h := newHarness(t, newMemStore(), &fakeRefresher{})

	for path, want := range map[string]string{
		"/groups":           "/login?next=%2Fgroups",
		"/groups/abc":       "/login?next=%2Fgroups%2Fabc",
		"/groups/abc/d?x=1": "/login?next=%2Fgroups%2Fabc%2Fd%3Fx%3D1",
	} {
		rr := h.get(path, false)
		assert.Equal(t, http.StatusTemporaryRedirect, rr.Code, path)
		assert.Equal(t, want, rr.Header().Get("Location"), path)
	}
}

func TestValidSessionPassesThrough(t *testing.T) {
	h := newHarness(t, newMemStore(liveSession(now.Add(time.Hour))), &fakeRefresher{})

	rr := h.get("/groups/abc", true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "group /abc", rr.Body.String())
	assert.Zero(t, h.ref.calls)
}

func TestUnknownSessionClearsCookie(t *testing.T) {
	h := newHarness(t, newMemStore(), &fakeRefresher{})

	rr := h.get("/", true)
	assert.Equal(t, "anonymous", rr.Body.String())
	assert.True(t, clearedCookie(rr))
}

func TestExpiringSessionIsRefreshed(t *testing.T) {
	ref := &fakeRefresher{grant: &auth.Session{
		Token: &oauth2.Token{AccessToken: "at-new", RefreshToken: "rt-new", TokenType: "bearer", Expiry: now.Add(time.Hour)},
		User:  auth.User{ID: "u-1"},
	}}
	h := newHarness(t, newMemStore(liveSession(now.Add(30*time.Second))), ref)

	rr := h.get("/", true)
	assert.Equal(t, "user:u-1:at-new", rr.Body.String())
	assert.Equal(t, 1, ref.calls)

	stored := h.store.data["sid"]
	assert.Equal(t, "at-new", stored.AccessToken)
	assert.Equal(t, "rt-new", stored.RefreshToken)
	assert.Equal(t, now, stored.RefreshedAt)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestRejectedRefreshDropsSession(t *testing.T) {
	ref := &fakeRefresher{err: &provider.Error{Status: http.StatusBadRequest, Message: "Invalid Refresh Token"}}
	h := newHarness(t, newMemStore(liveSession(now.Add(-time.Minute))), ref)

	rr := h.get("/groups/x", true)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login?next=%2Fgroups%2Fx", rr.Header().Get("Location"))
	assert.True(t, clearedCookie(rr))
	assert.Equal(t, []string{"sid"}, h.store.deleted)
}

func TestTransientRefreshFailure(t *testing.T) {
	ref := &fakeRefresher{err: errors.New("dial tcp: connection refused")}

	// token still valid for a few seconds: keep going with it
	h := newHarness(t, newMemStore(liveSession(now.Add(10*time.Second))), ref)
	rr := h.get("/", true)
	assert.Equal(t, "user:u-1:at-old", rr.Body.String())
	assert.Empty(t, h.store.deleted)

	// token already expired: anonymous for now, but the session survives
	h = newHarness(t, newMemStore(liveSession(now.Add(-time.Second))), ref)
	rr = h.get("/", true)
	assert.Equal(t, "anonymous", rr.Body.String())
	assert.Empty(t, h.store.deleted)
	assert.False(t, clearedCookie(rr))
}

func TestAbsoluteLifetimeExceeded(t *testing.T) {
	sess := liveSession(now.Add(time.Hour))
	sess.AbsoluteExpiresAt = now.Add(-time.Second)
	h := newHarness(t, newMemStore(sess), &fakeRefresher{})

	rr := h.get("/groups", true)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.True(t, clearedCookie(rr))
	assert.Zero(t, h.ref.calls)
}

func TestMissingRefreshTokenDropsSession(t *testing.T) {
	sess := liveSession(now.Add(-time.Minute))
	sess.RefreshToken = ""
	h := newHarness(t, newMemStore(sess), &fakeRefresher{})

	rr := h.get("/", true)
	assert.Equal(t, "anonymous", rr.Body.String())
	assert.Equal(t, []string{"sid"}, h.store.deleted)
	assert.Zero(t, h.ref.calls)
}

func TestVerifier(t *testing.T) {
	grant := &auth.Session{Token: &oauth2.Token{AccessToken: "at-new", Expiry: now.Add(time.Hour)}}

	t.Run("expired token refreshes", func(t *testing.T) {
		ref := &fakeRefresher{grant: grant}
		h := newHarness(t, newMemStore(liveSession(now.Add(time.Hour))), ref)
		h.mw.Verifier = fakeVerifier{err: token.ErrExpired}

		rr := h.get("/", true)
		assert.Equal(t, "user:u-1:at-new", rr.Body.String())
		assert.Equal(t, 1, ref.calls)
	})

	t.Run("forged token drops", func(t *testing.T) {
		h := newHarness(t, newMemStore(liveSession(now.Add(time.Hour))), &fakeRefresher{})
		h.mw.Verifier = fakeVerifier{err: errors.New("token: signature invalid")}

		rr := h.get("/", true)
		assert.Equal(t, "anonymous", rr.Body.String())
		assert.Equal(t, []string{"sid"}, h.store.deleted)
	})

	t.Run("keys unavailable keeps session", func(t *testing.T) {
		ref := &fakeRefresher{}
		h := newHarness(t, newMemStore(liveSession(now.Add(time.Hour))), ref)
		h.mw.Verifier = fakeVerifier{err: fmt.Errorf("%w: 503 Service Unavailable", token.ErrUnavailable)}

		rr := h.get("/", true)
		assert.Equal(t, "user:u-1:at-old", rr.Body.String())
		assert.Empty(t, h.store.deleted)
		assert.False(t, clearedCookie(rr))
		assert.Zero(t, ref.calls)
	})

	t.Run("valid token passes", func(t *testing.T) {
		h := newHarness(t, newMemStore(liveSession(now.Add(time.Hour))), &fakeRefresher{})
		h.mw.Verifier = fakeVerifier{}

		rr := h.get("/", true)
		assert.Equal(t, "user:u-1:at-old", rr.Body.String())
	})
}

func TestStoreOutageServesAnonymously(t *testing.T) {
	store := newMemStore(liveSession(now.Add(time.Hour)))
	store.getErr = errors.New("redis: connection refused")
	h := newHarness(t, store, &fakeRefresher{})

	rr := h.get("/", true)
	assert.Equal(t, "anonymous", rr.Body.String())
	assert.False(t, clearedCookie(rr))
}

func TestLoginRedirect(t *testing.T) {
	assert.Equal(t, "/login", LoginRedirect("/login", nil))
	req := httptest.NewRequest(http.MethodGet, "/groups/a%20b", nil)
	assert.Equal(t, "/login?next=%2Fgroups%2Fa%2520b", LoginRedirect("/login", req.URL))
}
