package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bookmarks/internal/auth"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/session"
	"bookmarks/internal/web"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

const userID = "6f1c2a36-1b53-4f7e-9a55-3b8c1d8e0c11"

type fakeProvider struct {
	mu sync.Mutex

	signInErr  error
	signUpErr  error
	signUpRes  *provider.SignUpResult
	exchangeFn func(code, verifier string) (*auth.Session, error)
	signOutErr error

	signInCalls []string
	signUps     []provider.SignUpParams
	signOuts    []string
	authorize   []string
}

func grantFor(access string) *auth.Session {
	return &auth.Session{
		Token: &oauth2.Token{AccessToken: access, RefreshToken: "rt", TokenType: "bearer", Expiry: testNow.Add(time.Hour)},
		User:  auth.User{ID: userID, Email: "ada@example.com", Name: "Ada", Provider: "email"},
	}
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, _ string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls = append(f.signInCalls, email)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return grantFor("at-login"), nil
}

func (f *fakeProvider) SignUp(_ context.Context, p provider.SignUpParams) (*provider.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, p)
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.signUpRes != nil {
		return f.signUpRes, nil
	}
	return &provider.SignUpResult{User: auth.User{ID: userID, Email: p.Email, Name: p.Name}}, nil
}

func (f *fakeProvider) RefreshSession(context.Context, string) (*auth.Session, error) {
	return grantFor("at-refreshed"), nil
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*auth.Session, error) {
	if f.exchangeFn != nil {
		return f.exchangeFn(code, verifier)
	}
	return grantFor("at-code"), nil
}

func (f *fakeProvider) SignOut(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts = append(f.signOuts, accessToken)
	return f.signOutErr
}

func (f *fakeProvider) GetUser(context.Context, string) (*auth.User, error) {
	return &auth.User{ID: userID}, nil
}

func (f *fakeProvider) AuthorizeURL(socialProvider, redirectTo, codeChallenge string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorize = append(f.authorize, redirectTo)
	q := url.Values{"provider": {socialProvider}, "redirect_to": {redirectTo}, "code_challenge": {codeChallenge}}
	return "https://auth.example.test/auth/v1/authorize?" + q.Encode()
}

type memStore struct {
	mu   sync.Mutex
	data map[string]session.Session
}

func newMemStore() *memStore { return &memStore{data: map[string]session.Session{}} }

func (m *memStore) Create(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.SessionID] = s
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Update(ctx context.Context, s session.Session) error { return m.Create(ctx, s) }

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fakeResolver struct {
	users []auth.User
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, u auth.User) (string, error) {
	f.users = append(f.users, u)
	return u.ID, f.err
}

type env struct {
	h        *Handler
	provider *fakeProvider
	store    *memStore
	resolver *fakeResolver
	router   *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{provider: &fakeProvider{}, store: newMemStore(), resolver: &fakeResolver{}}
	e.h = NewHandler(Deps{
		Provider:    e.provider,
		Socials:     provider.NewRegistry("google"),
		Sessions:    e.store,
		Resolver:    e.resolver,
		Site:        web.Site{Name: "Bookmarks", Description: "Save and share your bookmarks"},
		SessionTTL:  24 * time.Hour,
		CallbackURL: "http://localhost:8080/auth/callback",
	})
	e.h.now = func() time.Time { return testNow }

	e.router = gin.New()
	e.h.RegisterRoutes(e.router)
	return e
}

const csrf = "csrf-token-value"

// post submits the login form with a matching CSRF cookie.
func (e *env) post(form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", csrf)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: csrf})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *env) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func responseCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func httptestRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func serve(e *env, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}
