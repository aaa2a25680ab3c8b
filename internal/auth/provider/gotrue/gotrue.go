// Package gotrue implements provider.AuthProvider against a GoTrue-compatible
// hosted auth API (the /auth/v1 surface of the hosted backend).
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookmarks/internal/auth"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	apiPath    = "/auth/v1"
	clientInfo = "bookmarks-go/1.0"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client (timeouts, tracing transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a client for the project at projectURL, e.g.
// https://abc.example.co. The /auth/v1 prefix is appended here.
func New(projectURL, apiKey string, opts ...Option) (*Client, error) {
	if projectURL == "" || apiKey == "" {
		return nil, errors.New("gotrue: project url and api key are required")
	}
	u, err := url.Parse(projectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gotrue: invalid project url %q", projectURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/") + apiPath,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ provider.AuthProvider = (*Client)(nil)

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, "", map[string]string{
		"email":    email,
		"password": password,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return tr.session(c.now())
}

func (c *Client) SignUp(ctx context.Context, p provider.SignUpParams) (*provider.SignUpResult, error) {
	body := signUpRequest{
		Email:    p.Email,
		Password: p.Password,
		Data:     map[string]any{"name": p.Name},
	}
	if p.CodeChallenge != "" {
		body.CodeChallenge = p.CodeChallenge
		body.CodeChallengeMethod = "s256"
	}

	var query url.Values
	if p.RedirectTo != "" {
		query = url.Values{"redirect_to": {p.RedirectTo}}
	}

	var resp signUpResponse
	if err := c.do(ctx, http.MethodPost, "/signup", query, "", body, &resp); err != nil {
		return nil, err
	}

	// With email confirmation enabled the provider answers with the bare
	// user; with autoconfirm it answers with a full session.
	if resp.AccessToken != "" {
		sess, err := resp.tokenResponse.session(c.now())
		if err != nil {
			return nil, err
		}
		return &provider.SignUpResult{User: sess.User, Session: sess}, nil
	}
	if resp.userResponse.ID == "" {
		return nil, errors.New("gotrue: signup response carried neither user nor session")
	}
	return &provider.SignUpResult{User: resp.userResponse.user()}, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error) {
	if refreshToken == "" {
		return nil, &provider.Error{Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Refresh token missing"}
	}
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, "", map[string]string{
		"refresh_token": refreshToken,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return tr.session(c.now())
}

func (c *Client) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*auth.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"pkce"}}, "", map[string]string{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return tr.session(c.now())
}

// SignOut revokes the current session only. A token the provider no longer
// knows about counts as signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/logout", url.Values{"scope": {"local"}}, accessToken, nil, nil)
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			logger.Debug("gotrue sign-out on stale token", zap.Int("status", perr.Status))
			return nil
		}
	}
	return err
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*auth.User, error) {
	var ur userResponse
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &ur); err != nil {
		return nil, err
	}
	u := ur.user()
	return &u, nil
}

func (c *Client) AuthorizeURL(socialProvider, redirectTo, codeChallenge string) string {
	q := url.Values{"provider": {socialProvider}}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return c.baseURL + "/authorize?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("gotrue: build request: %w", err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Info", clientInfo)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("gotrue: close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decode %s response: %w", path, err)
	}
	return nil
}

// decodeError folds the provider's several error shapes into provider.Error.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var er errorResponse
	_ = json.Unmarshal(raw, &er)

	msg := firstNonEmpty(er.ErrorDescription, er.Msg, er.Message, er.Error)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	code := firstNonEmpty(er.ErrorCode, er.Error)

	return &provider.Error{
		Status:  resp.StatusCode,
		Code:    code,
		Message: msg,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type signUpRequest struct {
	Email               string         `json:"email"`
	Password            string         `json:"password"`
	Data                map[string]any `json:"data,omitempty"`
	CodeChallenge       string         `json:"code_challenge,omitempty"`
	CodeChallengeMethod string         `json:"code_challenge_method,omitempty"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

func (tr tokenResponse) session(now time.Time) (*auth.Session, error) {
	if tr.AccessToken == "" {
		return nil, errors.New("gotrue: token response without access_token")
	}

	var expiry time.Time
	switch {
	case tr.ExpiresAt > 0:
		expiry = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &auth.Session{
		Token: &oauth2.Token{
			AccessToken:  tr.AccessToken,
			TokenType:    tokenType,
			RefreshToken: tr.RefreshToken,
			Expiry:       expiry,
		},
		User: tr.User.user(),
	}, nil
}

type userResponse struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	AppMetadata      struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
}

func (ur userResponse) user() auth.User {
	return auth.User{
		ID:             ur.ID,
		Email:          ur.Email,
		Name:           metadataString(ur.UserMetadata, "name", "full_name", "user_name"),
		Provider:       ur.AppMetadata.Provider,
		EmailConfirmed: ur.EmailConfirmedAt != nil && !ur.EmailConfirmedAt.IsZero(),
	}
}

func metadataString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// signUpResponse covers both signup answers: a session, or the bare user.
type signUpResponse struct {
	tokenResponse
	userResponse
}

// UnmarshalJSON decodes the same payload into both halves; the embedded
// structs would otherwise shadow each other's "user" handling.
func (s *signUpResponse) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &s.tokenResponse); err != nil {
		return err
	}
	return json.Unmarshal(b, &s.userResponse)
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}
