package app

import (
	"context"
	"net/http"
	"time"

	"bookmarks/internal/auth/handler"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/auth/provider/gotrue"
	"bookmarks/internal/auth/resolver"
	"bookmarks/internal/auth/token"
	"bookmarks/internal/config"
	"bookmarks/internal/logger"
	"bookmarks/internal/metrics"
	"bookmarks/internal/middleware"
	"bookmarks/internal/session"
	"bookmarks/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Pinger is anything /health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the router. setupHTTP fills them from
// real infrastructure; tests pass fakes.
type Deps struct {
	Provider provider.AuthProvider
	Sessions session.Store
	Resolver resolver.Resolver
	Verifier token.Verifier
	Registry *prometheus.Registry
	Checks   map[string]Pinger
}

func setupHTTP(ctx context.Context, cfg config.Config) (http.Handler, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	authClient, err := gotrue.New(cfg.AuthURL, cfg.AuthAnonKey, gotrue.WithHTTPClient(&http.Client{
		Timeout:   cfg.AuthTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, err := NewRouter(cfg, Deps{
		Provider: authClient,
		Sessions: session.NewRedisStore(infra.Redis.Client),
		Resolver: resolver.NewDBResolver(infra.DB),
		Verifier: verifier,
		Registry: reg,
		Checks: map[string]Pinger{
			"redis":    pingFunc(func(ctx context.Context) error { return infra.Redis.Ping(ctx).Err() }),
			"postgres": pingFunc(infra.DB.PingContext),
		},
	})
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	return otelhttp.NewHandler(router, "bookmarks"), infra.Close, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// newVerifier picks JWKS when enabled, else HS256 when a secret is set.
// Without either, access tokens are trusted until the provider rejects them.
func newVerifier(ctx context.Context, cfg config.Config) (token.Verifier, error) {
	issuer := cfg.AuthURL + "/auth/v1"
	switch {
	case cfg.AuthVerifyJWKS:
		logger.Info("access tokens verified via JWKS")
		return token.NewJWKSVerifier(ctx, issuer, issuer+"/.well-known/jwks.json")
	case cfg.AuthJWTSecret != "":
		logger.Info("access tokens verified via shared secret")
		return token.NewHMACVerifier(cfg.AuthJWTSecret, "authenticated")
	}
	return nil, nil
}

// NewRouter assembles the gin engine.
func NewRouter(cfg config.Config, d Deps) (*gin.Engine, error) {
	m, err := metrics.New(d.Registry)
	if err != nil {
		return nil, err
	}

	site := web.Site{Name: cfg.AppName, Description: cfg.AppDescription}
	cookie := session.CookieOptions{Secure: cfg.CookieSecure, SameSite: http.SameSiteLaxMode}

	sessions := middleware.NewSessionMiddleware(d.Sessions, d.Provider, cookie, cfg.SessionRefreshLeeway)
	sessions.Metrics = m
	if d.Verifier != nil {
		sessions.Verifier = d.Verifier
	}

	authHandler := handler.NewHandler(handler.Deps{
		Provider:    d.Provider,
		Socials:     provider.NewRegistry(cfg.OAuthProviders...),
		Sessions:    d.Sessions,
		Resolver:    d.Resolver,
		Site:        site,
		Cookie:      cookie,
		SessionTTL:  cfg.SessionTTL,
		CallbackURL: cfg.CallbackURL(),
		Metrics:     m,
	})
	pages := web.Pages{Site: site}

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		m.Middleware(),
	)

	router.GET("/health", health(d.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	router.StaticFS("/static", http.FS(web.Static()))

	// ----------------------------
	// Session-aware web routes
	// ----------------------------

	browser := router.Group("/")
	browser.Use(middleware.GinLoadSession(sessions))

	authHandler.RegisterRoutes(browser)
	browser.GET("/", pages.Home)

	// ----------------------------
	// Protected web routes
	// ----------------------------

	groups := browser.Group("/groups")
	groups.Use(middleware.GinRequireSession(sessions, "/login"))
	groups.GET("", pages.Groups)
	groups.GET("/*path", pages.Groups)

	router.NoRoute(pages.NotFound)

	for _, route := range router.Routes() {
		logger.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	return router, nil
}

func health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": result})
	}
}
