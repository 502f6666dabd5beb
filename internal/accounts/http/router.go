package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/billfold/accounts/internal/accounts/service"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/pkg/httpx"
	"github.com/billfold/accounts/pkg/jwtx"
	"github.com/billfold/accounts/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store  store.Store
	tokens kvstore.TokenStore

	UserService  *service.UserService
	TokenService *service.TokenService
	ResetService *service.ResetService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	tokens kvstore.TokenStore,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		tokens:       tokens,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerPasswordReset()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAccounts() {
	// POST /register - public signup endpoint, strict-ish limit
	r.Mux.Handle("POST /v1/accounts/register",
		httpx.Chain(&RegisterHandler{UserService: r.UserService, TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.LoginLimit),
		),
	)

	// POST /login - strict rate limit (credential guessing)
	r.Mux.Handle("POST /v1/accounts/login",
		httpx.Chain(&LoginHandler{UserService: r.UserService, TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.LoginLimit),
		),
	)

	// POST /token/refresh - refresh tokens are high-entropy, lenient limit
	r.Mux.Handle("POST /v1/accounts/token/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /logout - requires a valid access token
	r.Mux.Handle("POST /v1/accounts/logout",
		httpx.Chain(&LogoutHandler{TokenService: r.TokenService},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	// POST /forgot-password - strict limit; each request can send an email
	r.Mux.Handle("POST /v1/accounts/forgot-password",
		httpx.Chain(&ForgotPasswordHandler{ResetService: r.ResetService},
			httpx.RateLimitByIP(httpx.ResetRequestLimit),
		),
	)

	// POST /verify-reset-token - the rate limit is the only brute-force
	// defence, so it runs before the handler does any work
	r.Mux.Handle("POST /v1/accounts/verify-reset-token",
		httpx.Chain(&VerifyResetTokenHandler{ResetService: r.ResetService},
			httpx.RateLimitByIP(httpx.VerifyTokenLimit),
		),
	)

	// POST /reset-password - strict limit (token guessing + password writes)
	r.Mux.Handle("POST /v1/accounts/reset-password",
		httpx.Chain(&ResetPasswordHandler{ResetService: r.ResetService},
			httpx.RateLimitByIP(httpx.ResetConsumeLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.tokens))
}
