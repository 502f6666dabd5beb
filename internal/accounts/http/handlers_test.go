package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	accountshttp "github.com/billfold/accounts/internal/accounts/http"
	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/billfold/accounts/internal/accounts/service"
	"github.com/billfold/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/billfold/accounts/pkg/jwtx"
	"github.com/billfold/accounts/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// captureMailer records reset tokens instead of delivering them.
type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, token)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "expected a reset email")
	return m.sent[len(m.sent)-1]
}

type testServer struct {
	router *accountshttp.Router
	mailer *captureMailer

	// nextIP hands every request a distinct client address unless the test
	// pins one, so unrelated requests never share a rate-limit bucket.
	mu     sync.Mutex
	nextIP int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "accounts_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens := kvstore.NewMemoryStore()
	mailer := &captureMailer{}
	signer := jwtx.NewHS256([]byte("test-secret"), "accounts-test")
	logger := slogx.New(slogx.Config{Service: "accounts-test", Level: "error", Format: "text"})

	router := accountshttp.NewRouter(signer, "test", st, tokens, logger)
	router.UserService = &service.UserService{Store: st}
	router.TokenService = &service.TokenService{
		Signer:     signer,
		Store:      st,
		Issuer:     "accounts-test",
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	router.ResetService = &service.ResetService{
		Store:    st,
		Tokens:   tokens,
		Mailer:   mailer,
		TokenTTL: time.Hour,
	}
	router.ApplyRoutes()

	return &testServer{router: router, mailer: mailer}
}

type request struct {
	method string
	path   string
	body   any
	bearer string
	ip     string // optional fixed client IP
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	r := httptest.NewRequest(req.method, req.path, body)
	r.Header.Set("Content-Type", "application/json")
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	ip := req.ip
	if ip == "" {
		s.mu.Lock()
		s.nextIP++
		ip = fmt.Sprintf("198.51.100.%d", s.nextIP%250+1)
		s.mu.Unlock()
	}
	r.RemoteAddr = ip + ":4000"

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, r)
	return rec
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func (s *testServer) register(t *testing.T, email, password string) {
	t.Helper()
	rec := s.do(t, request{
		method: http.MethodPost,
		path:   "/v1/accounts/register",
		body: map[string]string{
			"email":            email,
			"first_name":       "Alice",
			"last_name":        "Nguyen",
			"password":         password,
			"password_confirm": password,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Expires int    `json:"expires_in"`
}

func (s *testServer) login(t *testing.T, email, password string) tokenPair {
	t.Helper()
	rec := s.do(t, request{
		method: http.MethodPost,
		path:   "/v1/accounts/login",
		body:   map[string]string{"email": email, "password": password},
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var pair tokenPair
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &pair))
	return pair
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("creates an account", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/register",
			body: map[string]string{
				"email":            "alice@example.com",
				"first_name":       "Alice",
				"last_name":        "Nguyen",
				"password":         "correct horse battery",
				"password_confirm": "correct horse battery",
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		env := decodeEnvelope(t, rec)
		require.True(t, env.Status)
		require.Contains(t, string(env.Data), "alice@example.com")
		// Signup signs the client in: a token pair rides along.
		var pair tokenPair
		require.NoError(t, json.Unmarshal(env.Data, &pair))
		require.NotEmpty(t, pair.Access)
		require.NotEmpty(t, pair.Refresh)
		// The password never appears in the response.
		require.NotContains(t, rec.Body.String(), "correct horse battery")
	})

	t.Run("validation failures list each field", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/register",
			body:   map[string]string{"email": "nope", "password": "123"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		env := decodeEnvelope(t, rec)
		require.False(t, env.Status)
		require.NotEmpty(t, env.Errors)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")

		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/register",
			body: map[string]string{
				"email":            "alice@example.com",
				"first_name":       "Alice",
				"last_name":        "Nguyen",
				"password":         "another password",
				"password_confirm": "another password",
			},
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t)
		r := httptest.NewRequest(http.MethodPost, "/v1/accounts/register", bytes.NewBufferString("{not json"))
		r.RemoteAddr = "198.51.100.251:4000"
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, r)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("valid credentials return a token pair", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")

		pair := s.login(t, "alice@example.com", "correct horse battery")
		require.NotEmpty(t, pair.Access)
		require.NotEmpty(t, pair.Refresh)
		require.Positive(t, pair.Expires)
	})

	t.Run("wrong password and unknown email give identical responses", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")

		recWrong := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/login",
			body:   map[string]string{"email": "alice@example.com", "password": "wrong password"},
		})
		recGhost := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/login",
			body:   map[string]string{"email": "ghost@example.com", "password": "wrong password"},
		})

		require.Equal(t, http.StatusUnauthorized, recWrong.Code)
		require.Equal(t, http.StatusUnauthorized, recGhost.Code)
		require.JSONEq(t, recWrong.Body.String(), recGhost.Body.String())
		require.Contains(t, recWrong.Body.String(), "Invalid email or password")
	})

	t.Run("disabled account", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")

		user, err := s.router.UserService.Authenticate(context.Background(), "alice@example.com", "correct horse battery")
		require.NoError(t, err)
		require.NoError(t, s.router.TokenService.Store.Users().SetActive(context.Background(), user.ID, false))

		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/login",
			body:   map[string]string{"email": "alice@example.com", "password": "correct horse battery"},
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "Account is disabled")
	})

	t.Run("rate limited after repeated attempts from one address", func(t *testing.T) {
		s := newTestServer(t)

		const attackerIP = "203.0.113.66"
		var last *httptest.ResponseRecorder
		for range 6 {
			last = s.do(t, request{
				method: http.MethodPost,
				path:   "/v1/accounts/login",
				body:   map[string]string{"email": "ghost@example.com", "password": "guess"},
				ip:     attackerIP,
			})
		}
		require.Equal(t, http.StatusTooManyRequests, last.Code)
		require.NotEmpty(t, last.Header().Get("Retry-After"))
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Run("rotates the pair", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")
		pair := s.login(t, "alice@example.com", "correct horse battery")

		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/token/refresh",
			body:   map[string]string{"refresh": pair.Refresh},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var rotated tokenPair
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &rotated))
		require.NotEqual(t, pair.Refresh, rotated.Refresh)

		// Old refresh token is dead.
		rec = s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/token/refresh",
			body:   map[string]string{"refresh": pair.Refresh},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/token/refresh",
			body:   map[string]string{"refresh": "garbage"},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/token/refresh",
			body:   map[string]string{},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/logout",
			body:   map[string]string{"refresh": "whatever"},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revokes the refresh token", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")
		pair := s.login(t, "alice@example.com", "correct horse battery")

		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/logout",
			body:   map[string]string{"refresh": pair.Refresh},
			bearer: pair.Access,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		// The refresh token no longer works.
		rec = s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/token/refresh",
			body:   map[string]string{"refresh": pair.Refresh},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("never-issued refresh token is rejected", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")
		pair := s.login(t, "alice@example.com", "correct horse battery")

		rec := s.do(t, request{
			method: http.MethodPost,
			path:   "/v1/accounts/logout",
			body:   map[string]string{"refresh": "never-issued"},
			bearer: pair.Access,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid refresh token")
	})

	t.Run("logout twice still succeeds", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "alice@example.com", "correct horse battery")
		pair := s.login(t, "alice@example.com", "correct horse battery")

		for range 2 {
			rec := s.do(t, request{
				method: http.MethodPost,
				path:   "/v1/accounts/logout",
				body:   map[string]string{"refresh": pair.Refresh},
				bearer: pair.Access,
			})
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/livez"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = s.do(t, request{method: http.MethodGet, path: "/readyz"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"database":"ok"`)
}
