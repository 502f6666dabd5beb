package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/billfold/accounts/internal/accounts/domain"
	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/billfold/accounts/internal/accounts/service"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/billfold/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// captureMailer records sent reset tokens instead of delivering them.
type captureMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	sendFn func(to, token string) error // optional failure injection
}

type sentMail struct {
	To    string
	Token string
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	if m.sendFn != nil {
		if err := m.sendFn(to, token); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Token: token})
	return nil
}

func (m *captureMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "expected at least one reset email")
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// testEnv wires real services over a throwaway sqlite database and an
// in-memory token store.
type testEnv struct {
	store  store.Store
	tokens *kvstore.MemoryStore
	mailer *captureMailer
	users  *service.UserService
	sess   *service.TokenService
	reset  *service.ResetService
	signer *jwtx.HS256
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "accounts_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens := kvstore.NewMemoryStore()
	mailer := &captureMailer{}
	signer := jwtx.NewHS256([]byte("test-secret"), "accounts-test")

	return &testEnv{
		store:  st,
		tokens: tokens,
		mailer: mailer,
		users:  &service.UserService{Store: st},
		signer: signer,
		sess: &service.TokenService{
			Signer:     signer,
			Store:      st,
			Issuer:     "accounts-test",
			AccessTTL:  jwtx.DefaultAccessTokenTTL,
			RefreshTTL: jwtx.DefaultRefreshTokenTTL,
		},
		reset: &service.ResetService{
			Store:    st,
			Tokens:   tokens,
			Mailer:   mailer,
			TokenTTL: time.Hour,
		},
	}
}

func (e *testEnv) register(t *testing.T, email, password string) domain.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), service.RegisterParams{
		Email:           email,
		FirstName:       "Alice",
		LastName:        "Nguyen",
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return user
}

func fieldErrors(t *testing.T, err error) service.FieldErrors {
	t.Helper()
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func disableUser(t *testing.T, env *testEnv, userID string) {
	t.Helper()
	require.NoError(t, env.store.Users().SetActive(context.Background(), userID, false))
}

var errRelayDown = errors.New("relay down")
