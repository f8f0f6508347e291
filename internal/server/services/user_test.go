package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/credentials"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/auth"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/dmitrijs2005/profilekeeper/internal/server/revocation"
	"github.com/dmitrijs2005/profilekeeper/internal/validation"
)

const strongPassword = "ABcdefgh12!!"

type userFixture struct {
	svc     *UserService
	users   *fakeUsersRepo
	creds   *credentials.Manager
	issuer  *auth.Issuer
	metrics *metrics.Metrics
}

func newUserFixture(t *testing.T, existing ...*models.User) *userFixture {
	t.Helper()
	db, _ := newSQLMockDB(t)

	creds, err := credentials.NewManager("")
	require.NoError(t, err)

	users := newFakeUsersRepo(existing...)
	issuer := auth.NewIssuer([]byte("k"), "profilekeeper", "profilekeeper-api", time.Hour)
	met := newTestMetrics()

	svc := NewUserService(db, &fakeRepoManager{u: users}, creds, issuer, revocation.NewMemoryStore(), met, logging.Discard())
	n := 0
	svc.newID = func() string {
		n++
		return "id-" + strings.Repeat("x", n)
	}
	return &userFixture{svc: svc, users: users, creds: creds, issuer: issuer, metrics: met}
}

func (f *userFixture) seed(t *testing.T, id, name, password string, role access.Role) *models.User {
	t.Helper()
	ph := f.creds.Hash(password)
	u := &models.User{ID: id, UserName: name, PasswordHash: ph.Hash, PasswordSalt: ph.Salt, PasswordScheme: ph.Scheme, Role: role}
	f.users.byID[id] = u
	return u
}

func requireField(t *testing.T, err error, field, message string) {
	t.Helper()
	var ve validation.Errors
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	require.Len(t, ve, 1)
	assert.Equal(t, field, ve[0].Field)
	assert.Equal(t, message, ve[0].Message)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestRegister_Success(t *testing.T) {
	f := newUserFixture(t)

	u, err := f.svc.Register(context.Background(), "goodusername123", strongPassword)
	require.NoError(t, err)

	assert.Equal(t, "goodusername123", u.UserName)
	assert.Equal(t, access.RoleRegular, u.Role)
	assert.Equal(t, "hmac-sha512", u.PasswordScheme)
	assert.Len(t, u.PasswordSalt, 128)
	assert.NotEqual(t, []byte(strongPassword), u.PasswordHash)
	assert.True(t, f.creds.Verify(strongPassword, credentials.PasswordHash{Hash: u.PasswordHash, Salt: u.PasswordSalt, Scheme: u.PasswordScheme}))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UsersRegistered))
}

func TestRegister_ShortUsernameRejected(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), "short", strongPassword)
	requireField(t, err, "username", "Username must be between 8 and 20 characters")
}

func TestRegister_LongUsernameRejected(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), strings.Repeat("u", 21), strongPassword)
	requireField(t, err, "username", "Username must be between 8 and 20 characters")
}

// A username of valid length gets past the length gate whatever the password.
func TestRegister_GoodUsernameReachesPasswordGate(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), "goodusername123", "weak")
	requireField(t, err, "password", "Password does not meet complexity requirements")
}

// Weak passwords are rejected and complex ones accepted. This is the reverse
// of a registration gate that only rejected complex passwords.
func TestRegister_PasswordComplexityPolarity(t *testing.T) {
	tests := []struct {
		password string
		accepted bool
	}{
		{"password", false},
		{"passwordpassword", false},
		{"ABcdefgh1234", false},
		{strongPassword, true},
		{"ŽŠčęįų12#$abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			f := newUserFixture(t)
			_, err := f.svc.Register(context.Background(), "goodusername", tt.password)
			if tt.accepted {
				assert.NoError(t, err)
			} else {
				requireField(t, err, "password", "Password does not meet complexity requirements")
			}
		})
	}
}

func TestRegister_DuplicateCheckedFirst(t *testing.T) {
	f := newUserFixture(t)
	f.seed(t, "u-1", "short", strongPassword, access.RoleRegular)

	// "short" would fail the length gate, but the duplicate is reported first.
	_, err := f.svc.Register(context.Background(), "short", "weak")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestRegister_RepositoryErrors(t *testing.T) {
	f := newUserFixture(t)
	f.users.err = errors.New("db down")

	_, err := f.svc.Register(context.Background(), "goodusername", strongPassword)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorConflict)
	assert.Contains(t, err.Error(), "db down")
}

func TestCreateAdmin(t *testing.T) {
	f := newUserFixture(t)

	u, err := f.svc.CreateAdmin(context.Background(), "rootadmin", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, u.Role)
}

func TestLogin(t *testing.T) {
	f := newUserFixture(t)
	f.seed(t, "u-1", "goodusername", strongPassword, access.RoleAdmin)
	ctx := context.Background()

	tok, err := f.svc.Login(ctx, "goodusername", strongPassword)
	require.NoError(t, err)

	p, err := f.issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, "goodusername", p.Username)
	assert.Equal(t, access.RoleAdmin, p.Role)

	_, err = f.svc.Login(ctx, "goodusername", strongPassword+"x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobodyhere", strongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues(metrics.LoginSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues(metrics.LoginFailure)))
}

func TestLogin_RepositoryError(t *testing.T) {
	f := newUserFixture(t)
	f.users.err = errors.New("timeout")

	_, err := f.svc.Login(context.Background(), "goodusername", strongPassword)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newUserFixture(t)
	f.seed(t, "u-1", "goodusername", strongPassword, access.RoleRegular)
	ctx := context.Background()

	tok, err := f.svc.Login(ctx, "goodusername", strongPassword)
	require.NoError(t, err)

	p, err := f.svc.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)

	require.NoError(t, f.svc.Logout(ctx, tok))

	_, err = f.svc.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, common.ErrorTokenRevoked)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrorInvalidToken)

	assert.ErrorIs(t, f.svc.Logout(context.Background(), "garbage"), common.ErrorInvalidToken)
}

func TestUpdateSelf(t *testing.T) {
	ctx := context.Background()

	t.Run("changes username and password", func(t *testing.T) {
		f := newUserFixture(t)
		old := f.seed(t, "u-1", "goodusername", strongPassword, access.RoleRegular)

		u, err := f.svc.UpdateSelf(ctx, "u-1", "u-1", "renameduser", "ZYxwvuts98##")
		require.NoError(t, err)
		assert.Equal(t, "renameduser", u.UserName)
		assert.NotEqual(t, old.PasswordSalt, u.PasswordSalt)

		_, err = f.svc.Login(ctx, "renameduser", "ZYxwvuts98##")
		assert.NoError(t, err)
		_, err = f.svc.Login(ctx, "renameduser", strongPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("blank fields leave credential unchanged", func(t *testing.T) {
		f := newUserFixture(t)
		old := f.seed(t, "u-1", "goodusername", strongPassword, access.RoleRegular)

		u, err := f.svc.UpdateSelf(ctx, "u-1", "u-1", "  ", "")
		require.NoError(t, err)
		assert.Equal(t, "goodusername", u.UserName)
		assert.Equal(t, old.PasswordHash, u.PasswordHash)
	})

	t.Run("someone else's account is forbidden", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "u-1", "goodusername", strongPassword, access.RoleAdmin)
		f.seed(t, "u-2", "otheruser1", strongPassword, access.RoleRegular)

		_, err := f.svc.UpdateSelf(ctx, "u-1", "u-2", "hijacked1", "")
		assert.ErrorIs(t, err, common.ErrorForbidden)
		assert.Empty(t, f.users.calls, "authorization is decided before any lookup")
	})

	t.Run("username taken", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "u-1", "goodusername", strongPassword, access.RoleRegular)
		f.seed(t, "u-2", "otheruser1", strongPassword, access.RoleRegular)

		_, err := f.svc.UpdateSelf(ctx, "u-1", "u-1", "otheruser1", "")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("taken username reported before its length", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "u-1", "goodusername", strongPassword, access.RoleRegular)
		f.seed(t, "u-2", "short", strongPassword, access.RoleRegular)

		_, err := f.svc.UpdateSelf(ctx, "u-1", "u-1", "short", "")
		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.NotErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("policy applies to new values", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "u-1", "goodusername", strongPassword, access.RoleRegular)

		_, err := f.svc.UpdateSelf(ctx, "u-1", "u-1", "tiny", "")
		requireField(t, err, "username", "Username must be between 8 and 20 characters")

		_, err = f.svc.UpdateSelf(ctx, "u-1", "u-1", "", "weakpassword")
		requireField(t, err, "password", "Password does not meet complexity requirements")
	})

	t.Run("missing account", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.UpdateSelf(ctx, "u-9", "u-9", "renameduser", "")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes another account", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "admin", "rootadmin", strongPassword, access.RoleAdmin)
		f.seed(t, "u-2", "otheruser1", strongPassword, access.RoleRegular)

		require.NoError(t, f.svc.DeleteUser(ctx, "admin", access.RoleAdmin, "u-2"))
		_, ok := f.users.byID["u-2"]
		assert.False(t, ok)
	})

	t.Run("admin cannot delete itself", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "admin", "rootadmin", strongPassword, access.RoleAdmin)

		err := f.svc.DeleteUser(ctx, "admin", access.RoleAdmin, "admin")
		assert.ErrorIs(t, err, ErrAdminSelfDelete)
		assert.ErrorIs(t, err, common.ErrorForbidden)
	})

	t.Run("regular user cannot delete", func(t *testing.T) {
		f := newUserFixture(t)
		f.seed(t, "u-2", "otheruser1", strongPassword, access.RoleRegular)

		err := f.svc.DeleteUser(ctx, "u-1", access.RoleRegular, "u-2")
		assert.ErrorIs(t, err, common.ErrorForbidden)
	})

	t.Run("missing target", func(t *testing.T) {
		f := newUserFixture(t)
		err := f.svc.DeleteUser(ctx, "admin", access.RoleAdmin, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestListAndGetUsers(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	f.seed(t, "admin", "rootadmin", strongPassword, access.RoleAdmin)
	f.seed(t, "u-2", "otheruser1", strongPassword, access.RoleRegular)

	list, err := f.svc.ListUsers(ctx, access.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "otheruser1", list[0].UserName)

	_, err = f.svc.ListUsers(ctx, access.RoleRegular)
	assert.ErrorIs(t, err, ErrAdminOnly)

	u, err := f.svc.GetUser(ctx, access.RoleAdmin, "u-2")
	require.NoError(t, err)
	assert.Equal(t, access.RoleRegular, u.Role)

	_, err = f.svc.GetUser(ctx, access.RoleAdmin, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.GetUser(ctx, access.RoleRegular, "u-2")
	assert.ErrorIs(t, err, common.ErrorForbidden)
}
