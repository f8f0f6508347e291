package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/credentials"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/auth"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/profilekeeper/internal/server/revocation"
	"github.com/dmitrijs2005/profilekeeper/internal/validation"
)

const (
	msgUsernameLength = "Username must be between 8 and 20 characters"
	msgWeakPassword   = "Password does not meet complexity requirements"
)

// UserService handles the credential lifecycle:
//   - Register / CreateAdmin: create credentials after the username and password policy
//   - Login / Logout: issue access tokens and revoke them early
//   - Authenticate: turn a bearer token into a verified principal
//   - UpdateSelf, DeleteUser, ListUsers, GetUser: account management
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	credentials *credentials.Manager
	issuer      *auth.Issuer
	revocations revocation.Store
	metrics     *metrics.Metrics
	log         logging.Logger
	newID       func() string
}

func NewUserService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	creds *credentials.Manager,
	issuer *auth.Issuer,
	revocations revocation.Store,
	met *metrics.Metrics,
	log logging.Logger,
) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		credentials: creds,
		issuer:      issuer,
		revocations: revocations,
		metrics:     met,
		log:         log.With("module", "users"),
		newID:       uuid.NewString,
	}
}

// Register creates a Regular credential. Checks run in order: username
// uniqueness, username length, then password complexity.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	return s.create(ctx, username, password, access.RoleRegular)
}

// CreateAdmin creates an Admin credential under the same policy as Register.
func (s *UserService) CreateAdmin(ctx context.Context, username, password string) (*models.User, error) {
	return s.create(ctx, username, password, access.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, username, password string, role access.Role) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}
	if !credentials.ValidUsernameLength(username) {
		return nil, validation.Single("username", msgUsernameLength)
	}
	if !credentials.IsComplex(password) {
		return nil, validation.Single("password", msgWeakPassword)
	}

	ph := s.credentials.Hash(password)
	user := &models.User{
		ID:             s.newID(),
		UserName:       username,
		PasswordHash:   ph.Hash,
		PasswordSalt:   ph.Salt,
		PasswordScheme: ph.Scheme,
		Role:           role,
	}

	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.metrics.IncUserRegistered()
	s.log.Info(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.repomanager.Users(s.db).GetByUserName(ctx, username)
	switch {
	case err == nil:
		return ErrUsernameTaken
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return fmt.Errorf("error looking up user: %w", err)
	}
}

// Login verifies the password and issues a token. Unknown usernames and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.IncLogin(metrics.LoginFailure)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	stored := credentials.PasswordHash{Hash: user.PasswordHash, Salt: user.PasswordSalt, Scheme: user.PasswordScheme}
	if !s.credentials.Verify(password, stored) {
		s.metrics.IncLogin(metrics.LoginFailure)
		s.log.Warn(ctx, "login failed", "user_id", user.ID)
		return "", ErrInvalidCredentials
	}

	token, _, err := s.issuer.Issue(user.ID, user.UserName, user.Role)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return token, nil
}

// Authenticate verifies a bearer token and rejects tokens revoked by Logout.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	p, err := s.issuer.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if revoked {
		return nil, common.ErrorTokenRevoked
	}
	return p, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *UserService) Logout(ctx context.Context, token string) error {
	p, err := s.issuer.Verify(token)
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, token, p.ExpiresAt); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	s.log.Info(ctx, "user logged out", "user_id", p.UserID)
	return nil
}

// UpdateSelf changes the username and/or password of the actor's own
// credential. Blank values leave the field unchanged.
func (s *UserService) UpdateSelf(ctx context.Context, actorID, targetID, username, password string) (*models.User, error) {
	if !access.CanUpdateCredential(actorID, targetID) {
		return nil, ErrUpdateOthers
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, s.userLookupError(err)
	}

	if strings.TrimSpace(username) != "" && username != user.UserName {
		if err := s.ensureUsernameFree(ctx, username); err != nil {
			return nil, err
		}
		if !credentials.ValidUsernameLength(username) {
			return nil, validation.Single("username", msgUsernameLength)
		}
		user.UserName = username
	}

	if strings.TrimSpace(password) != "" {
		if !credentials.IsComplex(password) {
			return nil, validation.Single("password", msgWeakPassword)
		}
		ph := s.credentials.Hash(password)
		user.PasswordHash, user.PasswordSalt, user.PasswordScheme = ph.Hash, ph.Salt, ph.Scheme
	}

	if err := repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, s.userLookupError(err)
	}

	s.log.Info(ctx, "user updated", "user_id", user.ID)
	return user, nil
}

// DeleteUser removes an account. Only admins may do so, and never to themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID string, actorRole access.Role, targetID string) error {
	if !access.CanManageAllUsers(actorRole) {
		return ErrAdminOnly
	}
	if !access.CanDeleteUser(actorRole, actorID, targetID) {
		return ErrAdminSelfDelete
	}

	if err := s.repomanager.Users(s.db).Delete(ctx, targetID); err != nil {
		return s.userLookupError(err)
	}

	s.log.Info(ctx, "user deleted", "user_id", targetID, "by", actorID)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, actorRole access.Role) ([]*models.User, error) {
	if !access.CanManageAllUsers(actorRole) {
		return nil, ErrAdminOnly
	}
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, actorRole access.Role, id string) (*models.User, error) {
	if !access.CanManageAllUsers(actorRole) {
		return nil, ErrAdminOnly
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, s.userLookupError(err)
	}
	return u, nil
}

func (s *UserService) userLookupError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("error accessing user: %w", err)
}
