// Package services contains server-side business logic. This file implements
// AuthService: sign-up, sign-in, sign-out and session validation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/dbx"
	"github.com/dmitrijs2005/bookdrive/internal/logging"
	"github.com/dmitrijs2005/bookdrive/internal/server/auth"
	"github.com/dmitrijs2005/bookdrive/internal/server/config"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

// dummyHash is compared against when the email is unknown so a failed
// sign-in costs the same either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookdrive-dummy-password"), BcryptCost)

// AuthResult is returned by SignUp and SignIn.
type AuthResult struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

// SignUpInput carries the registration form.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService signs users up and in, and validates the sessions behind bearer tokens.
type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	jwtSecret       []byte
	sessionValidity time.Duration
	log             logging.Logger
	now             func() time.Time
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *AuthService {
	validity := cfg.SessionValidityDuration
	if validity <= 0 {
		validity = common.SessionValidity
	}
	return &AuthService{
		db:              db,
		repomanager:     m,
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: validity,
		log:             log.With("module", "auth"),
		now:             time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new identity with a credentials account and opens its
// first session. Identity, account and session are written in one transaction.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput, meta models.ClientMeta) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrBadRequest)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email address", common.ErrBadRequest)
	}

	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email already registered", common.ErrConflict)
	case !errors.Is(err, common.ErrorNotFound):
		s.log.Error(ctx, "email lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", common.ErrBadRequest)
		}
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{ID: uuid.NewString(), Name: name, Email: email}
	var token string

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}

		accountID, err := common.MakeRandHexString(16)
		if err != nil {
			return err
		}
		account := &models.Account{
			ID:           uuid.NewString(),
			AccountID:    accountID,
			ProviderID:   common.CredentialsProvider,
			UserID:       user.ID,
			PasswordHash: string(hash),
		}
		if err := s.repomanager.Accounts(tx).Create(ctx, account); err != nil {
			return err
		}

		token, err = s.issueSession(ctx, tx, user.ID, meta)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", common.ErrConflict)
		}
		s.log.Error(ctx, "sign-up failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user signed up", "user_id", user.ID)
	return &AuthResult{User: user.Summary(), Token: token}, nil
}

// SignIn verifies email and password and opens a new session. Every
// credential failure is reported as the same common.ErrorUnauthorized.
func (s *AuthService) SignIn(ctx context.Context, email, password string, meta models.ClientMeta) (*AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, errInvalidCredentials
		}
		s.log.Error(ctx, "email lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	account, err := s.repomanager.Accounts(s.db).GetByUserAndProvider(ctx, user.ID, common.CredentialsProvider)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, errInvalidCredentials
		}
		s.log.Error(ctx, "account lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, err := s.issueSession(ctx, s.db, user.ID, meta)
	if err != nil {
		s.log.Error(ctx, "session creation failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user signed in", "user_id", user.ID)
	return &AuthResult{User: user.Summary(), Token: token}, nil
}

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", common.ErrorUnauthorized)

// SignOut revokes the session behind token. Unknown tokens are ignored.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, token); err != nil {
		s.log.Error(ctx, "session delete failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// Authenticate resolves the identity behind a bearer token. The token must
// verify, have a live session whose owner matches the token, and that owner
// must still exist.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}

	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	session, err := s.repomanager.Sessions(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
		}
		s.log.Error(ctx, "session lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if session.Expired(s.now()) {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrSessionExpired)
	}
	if session.UserID != userID {
		s.log.Warn(ctx, "session owner mismatch", "token_user_id", userID, "session_user_id", session.UserID)
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Me returns the public projection of an authenticated identity.
func (s *AuthService) Me(user *models.User) models.UserSummary {
	return user.Summary()
}

// SweepExpired deletes sessions that are past their expiry.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "expired sessions removed", "count", n)
	}
	return n, nil
}

func (s *AuthService) issueSession(ctx context.Context, db dbx.DBTX, userID string, meta models.ClientMeta) (string, error) {
	token, expires, err := auth.GenerateToken(userID, s.jwtSecret, s.sessionValidity)
	if err != nil {
		return "", err
	}

	session := &models.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expires,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.repomanager.Sessions(db).Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}
