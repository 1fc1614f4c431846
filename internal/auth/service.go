package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tracker/internal/apperr"
	"tracker/internal/models"
)

// UserStore is the credential store the gate reads and updates.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	FindUserByLogin(ctx context.Context, email, handle string) (models.User, error)
	RecordFailedLogin(ctx context.Context, id int64, now time.Time, maxAttempts int, lockUntil time.Time) (int, time.Time, error)
	ClearFailedLogins(ctx context.Context, id int64, now time.Time) error
	SetRefreshToken(ctx context.Context, id int64, tokenID string) error
}

// Options configures the authentication gate.
type Options struct {
	Tokens     *Tokens
	Lockout    Lockout
	BcryptCost int
	Logger     *slog.Logger
}

// Service registers users, checks credentials and manages sessions.
type Service struct {
	store   UserStore
	tokens  *Tokens
	lockout Lockout
	cost    int
	logger  *slog.Logger
	now     func() time.Time
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	FullName string
	Email    string
	Handle   string
	Password string
}

// LoginInput identifies the account by email or handle.
type LoginInput struct {
	Email    string
	Handle   string
	Password string
}

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken     string            `json:"access_token"`
	RefreshToken    string            `json:"refresh_token"`
	AccessExpiresAt time.Time         `json:"access_expires_at"`
	User            models.PublicUser `json:"user"`
}

// NewService wires the gate to its credential store.
func NewService(store UserStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Lockout.MaxAttempts <= 0 {
		opts.Lockout.MaxAttempts = DefaultMaxFailedLogins
	}
	if opts.Lockout.Window <= 0 {
		opts.Lockout.Window = DefaultLockoutWindow
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:   store,
		tokens:  opts.Tokens,
		lockout: opts.Lockout,
		cost:    opts.BcryptCost,
		logger:  opts.Logger,
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns its public profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.PublicUser, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := normalizeEmail(in.Email)
	handle := strings.TrimSpace(in.Handle)
	if fullName == "" || email == "" || handle == "" || strings.TrimSpace(in.Password) == "" {
		return models.PublicUser{}, apperr.New(apperr.Validation, "all fields are required")
	}
	if !strings.Contains(email, "@") {
		return models.PublicUser{}, apperr.New(apperr.Validation, "email is not valid")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.PublicUser{}, apperr.Wrap(apperr.Validation, err, "password is too long")
	}
	if err != nil {
		return models.PublicUser{}, apperr.Wrap(apperr.Internal, err, "hash password")
	}

	user, err := s.store.CreateUser(ctx, models.User{
		FullName:     fullName,
		Email:        email,
		Handle:       handle,
		PasswordHash: string(hash),
	})
	if err != nil {
		return models.PublicUser{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user.Public(), nil
}

// Login checks credentials and issues a new token pair. Locked accounts are
// refused before the password is looked at.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	email := normalizeEmail(in.Email)
	handle := strings.TrimSpace(in.Handle)
	if email == "" && handle == "" {
		return Session{}, apperr.New(apperr.Validation, "email or handle is required")
	}
	if in.Password == "" {
		return Session{}, apperr.New(apperr.Validation, "password is required")
	}

	user, err := s.store.FindUserByLogin(ctx, email, handle)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	if user.Locked(now) {
		return Session{}, apperr.Newf(apperr.Locked, "account is locked until %s", user.LockedUntil.Format(time.RFC3339))
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		failed, lockedUntil, err := s.store.RecordFailedLogin(ctx, user.ID, now, s.lockout.MaxAttempts, s.lockout.Deadline(now))
		if err != nil {
			return Session{}, err
		}
		if failed == s.lockout.MaxAttempts {
			s.logger.Warn("account locked", "user_id", user.ID, "until", lockedUntil)
		}
		return Session{}, apperr.New(apperr.Auth, "invalid user credentials")
	}
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Internal, err, "compare password")
	}

	if err := s.store.ClearFailedLogins(ctx, user.ID, now); err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// Refresh exchanges the user's current refresh token for a new pair. Each
// refresh token is accepted once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, apperr.New(apperr.Auth, "unauthorized request")
	}
	userID, tokenID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Auth, err, "invalid refresh token")
	}
	user, err := s.store.GetUser(ctx, userID)
	if apperr.Is(err, apperr.NotFound) {
		return Session{}, apperr.Wrap(apperr.Auth, err, "invalid refresh token")
	}
	if err != nil {
		return Session{}, err
	}
	if user.RefreshTokenID == "" || user.RefreshTokenID != tokenID {
		return Session{}, apperr.New(apperr.Auth, "refresh token is expired or used")
	}
	return s.issue(ctx, user)
}

// Logout forgets the user's refresh token. Calling it again is harmless.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.store.SetRefreshToken(ctx, userID, "")
}

// VerifyAccess resolves the user behind an access token.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, apperr.New(apperr.Auth, "unauthorized request")
	}
	userID, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.Auth, err, "invalid access token")
	}
	user, err := s.store.GetUser(ctx, userID)
	if apperr.Is(err, apperr.NotFound) {
		return models.User{}, apperr.Wrap(apperr.Auth, err, "invalid access token")
	}
	return user, err
}

func (s *Service) issue(ctx context.Context, user models.User) (Session, error) {
	access, exp, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Internal, err, "sign access token")
	}
	refresh, refreshID, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Internal, err, "sign refresh token")
	}
	if err := s.store.SetRefreshToken(ctx, user.ID, refreshID); err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: exp,
		User:            user.Public(),
	}, nil
}
