package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=6,max=14"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=4,max=20"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=20"`
	// ClientIP is set by the transport, never decoded from the body.
	ClientIP string `json:"-" validate:"-"`
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthService struct {
	users     repository.UserRepository
	jwt       *security.JWTManager
	notifier  Notifier
	guard     LoginGuard
	accessTTL time.Duration
}

func NewAuthService(users repository.UserRepository, jwt *security.JWTManager, notifier Notifier, accessTTL time.Duration) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	return &AuthService{users: users, jwt: jwt, notifier: notifier, guard: NewNoopLoginGuard(), accessTTL: accessTTL}
}

// WithLoginGuard replaces the default no-op guard.
func (s *AuthService) WithLoginGuard(guard LoginGuard) *AuthService {
	if guard != nil {
		s.guard = guard
	}
	return s
}

// Register creates a user with the default role and fires the welcome
// notifications.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (user *domain.User, err error) {
	outcome := "success"
	defer func() { observability.RecordAuthRegister(ctx, outcome) }()

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		outcome = "bad_request"
		return nil, err
	}
	hash, err := security.HashPassword(input.Password)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("hash password: %w", err)
	}
	uid, err := uuid.NewV7()
	if err != nil {
		outcome = "error"
		return nil, err
	}
	user = &domain.User{
		ID:           uid.String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.DefaultRoleName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			outcome = "conflict"
			return nil, ErrEmailTaken
		}
		outcome = "error"
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, TaskSendTelegram, map[string]any{
			"message": fmt.Sprintf("Hello %s, welcome to my app.", user.Email),
		})
		s.notifier.Notify(ctx, TaskSendMailRegister, map[string]any{
			"email":    user.Email,
			"username": user.Username,
		})
	}
	return user, nil
}

// Login checks the password and issues a bearer access token. Unknown email
// and wrong password are indistinguishable to the caller. Failures feed the
// login guard; a guard outage never blocks a login.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	outcome := "success"
	defer func() { observability.RecordAuthLogin(ctx, outcome) }()

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		outcome = "bad_request"
		return nil, err
	}
	if retry, err := s.guard.Check(ctx, input.Email, input.ClientIP); err == nil && retry > 0 {
		outcome = "throttled"
		return nil, &ThrottledError{RetryAfter: retry}
	}
	user, err := s.users.FindByEmail(ctx, input.Email)
	if errors.Is(err, repository.ErrNotFound) {
		outcome = "invalid_credentials"
		_, _ = s.guard.RegisterFailure(ctx, input.Email, input.ClientIP)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		outcome = "error"
		return nil, err
	}
	ok, err := security.VerifyPassword(user.PasswordHash, input.Password)
	if err != nil || !ok {
		outcome = "invalid_credentials"
		_, _ = s.guard.RegisterFailure(ctx, input.Email, input.ClientIP)
		return nil, ErrInvalidCredentials
	}
	_ = s.guard.Reset(ctx, input.Email, input.ClientIP)
	token, err := s.jwt.SignAccessToken(security.Identity{UserID: user.ID, Email: user.Email, Username: user.Username}, s.accessTTL)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer", ExpiresIn: int64(s.accessTTL / time.Second)}, nil
}
