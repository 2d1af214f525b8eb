package userservice

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

const minPasswordLength = 8

// UserRepository is the persistence contract for users.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(userID string, userRole string) (string, error)
}

// UserService registers and authenticates API users.
type UserService struct {
	UserRepo    UserRepository
	TokenSvc    TokenIssuer
	adminEmails map[string]struct{}
	logger      logger.Logger
}

// NewService creates the user service. Addresses in adminEmails register as admins.
func NewService(repo UserRepository, tokenSvc TokenIssuer, adminEmails []string, logger logger.Logger) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &UserService{UserRepo: repo, TokenSvc: tokenSvc, adminEmails: admins, logger: logger}
}

// Register hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	email := normalizeEmail(registration.Email)
	if email == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, apperror.NewValidationError("email is not a valid address")
	}
	if len(registration.Password) < minPasswordLength {
		return domain.User{}, apperror.NewValidationError("password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("failed to hash password", err)
	}

	role := domain.RolePublic
	if _, ok := s.adminEmails[email]; ok {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user, err := s.UserRepo.Save(ctx, domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("User registered.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// Login checks the credentials and returns a signed token.
func (s *UserService) Login(ctx context.Context, email string, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("email and password are required")
	}

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// Unknown email and wrong password look the same to the caller.
		if apperror.IsNotFound(err) {
			return "", apperror.NewUnauthorizedError("invalid credentials")
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("invalid credentials")
	}

	tokenString, err := s.TokenSvc.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		s.logger.Error("Failed to sign token.", err)
		return "", apperror.NewInternalError("failed to generate token", err)
	}
	return tokenString, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
