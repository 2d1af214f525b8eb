package userservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/userservice"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(userID string, userRole string) (string, error) {
	args := m.Called(userID, userRole)
	return args.String(0), args.Error(1)
}

// captureSaved records the user handed to Save.
func captureSaved(repo *MockUserRepository) *domain.User {
	saved := new(domain.User)
	repo.On("Save", mock.Anything, mock.Anything).Return(domain.User{ID: "stored"}, nil).Run(func(args mock.Arguments) {
		*saved = args.Get(1).(domain.User)
	})
	return saved
}

func TestRegister_DefaultRoleIsPublic(t *testing.T) {
	repo := new(MockUserRepository)
	saved := captureSaved(repo)
	svc := userservice.NewService(repo, new(MockTokenIssuer), []string{"boss@example.com"}, logger.NewNop())

	stored, err := svc.Register(context.Background(), domain.UserRegistration{Email: " Tech@Example.com ", Password: "s3cretpass"})

	require.NoError(t, err)
	assert.Equal(t, "stored", stored.ID)
	user := *saved
	assert.Equal(t, "tech@example.com", user.Email)
	assert.Equal(t, domain.RolePublic, user.Role)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cretpass")))
}

func TestRegister_AdminEmail(t *testing.T) {
	repo := new(MockUserRepository)
	saved := captureSaved(repo)
	svc := userservice.NewService(repo, new(MockTokenIssuer), []string{" Boss@Example.com"}, logger.NewNop())

	_, err := svc.Register(context.Background(), domain.UserRegistration{Email: "boss@example.com", Password: "s3cretpass"})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, saved.Role)
}

func TestRegister_Validation(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, new(MockTokenIssuer), nil, logger.NewNop())

	cases := []domain.UserRegistration{
		{Email: "", Password: "s3cretpass"},
		{Email: "not-an-email", Password: "s3cretpass"},
		{Email: "a@example.com", Password: "short"},
	}
	for _, reg := range cases {
		_, err := svc.Register(context.Background(), reg)
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(domain.User{}, apperror.NewConflictError("email taken"))
	svc := userservice.NewService(repo, new(MockTokenIssuer), nil, logger.NewNop())

	_, err := svc.Register(context.Background(), domain.UserRegistration{Email: "a@example.com", Password: "s3cretpass"})

	assert.IsType(t, &apperror.ConflictError{}, err)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := domain.User{ID: "u-1", Email: "a@example.com", PasswordHash: string(hash), Role: domain.RoleAdmin}

	repo := new(MockUserRepository)
	repo.On("FindByEmail", mock.Anything, "a@example.com").Return(stored, nil)
	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(domain.User{}, apperror.NewNotFoundError("user"))
	tokens := new(MockTokenIssuer)
	tokens.On("GenerateToken", "u-1", "admin").Return("signed", nil)
	svc := userservice.NewService(repo, tokens, nil, logger.NewNop())

	t.Run("success", func(t *testing.T) {
		tok, err := svc.Login(context.Background(), "A@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.Equal(t, "signed", tok)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "a@example.com", "nope")
		assert.IsType(t, &apperror.UnauthorizedError{}, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "ghost@example.com", "s3cretpass")
		assert.IsType(t, &apperror.UnauthorizedError{}, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "", "")
		assert.IsType(t, &apperror.UnauthorizedError{}, err)
	})
}

func TestLogin_TokenFailure(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := new(MockUserRepository)
	repo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(domain.User{ID: "u-1", PasswordHash: string(hash), Role: domain.RolePublic}, nil)
	tokens := new(MockTokenIssuer)
	tokens.On("GenerateToken", "u-1", "public").Return("", errors.New("boom"))
	svc := userservice.NewService(repo, tokens, nil, logger.NewNop())

	_, err = svc.Login(context.Background(), "a@example.com", "s3cretpass")

	assert.IsType(t, &apperror.InternalError{}, err)
}
