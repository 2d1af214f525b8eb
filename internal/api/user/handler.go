package user

import (
	"context"
	"net/http"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/response"
)

// UserService is the contract for registration and login.
type UserService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (string, error)
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Handler groups the user endpoints.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler creates a user handler.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	response.JSON(w, h.Logger, successStatus, data)
}

// RegisterUserHandler handles POST /v1/users/register.
// @Summary Register a new user
// @Description Hashes the password and stores the user. Addresses configured as admins get the admin role.
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "email and password"
// @Success 201 {object} domain.User
// @Failure 400 {object} domain.ErrorResponse "invalid payload"
// @Failure 409 {object} domain.ErrorResponse "email already registered"
// @Failure 500 {object} domain.ErrorResponse
// @Router /v1/users/register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.UserRegistration
	if err := response.Decode(r, &reg); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}

	newUser, err := h.Service.Register(r.Context(), reg)
	h.handleServiceResponse(w, r, newUser, err, http.StatusCreated)
}

// LoginUserHandler handles POST /v1/users/login.
// @Summary Authenticate and get a JWT
// @Tags users
// @Accept json
// @Produce json
// @Param login body domain.Credentials true "email and password"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} domain.ErrorResponse "invalid payload"
// @Failure 401 {object} domain.ErrorResponse "invalid credentials"
// @Failure 500 {object} domain.ErrorResponse
// @Router /v1/users/login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := response.Decode(r, &creds); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	token, err := h.Service.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, LoginResponse{Token: token}, nil, http.StatusOK)
}
