package handler

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/adventure-site-booking/internal/config"
	"github.com/iliyamo/adventure-site-booking/internal/model"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
	"github.com/iliyamo/adventure-site-booking/internal/utils"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	users *repository.UserRepo
	cfg   *config.Config
}

func NewAuthHandler(users *repository.UserRepo, cfg *config.Config) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=GUEST HOST"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new account. Role defaults to GUEST when omitted.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	role := req.Role
	if role == "" {
		role = model.RoleGuest
	}

	id, err := h.users.Create(c.Request().Context(), req.Email, req.Password, role, h.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		log.WithError(err).Error("register failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id, "email": req.Email, "role": role})
}

// Login verifies credentials and returns a signed access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil || !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, u.Role, h.cfg.AccessTTLMin)
	if err != nil {
		log.WithError(err).Error("token signing failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token.Token,
		"token_type":   "Bearer",
		"expires_at":   token.Exp,
	})
}
