package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/config"
	"github.com/iliyamo/cinema-management-api/internal/utils"
)

// AdminRole is the role claim required by the /logs endpoints.
const AdminRole = "ADMIN"

// AuthHandler issues admin access tokens.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

type tokenReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	utils.AccessToken
	TokenType string `json:"token_type"`
}

// Token handles POST /auth/token.  The password is checked against the
// bcrypt hash in ADMIN_PASSWORD_HASH; without a hash every login fails.
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err, "")
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Cfg.AdminUser)) == 1
	passOK := utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password)
	if !userOK || !passOK {
		c.Logger().Warnf("auth: rejected token request for %q", req.Username)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Username, AdminRole, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: tok, TokenType: "bearer"})
}
