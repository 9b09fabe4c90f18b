package handlers

import (
	"medbot-server/internal/accounts"
	"medbot-server/internal/config"
	"medbot-server/internal/middleware"
	"medbot-server/internal/models"
	"medbot-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Accounts *accounts.Registry
	Cfg      *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(registry *accounts.Registry, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Accounts: registry, Cfg: cfg}
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required" validate:"notblank"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=Admin Doctor Patient"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string                  `json:"accessToken"`
	RefreshToken string                  `json:"refreshToken"`
	User         models.AccountSanitized `json:"user"`
}

// Login handles login for all three roles.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	account, err := h.Accounts.Authenticate(req.Username, req.Password, models.Role(req.Role))
	if err != nil {
		utils.RespondError(c, err, "Failed to log in")
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(account, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate tokens: "+err.Error())
		return
	}
	h.setRefreshCookie(c, refreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         account,
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken issues a new token pair for a valid refresh token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// First try to get the refresh token from HTTP-only cookie
	token, err := c.Cookie("refresh_token")
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}
	account, ok := h.Accounts.Get(claims.Username)
	if !ok || account.Role != claims.Role {
		utils.Unauthorized(c, "Account no longer exists")
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(account, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate new tokens: "+err.Error())
		return
	}
	h.setRefreshCookie(c, refreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Logout clears the refresh token cookie. Tokens are stateless and simply
// expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile returns the authenticated account.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	account, found := h.Accounts.Get(username)
	if !found {
		utils.NotFound(c, "User profile not found")
		return
	}
	utils.Success(c, "Profile fetched successfully", account)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(
		"refresh_token",
		value,
		maxAge,
		"/",
		"",
		h.Cfg.Environment != "development", // Secure (true in prod, false in dev)
		true,
	)
}
