package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Handler handles token login and logout
type Handler struct {
	db     *gorm.DB
	issuer *TokenIssuer
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, issuer *TokenIssuer) *Handler {
	return &Handler{db: db, issuer: issuer}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries the issued token
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// Login exchanges credentials for a token
// @Summary Obtain a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} apierror.Response
// @Router /auth/token/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, err)
		return
	}
	if err != nil || !CheckPassword(req.Password, user.PasswordHash) {
		apierror.Respond(c, apierror.NewValidation("Unable to log in with provided credentials"))
		return
	}

	token, err := h.issuer.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		apierror.Respond(c, apierror.NewInternal("Failed to generate token", err))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AuthToken: token})
}

// Logout ends the session. Tokens are stateless, so the client discards it.
// @Summary Logout
// @Tags auth
// @Success 204
// @Security TokenAuth
// @Router /auth/token/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token/login", h.Login)
	rg.POST("/token/logout", RequireAuth(), h.Logout)
}
