package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"github.com/mikepea/foodgram/pkg/foodgram/sanitize"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"gorm.io/gorm"
)

// Handler handles user, avatar and subscription requests
type Handler struct {
	db        *gorm.DB
	images    storage.ImageStore
	presenter *presenter.Presenter
	paginator pagination.Paginator
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, images storage.ImageStore, paginator pagination.Paginator) *Handler {
	return &Handler{
		db:        db,
		images:    images,
		presenter: presenter.New(db, images),
		paginator: paginator,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=150"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SetPasswordRequest represents the password change body
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=150"`
}

func (h *Handler) findUser(c *gin.Context, id uint) (models.User, error) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apierror.NewNotFound("User")
		}
		return models.User{}, err
	}
	return user, nil
}

// currentUser loads the principal's account. A token for a deleted
// account is treated as unauthenticated.
func (h *Handler) currentUser(c *gin.Context) (models.User, error) {
	user, err := h.findUser(c, auth.UserID(c))
	if apierror.IsKind(err, apierror.KindNotFound) {
		return models.User{}, apierror.NewUnauthorized("User not found")
	}
	return user, err
}

// List returns users ordered by id
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} pagination.Page[presenter.UserView]
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	params, err := h.paginator.Parse(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	db := h.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := params.Check(count); err != nil {
		apierror.Respond(c, err)
		return
	}

	var users []models.User
	if err := db.Order("id").Scopes(params.Scope).Find(&users).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	views, err := h.presenter.Users(ctx, auth.UserID(c), users)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, params, count, views))
}

// Get returns a user's public profile
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} presenter.UserView
// @Failure 404 {object} apierror.Response
// @Router /users/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := request.ID(c, "id", "User")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	user, err := h.findUser(c, id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	view, err := h.presenter.User(c.Request.Context(), auth.UserID(c), user)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Register creates an account
// @Summary Register
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} apierror.Response
// @Router /users [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	if strings.EqualFold(req.Username, models.ReservedUsername) {
		apierror.Respond(c, apierror.NewFieldError("username", `The username "me" is reserved.`))
		return
	}
	req.FirstName = sanitize.Text(req.FirstName)
	req.LastName = sanitize.Text(req.LastName)

	db := h.db.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if count > 0 {
		apierror.Respond(c, apierror.NewFieldError("email", "A user with that email already exists."))
		return
	}
	if err := db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if count > 0 {
		apierror.Respond(c, apierror.NewFieldError("username", "A user with that username already exists."))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		apierror.Respond(c, apierror.NewInternal("Failed to process password", err))
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		switch {
		case database.IsUniqueViolation(err):
			err = apierror.NewConflict("A user with that email or username already exists")
		case database.IsCheckViolation(err):
			err = apierror.NewFieldError("username", `The username "me" is reserved.`)
		}
		apierror.Respond(c, err)
		return
	}

	logging.WithFields(c.Request.Context(), map[string]interface{}{"new_user_id": user.ID}).Info("user registered")

	c.JSON(http.StatusCreated, RegisterResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// Me returns the current authenticated user
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} presenter.UserView
// @Failure 401 {object} apierror.Response
// @Security TokenAuth
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.UserView(user, false))
}

// SetPassword changes the principal's password
// @Summary Change password
// @Tags users
// @Accept json
// @Param request body SetPasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} apierror.Response
// @Security TokenAuth
// @Router /users/set_password [post]
func (h *Handler) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	user, err := h.currentUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		apierror.Respond(c, apierror.NewFieldError("current_password", "Invalid password."))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		apierror.Respond(c, apierror.NewInternal("Failed to process password", err))
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(&user).Update("password_hash", hash).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers user routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.List)
	rg.POST("/users", h.Register)

	authed := rg.Group("/users", auth.RequireAuth())
	authed.GET("/me", h.Me)
	authed.PUT("/me/avatar", h.SetAvatar)
	authed.DELETE("/me/avatar", h.DeleteAvatar)
	authed.POST("/set_password", h.SetPassword)
	authed.GET("/subscriptions", h.Subscriptions)
	authed.POST("/:id/subscribe", h.Subscribe)
	authed.DELETE("/:id/subscribe", h.Unsubscribe)

	rg.GET("/users/:id", h.Get)
}
