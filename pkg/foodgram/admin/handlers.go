package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db     *gorm.DB
	images storage.ImageStore
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, images storage.ImageStore) *Handler {
	return &Handler{db: db, images: images}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	CreatedAt     string `json:"created_at"`
	RecipeCount   int64  `json:"recipe_count"`
	FollowerCount int64  `json:"follower_count"`
}

// UpdateUserRequest represents the request to change a user's role
type UpdateUserRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers       int64 `json:"total_users"`
	AdminUsers       int64 `json:"admin_users"`
	TotalRecipes     int64 `json:"total_recipes"`
	TotalTags        int64 `json:"total_tags"`
	TotalIngredients int64 `json:"total_ingredients"`
	TotalFavorites   int64 `json:"total_favorites"`
	TotalCartEntries int64 `json:"total_cart_entries"`
	TotalFollows     int64 `json:"total_follows"`
	ShortLinks       int64 `json:"short_links"`
}

func (h *Handler) userResponse(ctx context.Context, user models.User) (UserResponse, error) {
	db := h.db.WithContext(ctx)
	resp := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Count(&resp.RecipeCount).Error; err != nil {
		return UserResponse{}, err
	}
	if err := db.Model(&models.Follow{}).Where("author_id = ?", user.ID).Count(&resp.FollowerCount).Error; err != nil {
		return UserResponse{}, err
	}
	return resp, nil
}

func (h *Handler) findUser(c *gin.Context) (models.User, error) {
	id, err := request.ID(c, "id", "User")
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apierror.NewNotFound("User")
		}
		return models.User{}, err
	}
	return user, nil
}

// ListUsers returns all users, newest first
// @Summary List users (admin)
// @Tags admin
// @Produce json
// @Param q query string false "Search email or username"
// @Param role query string false "Filter by role"
// @Success 200 {array} UserResponse
// @Security TokenAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	query := h.db.WithContext(ctx).Order("created_at DESC, id DESC")

	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR username LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		resp, err := h.userResponse(ctx, user)
		if err != nil {
			apierror.Respond(c, err)
			return
		}
		responses[i] = resp
	}
	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID
// @Summary Get user (admin)
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Security TokenAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.findUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	resp, err := h.userResponse(c.Request.Context(), user)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateUser changes a user's role
// @Summary Update user role (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Role"
// @Success 200 {object} UserResponse
// @Security TokenAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	user, err := h.findUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	// Prevent admin from demoting themselves
	if user.ID == auth.UserID(c) && models.Role(req.Role) != models.RoleAdmin {
		apierror.Respond(c, apierror.NewValidation("Cannot demote yourself"))
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(&user).Update("role", req.Role).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	user.Role = models.Role(req.Role)

	logging.WithFields(ctx, map[string]interface{}{"target_user_id": user.ID, "role": req.Role}).Info("user role changed")

	resp, err := h.userResponse(ctx, user)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteUser removes a user with everything they own. Their recipe images
// and avatar are removed from storage after the rows are gone.
// @Summary Delete user (admin)
// @Tags admin
// @Param id path int true "User ID"
// @Success 204
// @Security TokenAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	user, err := h.findUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	// Prevent admin from deleting themselves
	if user.ID == auth.UserID(c) {
		apierror.Respond(c, apierror.NewValidation("Cannot delete yourself"))
		return
	}

	ctx := c.Request.Context()
	var keys []string
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Pluck("image", &keys).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if user.Avatar != nil {
		keys = append(keys, *user.Avatar)
	}
	for _, key := range keys {
		if err := h.images.Delete(ctx, key); err != nil {
			logging.WithContext(ctx).WithError(err).WithField("image", key).Warn("failed to delete image")
		}
	}

	logging.WithFields(ctx, map[string]interface{}{"target_user_id": user.ID}).Info("user deleted")
	c.Status(http.StatusNoContent)
}

// GetStats returns system-wide statistics
// @Summary Statistics (admin)
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security TokenAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats StatsResponse

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.User{}).Where("role = ?", models.RoleAdmin), &stats.AdminUsers},
		{db.Model(&models.Recipe{}), &stats.TotalRecipes},
		{db.Model(&models.Tag{}), &stats.TotalTags},
		{db.Model(&models.Ingredient{}), &stats.TotalIngredients},
		{db.Model(&models.Favorite{}), &stats.TotalFavorites},
		{db.Model(&models.ShoppingListEntry{}), &stats.TotalCartEntries},
		{db.Model(&models.Follow{}), &stats.TotalFollows},
		{db.Model(&models.Recipe{}).Where("short_link IS NOT NULL"), &stats.ShortLinks},
	}
	for _, cnt := range counts {
		if err := cnt.query.Count(cnt.dest).Error; err != nil {
			apierror.Respond(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group. The
// group must already require an authenticated admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)

	rg.POST("/tags", h.CreateTag)
	rg.PUT("/tags/:id", h.UpdateTag)
	rg.DELETE("/tags/:id", h.DeleteTag)

	rg.POST("/ingredients", h.CreateIngredient)
	rg.PUT("/ingredients/:id", h.UpdateIngredient)
	rg.DELETE("/ingredients/:id", h.DeleteIngredient)
}
