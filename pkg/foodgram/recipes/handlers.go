package recipes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler handles recipe requests
type Handler struct {
	db        *gorm.DB
	images    storage.ImageStore
	presenter *presenter.Presenter
	paginator pagination.Paginator
}

// NewHandler creates a new recipes handler
func NewHandler(db *gorm.DB, images storage.ImageStore, paginator pagination.Paginator) *Handler {
	return &Handler{
		db:        db,
		images:    images,
		presenter: presenter.New(db, images),
		paginator: paginator,
	}
}

// filtered applies the list query parameters to the recipes query
func (h *Handler) filtered(c *gin.Context, db *gorm.DB) (*gorm.DB, error) {
	q := db.Model(&models.Recipe{})

	if slugs := c.QueryArray("tags"); len(slugs) > 0 {
		tagged := db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", slugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}

	if raw := c.Query("author"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, apierror.NewFieldError("author", "Enter a valid user id.")
		}
		q = q.Where("recipes.author_id = ?", authorID)
	}

	// Both list flags only apply to authenticated callers
	if userID := auth.UserID(c); userID != 0 {
		if request.Flag(c, "is_favorited") {
			q = q.Where("recipes.id IN (?)", db.Table(favoriteKind.table).Select("recipe_id").Where("author_id = ?", userID))
		}
		if request.Flag(c, "is_in_shopping_cart") {
			q = q.Where("recipes.id IN (?)", db.Table(cartKind.table).Select("recipe_id").Where("author_id = ?", userID))
		}
	}
	return q, nil
}

// List returns recipes newest first
// @Summary List recipes
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param tags query []string false "Tag slugs"
// @Param author query int false "Author ID"
// @Param is_favorited query int false "Only favorites (1)"
// @Param is_in_shopping_cart query int false "Only recipes in the cart (1)"
// @Success 200 {object} pagination.Page[RecipeResponse]
// @Router /recipes [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	params, err := h.paginator.Parse(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	q, err := h.filtered(c, h.db.WithContext(ctx))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := params.Check(count); err != nil {
		apierror.Respond(c, err)
		return
	}

	var recipes []models.Recipe
	err = withDetails(q).
		Order("recipes.pub_date DESC").Order("recipes.id DESC").
		Scopes(params.Scope).
		Find(&recipes).Error
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	results, err := h.present(ctx, auth.UserID(c), recipes)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, params, count, results))
}

// Get returns a single recipe
// @Summary Get recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeResponse
// @Failure 404 {object} apierror.Response
// @Router /recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := request.ID(c, "id", "Recipe")
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	resp, err := h.presentOne(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apierror.NewNotFound("Recipe")
		}
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindWrite binds and validates a create or update body
func (h *Handler) bindWrite(c *gin.Context) (*RecipeWriteRequest, error) {
	var req RecipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierror.FromBinding(err)
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if err := checkReferences(c.Request.Context(), h.db, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// saveImage decodes and stores a data URI image
func (h *Handler) saveImage(ctx context.Context, dataURI string) (string, error) {
	img, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return "", apierror.NewFieldError("image", "Upload a valid base64 encoded image.")
	}
	key, err := h.images.Save(ctx, storage.PrefixRecipes, img)
	if err != nil {
		return "", apierror.NewInternal("Failed to store image", err)
	}
	return key, nil
}

// discardImage removes a stored image, logging failures
func (h *Handler) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := h.images.Delete(ctx, key); err != nil {
		logging.WithContext(ctx).WithError(err).WithField("image", key).Warn("failed to delete image")
	}
}

// translateWriteError maps constraint failures raised while saving a
// recipe to client errors
func translateWriteError(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return apierror.NewValidation("Duplicate tags or ingredients")
	case database.IsCheckViolation(err):
		return apierror.NewValidation("Amounts and cooking time must be at least 1")
	}
	return err
}

// Create publishes a new recipe by the principal
// @Summary Create recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body RecipeWriteRequest true "Recipe"
// @Success 201 {object} RecipeResponse
// @Failure 400 {object} apierror.Response
// @Failure 401 {object} apierror.Response
// @Security TokenAuth
// @Router /recipes [post]
func (h *Handler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	req, err := h.bindWrite(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if req.Image == "" {
		apierror.Respond(c, apierror.NewFieldError("image", "This field is required."))
		return
	}

	imageKey, err := h.saveImage(ctx, req.Image)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	recipe := models.Recipe{
		AuthorID:    userID,
		Name:        req.Name,
		Image:       imageKey,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		return replaceRelations(tx, recipe.ID, req)
	})
	if err != nil {
		h.discardImage(ctx, imageKey)
		apierror.Respond(c, translateWriteError(err))
		return
	}

	logging.WithFields(ctx, map[string]interface{}{
		"recipe_id": recipe.ID,
		"author_id": userID,
	}).Info("recipe created")

	resp, err := h.presentOne(ctx, userID, recipe.ID)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ownRecipe loads recipe :id and checks the principal wrote it
func (h *Handler) ownRecipe(c *gin.Context) (models.Recipe, error) {
	id, err := request.ID(c, "id", "Recipe")
	if err != nil {
		return models.Recipe{}, err
	}

	var recipe models.Recipe
	if err := h.db.WithContext(c.Request.Context()).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Recipe{}, apierror.NewNotFound("Recipe")
		}
		return models.Recipe{}, err
	}

	if recipe.AuthorID != auth.UserID(c) {
		return models.Recipe{}, apierror.NewForbidden("You do not have permission to perform this action")
	}
	return recipe, nil
}

// Update replaces a recipe's content; only its author may do so
// @Summary Update recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body RecipeWriteRequest true "Recipe"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} apierror.Response
// @Failure 403 {object} apierror.Response
// @Failure 404 {object} apierror.Response
// @Security TokenAuth
// @Router /recipes/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	recipe, err := h.ownRecipe(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	req, err := h.bindWrite(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	oldImage := ""
	updates := map[string]interface{}{
		"name":         req.Name,
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}
	if req.Image != "" {
		newImage, err := h.saveImage(ctx, req.Image)
		if err != nil {
			apierror.Respond(c, err)
			return
		}
		updates["image"] = newImage
		oldImage = recipe.Image
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&recipe).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return err
		}
		return replaceRelations(tx, recipe.ID, req)
	})
	if err != nil {
		if newImage, ok := updates["image"].(string); ok {
			h.discardImage(ctx, newImage)
		}
		apierror.Respond(c, translateWriteError(err))
		return
	}
	h.discardImage(ctx, oldImage)

	resp, err := h.presentOne(ctx, auth.UserID(c), recipe.ID)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes a recipe; only its author may do so
// @Summary Delete recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} apierror.Response
// @Failure 404 {object} apierror.Response
// @Security TokenAuth
// @Router /recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	recipe, err := h.ownRecipe(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if err := h.db.WithContext(ctx).Delete(&models.Recipe{}, recipe.ID).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	h.discardImage(ctx, recipe.Image)

	logging.WithFields(ctx, map[string]interface{}{"recipe_id": recipe.ID}).Info("recipe deleted")
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers recipe routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.List)
	rg.GET("/recipes/:id", h.Get)

	authed := rg.Group("/recipes", auth.RequireAuth())
	authed.POST("", h.Create)
	authed.PATCH("/:id", h.Update)
	authed.DELETE("/:id", h.Delete)

	authed.POST("/:id/favorite", h.add(favoriteKind))
	authed.DELETE("/:id/favorite", h.remove(favoriteKind))
	authed.POST("/:id/shopping_cart", h.add(cartKind))
	authed.DELETE("/:id/shopping_cart", h.remove(cartKind))
}
