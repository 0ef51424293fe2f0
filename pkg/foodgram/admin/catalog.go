package admin

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/ingredients"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"github.com/mikepea/foodgram/pkg/foodgram/sanitize"
	"github.com/mikepea/foodgram/pkg/foodgram/tags"
	"gorm.io/gorm"
)

var slugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// TagRequest is the body for creating or replacing a tag
type TagRequest struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"required,max=64"`
}

// IngredientRequest is the body for creating or replacing an ingredient
type IngredientRequest struct {
	Name            string `json:"name" binding:"required,max=256"`
	MeasurementUnit string `json:"measurement_unit" binding:"required"`
}

func bindTag(c *gin.Context) (models.Tag, error) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.Tag{}, apierror.FromBinding(err)
	}
	if !slugRegex.MatchString(req.Slug) {
		return models.Tag{}, apierror.NewFieldError("slug", "Enter a valid slug of letters, numbers, underscores or hyphens.")
	}
	name := sanitize.Text(req.Name)
	if name == "" {
		return models.Tag{}, apierror.NewFieldError("name", "This field may not be blank.")
	}
	return models.Tag{Name: name, Slug: req.Slug}, nil
}

func bindIngredient(c *gin.Context) (models.Ingredient, error) {
	var req IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.Ingredient{}, apierror.FromBinding(err)
	}
	unit := models.Unit(req.MeasurementUnit)
	if !unit.Valid() {
		return models.Ingredient{}, apierror.NewFieldError("measurement_unit", "Unknown measurement unit.")
	}
	name := sanitize.Text(req.Name)
	if name == "" {
		return models.Ingredient{}, apierror.NewFieldError("name", "This field may not be blank.")
	}
	return models.Ingredient{Name: name, MeasurementUnit: unit}, nil
}

func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NewNotFound(resource)
	}
	return err
}

func conflict(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return apierror.NewConflict(message)
	}
	return err
}

// CreateTag adds a tag
// @Summary Create tag (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TagRequest true "Tag"
// @Success 201 {object} tags.TagResponse
// @Security TokenAuth
// @Router /admin/tags [post]
func (h *Handler) CreateTag(c *gin.Context) {
	tag, err := bindTag(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&tag).Error; err != nil {
		apierror.Respond(c, conflict(err, "A tag with that slug already exists"))
		return
	}
	c.JSON(http.StatusCreated, tags.ToResponse(tag))
}

// UpdateTag replaces a tag's name and slug
// @Summary Update tag (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Tag ID"
// @Param request body TagRequest true "Tag"
// @Success 200 {object} tags.TagResponse
// @Security TokenAuth
// @Router /admin/tags/{id} [put]
func (h *Handler) UpdateTag(c *gin.Context) {
	id, err := request.ID(c, "id", "Tag")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var tag models.Tag
	if err := db.First(&tag, id).Error; err != nil {
		apierror.Respond(c, notFound(err, "Tag"))
		return
	}
	update, err := bindTag(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if err := db.Model(&tag).Updates(map[string]interface{}{"name": update.Name, "slug": update.Slug}).Error; err != nil {
		apierror.Respond(c, conflict(err, "A tag with that slug already exists"))
		return
	}
	tag.Name, tag.Slug = update.Name, update.Slug
	c.JSON(http.StatusOK, tags.ToResponse(tag))
}

// DeleteTag removes a tag and detaches it from recipes
// @Summary Delete tag (admin)
// @Tags admin
// @Param id path int true "Tag ID"
// @Success 204
// @Security TokenAuth
// @Router /admin/tags/{id} [delete]
func (h *Handler) DeleteTag(c *gin.Context) {
	id, err := request.ID(c, "id", "Tag")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	result := h.db.WithContext(c.Request.Context()).Delete(&models.Tag{}, id)
	if result.Error != nil {
		apierror.Respond(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		apierror.Respond(c, apierror.NewNotFound("Tag"))
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateIngredient adds an ingredient
// @Summary Create ingredient (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param request body IngredientRequest true "Ingredient"
// @Success 201 {object} ingredients.IngredientResponse
// @Security TokenAuth
// @Router /admin/ingredients [post]
func (h *Handler) CreateIngredient(c *gin.Context) {
	ingredient, err := bindIngredient(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&ingredient).Error; err != nil {
		apierror.Respond(c, conflict(err, "This ingredient already exists with that unit"))
		return
	}
	c.JSON(http.StatusCreated, ingredients.ToResponse(ingredient))
}

// UpdateIngredient replaces an ingredient's name and unit
// @Summary Update ingredient (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Ingredient ID"
// @Param request body IngredientRequest true "Ingredient"
// @Success 200 {object} ingredients.IngredientResponse
// @Security TokenAuth
// @Router /admin/ingredients/{id} [put]
func (h *Handler) UpdateIngredient(c *gin.Context) {
	id, err := request.ID(c, "id", "Ingredient")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var ingredient models.Ingredient
	if err := db.First(&ingredient, id).Error; err != nil {
		apierror.Respond(c, notFound(err, "Ingredient"))
		return
	}
	update, err := bindIngredient(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	ingredient.Name, ingredient.MeasurementUnit = update.Name, update.MeasurementUnit
	if err := db.Save(&ingredient).Error; err != nil {
		apierror.Respond(c, conflict(err, "This ingredient already exists with that unit"))
		return
	}
	c.JSON(http.StatusOK, ingredients.ToResponse(ingredient))
}

// DeleteIngredient removes an ingredient. Recipe lines using it go with it.
// @Summary Delete ingredient (admin)
// @Tags admin
// @Param id path int true "Ingredient ID"
// @Success 204
// @Security TokenAuth
// @Router /admin/ingredients/{id} [delete]
func (h *Handler) DeleteIngredient(c *gin.Context) {
	id, err := request.ID(c, "id", "Ingredient")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	result := h.db.WithContext(c.Request.Context()).Delete(&models.Ingredient{}, id)
	if result.Error != nil {
		apierror.Respond(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		apierror.Respond(c, apierror.NewNotFound("Ingredient"))
		return
	}
	c.Status(http.StatusNoContent)
}
