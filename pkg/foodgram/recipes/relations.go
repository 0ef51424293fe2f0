package recipes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"gorm.io/gorm"
)

// relationKind describes a per-user recipe list such as favorites
type relationKind struct {
	table     string
	newRow    func(userID, recipeID uint) interface{}
	duplicate string
	absent    string
}

var favoriteKind = relationKind{
	table: "favorites",
	newRow: func(userID, recipeID uint) interface{} {
		return &models.Favorite{AuthorID: userID, RecipeID: recipeID}
	},
	duplicate: "Recipe is already in favorites",
	absent:    "Recipe is not in favorites",
}

var cartKind = relationKind{
	table: "shopping_list_entries",
	newRow: func(userID, recipeID uint) interface{} {
		return &models.ShoppingListEntry{AuthorID: userID, RecipeID: recipeID}
	},
	duplicate: "Recipe is already in the shopping cart",
	absent:    "Recipe is not in the shopping cart",
}

func (h *Handler) recipeForRelation(c *gin.Context) (models.Recipe, bool) {
	id, err := request.ID(c, "id", "Recipe")
	if err != nil {
		apierror.Respond(c, err)
		return models.Recipe{}, false
	}

	var recipe models.Recipe
	if err := h.db.WithContext(c.Request.Context()).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apierror.NewNotFound("Recipe")
		}
		apierror.Respond(c, err)
		return models.Recipe{}, false
	}
	return recipe, true
}

// add returns a handler that puts the recipe on the principal's list
func (h *Handler) add(kind relationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipe, ok := h.recipeForRelation(c)
		if !ok {
			return
		}
		userID := auth.UserID(c)
		db := h.db.WithContext(c.Request.Context())

		var count int64
		if err := db.Table(kind.table).Where("author_id = ? AND recipe_id = ?", userID, recipe.ID).Count(&count).Error; err != nil {
			apierror.Respond(c, err)
			return
		}
		if count > 0 {
			apierror.Respond(c, apierror.NewConflict(kind.duplicate))
			return
		}

		if err := db.Omit("Author", "Recipe").Create(kind.newRow(userID, recipe.ID)).Error; err != nil {
			if database.IsUniqueViolation(err) {
				err = apierror.NewConflict(kind.duplicate)
			}
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, h.presenter.RecipeShort(recipe))
	}
}

// remove returns a handler that takes the recipe off the principal's list
func (h *Handler) remove(kind relationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipe, ok := h.recipeForRelation(c)
		if !ok {
			return
		}

		result := h.db.WithContext(c.Request.Context()).
			Where("author_id = ? AND recipe_id = ?", auth.UserID(c), recipe.ID).
			Delete(kind.newRow(0, 0))
		if result.Error != nil {
			apierror.Respond(c, result.Error)
			return
		}
		if result.RowsAffected == 0 {
			apierror.Respond(c, &apierror.AppError{Kind: apierror.KindNotFound, Message: kind.absent})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
