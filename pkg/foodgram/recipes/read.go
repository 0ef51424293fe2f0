package recipes

import (
	"context"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/tags"
	"gorm.io/gorm"
)

// IngredientLine is an ingredient with the amount a recipe needs
type IngredientLine struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is the full recipe read model
type RecipeResponse struct {
	ID               uint               `json:"id"`
	Tags             []tags.TagResponse `json:"tags"`
	Author           presenter.UserView `json:"author"`
	Ingredients      []IngredientLine   `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
}

// withDetails preloads everything the read model needs
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.id")
		}).
		Preload("Ingredients.Ingredient").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_tags.tag_id")
		}).
		Preload("Tags.Tag")
}

// recipeIDsIn returns the subset of recipeIDs present in table for userID
func recipeIDsIn(ctx context.Context, db *gorm.DB, table string, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if userID == 0 || len(recipeIDs) == 0 {
		return set, nil
	}

	var ids []uint
	err := db.WithContext(ctx).Table(table).
		Where("author_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// present renders recipes for viewerID. Flags for the whole batch are
// loaded with one query per flag.
func (h *Handler) present(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	favorited, err := recipeIDsIn(ctx, h.db, favoriteKind.table, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := recipeIDsIn(ctx, h.db, cartKind.table, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	followed, err := h.presenter.FollowedAmong(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		resp := RecipeResponse{
			ID:               r.ID,
			Tags:             make([]tags.TagResponse, len(r.Tags)),
			Author:           h.presenter.UserView(r.Author, followed[r.AuthorID]),
			Ingredients:      make([]IngredientLine, len(r.Ingredients)),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            h.presenter.ImageURL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
		for j, rt := range r.Tags {
			resp.Tags[j] = tags.ToResponse(rt.Tag)
		}
		for j, ri := range r.Ingredients {
			resp.Ingredients[j] = IngredientLine{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: string(ri.Ingredient.MeasurementUnit),
				Amount:          ri.Amount,
			}
		}
		out[i] = resp
	}
	return out, nil
}

// presentOne loads recipe id with details and renders it
func (h *Handler) presentOne(ctx context.Context, viewerID, id uint) (RecipeResponse, error) {
	var recipe models.Recipe
	if err := withDetails(h.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return RecipeResponse{}, err
	}
	out, err := h.present(ctx, viewerID, []models.Recipe{recipe})
	if err != nil {
		return RecipeResponse{}, err
	}
	return out[0], nil
}
