package recipes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/sanitize"
	"gorm.io/gorm"
)

// IngredientAmount is one ingredient line of a write request
type IngredientAmount struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"min=1"`
}

// RecipeWriteRequest is the body of create and update
type RecipeWriteRequest struct {
	Ingredients []IngredientAmount `json:"ingredients" binding:"required,min=1,unique=ID,dive"`
	Tags        []uint             `json:"tags" binding:"required,min=1,unique"`
	Image       string             `json:"image"`
	Name        string             `json:"name" binding:"required,max=256"`
	Text        string             `json:"text" binding:"required"`
	CookingTime int                `json:"cooking_time" binding:"min=1"`
}

// normalize strips markup from free text fields and rejects values that
// end up empty
func (r *RecipeWriteRequest) normalize() error {
	r.Name = sanitize.Text(r.Name)
	r.Text = sanitize.Text(r.Text)
	if r.Name == "" {
		return apierror.NewFieldError("name", "This field may not be blank.")
	}
	if r.Text == "" {
		return apierror.NewFieldError("text", "This field may not be blank.")
	}
	return nil
}

// checkReferences verifies every tag and ingredient id exists
func checkReferences(ctx context.Context, db *gorm.DB, req *RecipeWriteRequest) error {
	if missing, err := missingIDs(ctx, db, &models.Tag{}, req.Tags); err != nil {
		return err
	} else if len(missing) > 0 {
		return apierror.NewFieldError("tags", "Unknown tag id(s): "+joinIDs(missing)+".")
	}

	ingredientIDs := make([]uint, len(req.Ingredients))
	for i, item := range req.Ingredients {
		ingredientIDs[i] = item.ID
	}
	if missing, err := missingIDs(ctx, db, &models.Ingredient{}, ingredientIDs); err != nil {
		return err
	} else if len(missing) > 0 {
		return apierror.NewFieldError("ingredients", "Unknown ingredient id(s): "+joinIDs(missing)+".")
	}
	return nil
}

func missingIDs(ctx context.Context, db *gorm.DB, model interface{}, ids []uint) ([]uint, error) {
	var found []uint
	if err := db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// replaceRelations swaps the recipe's tag and ingredient rows for the
// requested ones. Must run inside the caller's transaction.
func replaceRelations(tx *gorm.DB, recipeID uint, req *RecipeWriteRequest) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}

	recipeTags := make([]models.RecipeTag, len(req.Tags))
	for i, tagID := range req.Tags {
		recipeTags[i] = models.RecipeTag{RecipeID: recipeID, TagID: tagID}
	}
	if err := tx.Omit("Tag").Create(&recipeTags).Error; err != nil {
		return err
	}

	lines := make([]models.RecipeIngredient, len(req.Ingredients))
	for i, item := range req.Ingredients {
		lines[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount}
	}
	return tx.Omit("Ingredient").Create(&lines).Error
}
