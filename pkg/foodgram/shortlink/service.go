// Package shortlink assigns short tokens to recipes and resolves them.
package shortlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Service assigns and resolves recipe short links
type Service struct {
	db     *gorm.DB
	source Source
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, source: UUIDSource}
}

// Assign returns the recipe's short link, creating one on first use.
// The token is only written while the column is still NULL, so concurrent
// callers agree on a single token.
func (s *Service) Assign(ctx context.Context, recipeID uint) (string, error) {
	db := s.db.WithContext(ctx)

	existing, err := s.current(db, recipeID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	gen := NewGenerator(s.source)
	for {
		token, err := gen.Next()
		if err != nil {
			return "", apierror.NewInternal("Failed to generate short link", err)
		}

		var taken int64
		if err := db.Model(&models.Recipe{}).Where("short_link = ?", token).Count(&taken).Error; err != nil {
			return "", err
		}
		if taken > 0 {
			gen.Collided()
			continue
		}

		result := db.Model(&models.Recipe{}).
			Where("id = ? AND short_link IS NULL", recipeID).
			Update("short_link", token)
		if result.Error != nil {
			if database.IsUniqueViolation(result.Error) {
				gen.Collided()
				continue
			}
			return "", fmt.Errorf("store short link: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			logging.WithFields(ctx, map[string]interface{}{
				"recipe_id":  recipeID,
				"short_link": token,
			}).Info("short link assigned")
			return token, nil
		}

		// Another request won the race, or the recipe is gone
		existing, err := s.current(db, recipeID)
		if err != nil {
			return "", err
		}
		if existing != "" {
			return existing, nil
		}
	}
}

// Resolve returns the id of the recipe owning token
func (s *Service) Resolve(ctx context.Context, token string) (uint, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Select("id").Where("short_link = ?", token).First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apierror.NewNotFound("Short link")
	}
	if err != nil {
		return 0, err
	}
	return recipe.ID, nil
}

func (s *Service) current(db *gorm.DB, recipeID uint) (string, error) {
	var recipe models.Recipe
	err := db.Select("id", "short_link").First(&recipe, recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apierror.NewNotFound("Recipe")
	}
	if err != nil {
		return "", err
	}
	if recipe.ShortLink == nil {
		return "", nil
	}
	return *recipe.ShortLink, nil
}
