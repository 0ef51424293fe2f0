// Package testutil provides fixtures shared by handler tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"gorm.io/gorm"
)

const (
	JWTSecret = "test-secret"
	Password  = "password123"
	BaseURL   = "http://foodgram.test"

	// PNGDataURI is a one pixel image accepted by storage.DecodeDataURI
	PNGDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="
)

// SetupTestDB returns a migrated in-memory SQLite database with foreign keys on
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewRouter returns a test-mode engine with optional auth installed
func NewRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(auth.OptionalAuth(Issuer()))
	return r
}

func Issuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(JWTSecret, time.Hour)
}

// CreateUser stores a user named username with the shared test password
func CreateUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(Password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "First",
		LastName:     "Last",
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// AuthHeader returns an Authorization header value for user
func AuthHeader(t *testing.T, user models.User) string {
	t.Helper()
	token, err := Issuer().GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return "Token " + token
}

func CreateTag(t *testing.T, db *gorm.DB, name, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: slug}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name string, unit models.Unit) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(&ing).Error; err != nil {
		t.Fatalf("Failed to create ingredient: %v", err)
	}
	return ing
}

// Item is an ingredient line for CreateRecipe
type Item struct {
	IngredientID uint
	Amount       int
}

// CreateRecipe stores a recipe with the given tags and ingredient lines
func CreateRecipe(t *testing.T, db *gorm.DB, authorID uint, name string, tagIDs []uint, items ...Item) models.Recipe {
	t.Helper()
	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Image:       "recipes/images/" + name + ".png",
		Text:        "Cook " + name,
		CookingTime: 10,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if err := tx.Create(&models.RecipeTag{RecipeID: recipe.ID, TagID: tagID}).Error; err != nil {
				return err
			}
		}
		for _, item := range items {
			line := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: item.IngredientID, Amount: item.Amount}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create recipe: %v", err)
	}
	return recipe
}

// MemoryStore is an in-memory storage.ImageStore
type MemoryStore struct {
	mu      sync.Mutex
	n       int
	Objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}}
}

func (s *MemoryStore) Save(_ context.Context, prefix string, img storage.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	key := fmt.Sprintf("%s/img%d.%s", prefix, s.n, img.Ext)
	s.Objects[key] = img.Data
	return key, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	return nil
}

func (s *MemoryStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return BaseURL + "/media/" + key
}

func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}
