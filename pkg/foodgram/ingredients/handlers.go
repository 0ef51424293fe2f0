package ingredients

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"gorm.io/gorm"
)

// Handler handles ingredient lookup
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new ingredients handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// IngredientResponse represents an ingredient in API responses
type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func ToResponse(i models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: string(i.MeasurementUnit)}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns ingredients whose name starts with prefix, ignoring case,
// ordered by name
func Search(db *gorm.DB, prefix string) ([]models.Ingredient, error) {
	query := db.Order("name").Order("id")
	if prefix == "" {
		var all []models.Ingredient
		if err := query.Find(&all).Error; err != nil {
			return nil, err
		}
		return all, nil
	}

	lowered := strings.ToLower(prefix)
	if db.Dialector.Name() == "postgres" {
		var found []models.Ingredient
		err := query.Where(`name ILIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%").Find(&found).Error
		return found, err
	}

	// SQLite only folds ASCII case, so match in Go for Cyrillic names
	var candidates []models.Ingredient
	if err := query.Find(&candidates).Error; err != nil {
		return nil, err
	}
	found := candidates[:0]
	for _, ing := range candidates {
		if strings.HasPrefix(strings.ToLower(ing.Name), lowered) {
			found = append(found, ing)
		}
	}
	return found, nil
}

// List returns ingredients, optionally filtered by ?name prefix
// @Summary List ingredients
// @Tags ingredients
// @Produce json
// @Param name query string false "Name prefix"
// @Success 200 {array} IngredientResponse
// @Router /ingredients [get]
func (h *Handler) List(c *gin.Context) {
	results, err := Search(h.db.WithContext(c.Request.Context()), strings.TrimSpace(c.Query("name")))
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	out := make([]IngredientResponse, len(results))
	for i, ing := range results {
		out[i] = ToResponse(ing)
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single ingredient
// @Summary Get ingredient
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} IngredientResponse
// @Failure 404 {object} apierror.Response
// @Router /ingredients/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := request.ID(c, "id", "Ingredient")
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	var ing models.Ingredient
	if err := h.db.WithContext(c.Request.Context()).First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apierror.NewNotFound("Ingredient")
		}
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponse(ing))
}

// RegisterRoutes registers ingredient routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ingredients", h.List)
	rg.GET("/ingredients/:id", h.Get)
}
