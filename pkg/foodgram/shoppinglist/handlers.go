package shoppinglist

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"gorm.io/gorm"
)

// Handler serves the shopping list download
type Handler struct {
	store *Store
}

// NewHandler creates a new shopping list handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{store: NewStore(db)}
}

// Download returns the aggregated shopping list as a text attachment
// @Summary Download shopping list
// @Tags recipes
// @Produce plain
// @Success 200 {string} string "shopping_cart.txt"
// @Success 204 "Cart is empty"
// @Failure 401 {object} apierror.Response
// @Security TokenAuth
// @Router /recipes/download_shopping_cart [get]
func (h *Handler) Download(c *gin.Context) {
	userID := auth.UserID(c)

	items, err := h.store.Items(c.Request.Context(), userID)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	lines := Aggregate(items)
	if len(lines) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := Render(&buf, lines); err != nil {
		apierror.Respond(c, apierror.NewInternal("Failed to render shopping list", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_cart.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// RegisterRoutes registers the download route on the API router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes/download_shopping_cart", auth.RequireAuth(), h.Download)
}
