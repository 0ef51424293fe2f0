package shortlink

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"gorm.io/gorm"
)

// Handler serves short link lookup and redirects
type Handler struct {
	service *Service
	baseURL string
}

// NewHandler creates a new short link handler. Links are built on baseURL.
func NewHandler(db *gorm.DB, baseURL string) *Handler {
	return &Handler{service: NewService(db), baseURL: baseURL}
}

// LinkResponse is the get-link payload
type LinkResponse struct {
	ShortLink string `json:"short-link"`
}

// GetLink returns the recipe's short URL, assigning one if needed
// @Summary Get a recipe short link
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} apierror.Response
// @Router /recipes/{id}/get-link [get]
func (h *Handler) GetLink(c *gin.Context) {
	id, err := request.ID(c, "id", "Recipe")
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	token, err := h.service.Assign(c.Request.Context(), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, LinkResponse{ShortLink: h.baseURL + "/s/" + token})
}

// Redirect sends a short link to the recipe it belongs to
func (h *Handler) Redirect(c *gin.Context) {
	recipeID, err := h.service.Resolve(c.Request.Context(), c.Param("short_link"))
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/api/recipes/%d", h.baseURL, recipeID))
}

// RegisterRoutes registers get-link on the API router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes/:id/get-link", h.GetLink)
}

// RegisterRedirect registers /s/:short_link on the root router.
// Call it after the API routes.
func (h *Handler) RegisterRedirect(r *gin.Engine) {
	r.GET("/s/:short_link", h.Redirect)
}
