package tags

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func ToResponse(t models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

// List returns every tag, unpaginated
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} TagResponse
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	var results []models.Tag
	if err := h.db.WithContext(c.Request.Context()).Order("id").Find(&results).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	tags := make([]TagResponse, len(results))
	for i, t := range results {
		tags[i] = ToResponse(t)
	}
	c.JSON(http.StatusOK, tags)
}

// Get returns a single tag
// @Summary Get tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} TagResponse
// @Failure 404 {object} apierror.Response
// @Router /tags/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := request.ID(c, "id", "Tag")
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	var tag models.Tag
	if err := h.db.WithContext(c.Request.Context()).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apierror.NewNotFound("Tag")
		}
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponse(tag))
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.GET("/tags/:id", h.Get)
}
