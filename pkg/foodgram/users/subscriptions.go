package users

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/request"
	"gorm.io/gorm"
)

// SubscriptionView is a followed author with a preview of their recipes
type SubscriptionView struct {
	presenter.UserView
	Recipes      []presenter.RecipeShort `json:"recipes"`
	RecipesCount int64                   `json:"recipes_count"`
}

// withRecipes renders authors followed by the principal. limit caps the
// recipes listed per author; zero means no cap.
func (h *Handler) withRecipes(ctx context.Context, authors []models.User, limit int) ([]SubscriptionView, error) {
	db := h.db.WithContext(ctx)

	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	type authorCount struct {
		AuthorID uint
		Count    int64
	}
	var counts []authorCount
	if len(ids) > 0 {
		err := db.Model(&models.Recipe{}).
			Select("author_id, COUNT(*) AS count").
			Where("author_id IN ?", ids).
			Group("author_id").
			Scan(&counts).Error
		if err != nil {
			return nil, err
		}
	}
	countByAuthor := make(map[uint]int64, len(counts))
	for _, ac := range counts {
		countByAuthor[ac.AuthorID] = ac.Count
	}

	recipesByAuthor := make(map[uint][]presenter.RecipeShort, len(ids))
	if len(ids) > 0 {
		var recipes []models.Recipe
		query := db.Where("author_id IN ?", ids)
		if limit > 0 {
			// Newest `limit` recipes per author in one round trip
			ranked := db.Model(&models.Recipe{}).
				Select("recipes.*, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY pub_date DESC, id DESC) AS rn").
				Where("author_id IN ?", ids)
			query = db.Table("(?) AS ranked", ranked).Where("rn <= ?", limit)
		}
		if err := query.Order("author_id, pub_date DESC, id DESC").Find(&recipes).Error; err != nil {
			return nil, err
		}
		for _, r := range recipes {
			recipesByAuthor[r.AuthorID] = append(recipesByAuthor[r.AuthorID], h.presenter.RecipeShort(r))
		}
	}

	views := make([]SubscriptionView, len(authors))
	for i, a := range authors {
		shorts := recipesByAuthor[a.ID]
		if shorts == nil {
			shorts = []presenter.RecipeShort{}
		}
		views[i] = SubscriptionView{
			UserView:     h.presenter.UserView(a, true),
			Recipes:      shorts,
			RecipesCount: countByAuthor[a.ID],
		}
	}
	return views, nil
}

// Subscriptions lists authors the principal follows, oldest follow first
// @Summary List subscriptions
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} pagination.Page[SubscriptionView]
// @Security TokenAuth
// @Router /users/subscriptions [get]
func (h *Handler) Subscriptions(c *gin.Context) {
	ctx := c.Request.Context()
	params, err := h.paginator.Parse(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	recipesLimit, _ := request.PositiveInt(c, "recipes_limit")

	query := h.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.subscriber_id = ?", auth.UserID(c))

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := params.Check(count); err != nil {
		apierror.Respond(c, err)
		return
	}

	var authors []models.User
	if err := query.Select("users.*").Order("follows.id").Scopes(params.Scope).Find(&authors).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	views, err := h.withRecipes(ctx, authors, recipesLimit)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, params, count, views))
}

// Subscribe follows an author
// @Summary Subscribe
// @Tags users
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes to include"
// @Success 201 {object} SubscriptionView
// @Failure 400 {object} apierror.Response
// @Failure 404 {object} apierror.Response
// @Security TokenAuth
// @Router /users/{id}/subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := request.ID(c, "id", "User")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	author, err := h.findUser(c, id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	subscriberID := auth.UserID(c)
	if author.ID == subscriberID {
		apierror.Respond(c, apierror.NewValidation("You cannot subscribe to yourself"))
		return
	}

	db := h.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.Follow{}).
		Where("subscriber_id = ? AND author_id = ?", subscriberID, author.ID).
		Count(&existing).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if existing > 0 {
		apierror.Respond(c, apierror.NewConflict("You are already subscribed to this user"))
		return
	}

	follow := models.Follow{SubscriberID: subscriberID, AuthorID: author.ID}
	if err := db.Create(&follow).Error; err != nil {
		switch {
		case database.IsUniqueViolation(err):
			err = apierror.NewConflict("You are already subscribed to this user")
		case database.IsCheckViolation(err):
			err = apierror.NewValidation("You cannot subscribe to yourself")
		}
		apierror.Respond(c, err)
		return
	}

	recipesLimit, _ := request.PositiveInt(c, "recipes_limit")
	views, err := h.withRecipes(ctx, []models.User{author}, recipesLimit)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, views[0])
}

// Unsubscribe stops following an author
// @Summary Unsubscribe
// @Tags users
// @Param id path int true "Author ID"
// @Success 204
// @Failure 400 {object} apierror.Response
// @Failure 404 {object} apierror.Response
// @Security TokenAuth
// @Router /users/{id}/subscribe [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	id, err := request.ID(c, "id", "User")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	author, err := h.findUser(c, id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("subscriber_id = ? AND author_id = ?", auth.UserID(c), author.ID).
		Delete(&models.Follow{})
	if result.Error != nil {
		apierror.Respond(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		apierror.Respond(c, apierror.NewValidation("You are not subscribed to this user"))
		return
	}
	c.Status(http.StatusNoContent)
}

