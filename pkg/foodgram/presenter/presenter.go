// Package presenter builds the user and recipe summaries shared by the
// users and recipes endpoints.
package presenter

import (
	"context"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"gorm.io/gorm"
)

// UserView is a user as seen by the requesting principal
type UserView struct {
	Email        string  `json:"email"`
	ID           uint    `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

// RecipeShort is the compact recipe projection
type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// Presenter renders models for a viewer
type Presenter struct {
	db     *gorm.DB
	images storage.ImageStore
}

func New(db *gorm.DB, images storage.ImageStore) *Presenter {
	return &Presenter{db: db, images: images}
}

func (p *Presenter) ImageURL(key string) string {
	return p.images.URL(key)
}

// FollowedAmong returns which of authorIDs the viewer follows. Anonymous
// viewers (id 0) follow nobody.
func (p *Presenter) FollowedAmong(ctx context.Context, viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	followed := make(map[uint]bool)
	if viewerID == 0 || len(authorIDs) == 0 {
		return followed, nil
	}

	var ids []uint
	err := p.db.WithContext(ctx).Model(&models.Follow{}).
		Where("subscriber_id = ? AND author_id IN ?", viewerID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}

// UserView renders u with a precomputed subscription flag
func (p *Presenter) UserView(u models.User, subscribed bool) UserView {
	view := UserView{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != nil && *u.Avatar != "" {
		url := p.images.URL(*u.Avatar)
		view.Avatar = &url
	}
	return view
}

// Users renders users for viewerID with one subscription lookup
func (p *Presenter) Users(ctx context.Context, viewerID uint, users []models.User) ([]UserView, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	followed, err := p.FollowedAmong(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = p.UserView(u, followed[u.ID])
	}
	return views, nil
}

// User renders a single user for viewerID
func (p *Presenter) User(ctx context.Context, viewerID uint, u models.User) (UserView, error) {
	views, err := p.Users(ctx, viewerID, []models.User{u})
	if err != nil {
		return UserView{}, err
	}
	return views[0], nil
}

func (p *Presenter) RecipeShort(r models.Recipe) RecipeShort {
	return RecipeShort{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}
