package users

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
)

// AvatarRequest carries a base64 data URI image
type AvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// AvatarResponse returns the public URL of the stored avatar
type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// SetAvatar replaces the principal's avatar
// @Summary Set avatar
// @Tags users
// @Accept json
// @Produce json
// @Param request body AvatarRequest true "Avatar image"
// @Success 200 {object} AvatarResponse
// @Failure 400 {object} apierror.Response
// @Security TokenAuth
// @Router /users/me/avatar [put]
func (h *Handler) SetAvatar(c *gin.Context) {
	ctx := c.Request.Context()

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}
	img, err := storage.DecodeDataURI(req.Avatar)
	if err != nil {
		apierror.Respond(c, apierror.NewFieldError("avatar", "Upload a valid base64 encoded image."))
		return
	}

	user, err := h.currentUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	oldKey := avatarKey(user)
	key, err := h.images.Save(ctx, storage.PrefixAvatars, img)
	if err != nil {
		apierror.Respond(c, apierror.NewInternal("Failed to store image", err))
		return
	}
	if err := h.setAvatarKey(ctx, user.ID, &key); err != nil {
		h.discardImage(ctx, key)
		apierror.Respond(c, err)
		return
	}
	h.discardImage(ctx, oldKey)

	c.JSON(http.StatusOK, AvatarResponse{Avatar: h.images.URL(key)})
}

// DeleteAvatar clears the principal's avatar
// @Summary Delete avatar
// @Tags users
// @Success 204
// @Security TokenAuth
// @Router /users/me/avatar [delete]
func (h *Handler) DeleteAvatar(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.currentUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if oldKey := avatarKey(user); oldKey != "" {
		if err := h.setAvatarKey(ctx, user.ID, nil); err != nil {
			apierror.Respond(c, err)
			return
		}
		h.discardImage(ctx, oldKey)
	}
	c.Status(http.StatusNoContent)
}

func avatarKey(u models.User) string {
	if u.Avatar == nil {
		return ""
	}
	return *u.Avatar
}

// setAvatarKey stores key (nil clears it) without touching any loaded
// user value
func (h *Handler) setAvatarKey(ctx context.Context, userID uint, key *string) error {
	return h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("avatar", key).Error
}

func (h *Handler) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := h.images.Delete(ctx, key); err != nil {
		logging.WithContext(ctx).WithError(err).WithField("image", key).Warn("failed to delete avatar")
	}
}
