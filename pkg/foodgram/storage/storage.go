// Package storage persists uploaded images on local disk or in S3.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Key prefixes for stored images
const (
	PrefixRecipes = "recipes/images"
	PrefixAvatars = "users"
)

// ImageStore saves images under generated keys and maps keys to public URLs
type ImageStore interface {
	Save(ctx context.Context, prefix string, img Image) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

func newKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%s.%s", prefix, uuid.New().String(), ext)
}
