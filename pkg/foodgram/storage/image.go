package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidImage is returned for payloads that are not a base64 image data URI
var ErrInvalidImage = errors.New("invalid image data")

var imageTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Image is a decoded upload
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
}

// DecodeDataURI parses "data:image/<ext>;base64,<payload>"
func DecodeDataURI(s string) (Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return Image{}, ErrInvalidImage
	}

	mediaType, encoding, ok := strings.Cut(strings.TrimPrefix(header, "data:image/"), ";")
	if !ok || encoding != "base64" {
		return Image{}, ErrInvalidImage
	}

	ext := strings.ToLower(mediaType)
	contentType, known := imageTypes[ext]
	if !known {
		return Image{}, ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil || len(data) == 0 {
		return Image{}, ErrInvalidImage
	}

	return Image{Data: data, Ext: ext, ContentType: contentType}, nil
}
