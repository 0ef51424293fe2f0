package storage

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngPixel = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func dataURI(ext string, data []byte) string {
	return "data:image/" + ext + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestDecodeDataURI(t *testing.T) {
	img, err := DecodeDataURI(dataURI("png", pngPixel))
	require.NoError(t, err)
	assert.Equal(t, "png", img.Ext)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngPixel, img.Data)

	img, err = DecodeDataURI(dataURI("JPEG", pngPixel))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", img.Ext)
}

func TestDecodeDataURIInvalid(t *testing.T) {
	cases := []string{
		"",
		"not a data uri",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png,aGVsbG8=",
		"data:image/bmp;base64,aGVsbG8=",
		"data:image/png;base64,!!!",
		"data:image/png;base64,",
	}
	for _, c := range cases {
		_, err := DecodeDataURI(c)
		assert.ErrorIs(t, err, ErrInvalidImage, c)
	}
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8080/media")
	ctx := context.Background()

	key, err := store.Save(ctx, PrefixRecipes, Image{Data: pngPixel, Ext: "png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "recipes/images/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngPixel, data)

	assert.Equal(t, "http://localhost:8080/media/"+key, store.URL(key))
	assert.Equal(t, "", store.URL(""))

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine
	assert.NoError(t, store.Delete(ctx, key))
	assert.Error(t, store.Delete(ctx, "../outside.png"))
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	store := newS3Store(fake, "foodgram-media", "")
	ctx := context.Background()

	key, err := store.Save(ctx, PrefixAvatars, Image{Data: pngPixel, Ext: "png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "users/"))
	assert.Equal(t, pngPixel, fake.objects[key])
	assert.Equal(t, "image/png", fake.types[key])
	assert.Equal(t, "https://foodgram-media.s3.amazonaws.com/"+key, store.URL(key))

	require.NoError(t, store.Delete(ctx, key))
	assert.NotContains(t, fake.objects, key)
}

func TestS3StorePublicURL(t *testing.T) {
	store := newS3Store(&fakeS3{}, "bucket", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/users/a.png", store.URL("users/a.png"))
}
