package storage

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsCoverKey(t *testing.T) {
	id := uuid.MustParse("7b0e7c1e-6f5a-4b39-9d54-6a3d3a2b1c10")

	key := NewsCoverKey(id, "Grand Finals: Team Ω wins!", ".png")

	assert.True(t, strings.HasPrefix(key, "news/7b0e7c1e-6f5a-4b39-9d54-6a3d3a2b1c10/grand-finals-team-"), key)
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, NewsCoverKey(id, "Grand Finals: Team Ω wins!", ".png"))
}

func TestNewsCoverKey_EmptyTitle(t *testing.T) {
	key := NewsCoverKey(uuid.New(), "!!!", ".jpg")
	assert.Contains(t, key, "/cover-")
}

func TestImageExtension(t *testing.T) {
	ext, ok := ImageExtension("image/PNG")
	require.True(t, ok)
	assert.Equal(t, ".png", ext)

	_, ok = ImageExtension("application/pdf")
	assert.False(t, ok)
}

func TestPublicURL(t *testing.T) {
	base, err := url.Parse("https://cdn.example.com/assets/")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/assets/news/1/a.png", PublicURL(base, "news/1/a.png"))
	assert.Equal(t, "https://cdn.example.com/assets/news/1/a.png", PublicURL(base, "/news/1/a.png"))
	assert.Equal(t, "", PublicURL(base, ""))
	assert.Equal(t, "", PublicURL(nil, "x"))
}

func TestPutObjectInput_ContentLength(t *testing.T) {
	body := strings.NewReader("png-bytes")

	in := putObjectInput("covers", "news/1/a.png", "image/png", body, int64(body.Len()))
	require.NotNil(t, in.ContentLength)
	assert.Equal(t, int64(9), *in.ContentLength)
	assert.Equal(t, "covers", *in.Bucket)
	assert.Equal(t, "image/png", *in.ContentType)
	assert.Same(t, body, in.Body)

	in = putObjectInput("covers", "news/1/a.png", "image/png", body, 0)
	assert.Nil(t, in.ContentLength)
}
