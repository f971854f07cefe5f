package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string]string
	sizes   map[string]int64
	deleted []string
	err     error
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: make(map[string]string), sizes: make(map[string]int64)}
}

func (u *memoryUploader) Upload(_ context.Context, key, _ string, body io.ReadSeeker, size int64) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = string(b)
	u.sizes[key] = size
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func newTestNewsService(f *fixture, uploader storage.FileUploader) *newsService {
	svc := NewNewsService(f.store.News(), uploader, f.guard, f.events, f.logger).(*newsService)
	svc.now = fixedClock
	return svc
}

func TestNewsSave_CreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)

	n, created, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "Patch 1.2", Content: "Notes", Published: true}, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, f.admin.UserID, n.AuthorID)
	assert.Equal(t, testNow, n.CreatedAt)
	assert.Nil(t, n.Excerpt)

	n2, created, err := svc.Save(t.Context(), f.admin, &n.ID, NewsInput{Title: "Patch 1.2.1", Content: "Hotfix", Excerpt: " short ", Published: true}, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, n.ID, n2.ID)
	assert.Equal(t, "Patch 1.2.1", n2.Title)
	require.NotNil(t, n2.Excerpt)
	assert.Equal(t, "short", *n2.Excerpt)

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventCreated, events[0].Type)
	assert.Equal(t, EventUpdated, events[1].Type)
	assert.Equal(t, EventRef{ID: n.ID}, events[1].Payload)
}

func TestNewsEvents_DraftsStayPrivate(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)

	draft, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "Secret roster", Content: "Unannounced signing"}, nil)
	require.NoError(t, err)
	_, _, err = svc.Save(t.Context(), f.admin, &draft.ID, NewsInput{Title: "Secret roster", Content: "Still private"}, nil)
	require.NoError(t, err)
	_, err = svc.ToggleFeatured(t.Context(), f.admin, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, f.events.Events(), "draft changes must not reach the public room")

	_, err = svc.TogglePublished(t.Context(), f.admin, draft.ID)
	require.NoError(t, err)
	_, err = svc.TogglePublished(t.Context(), f.admin, draft.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(t.Context(), f.admin, draft.ID))

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, publishedEvent{RoomNews, EventUpdated, EventRef{ID: draft.ID}}, events[0])
	// снятие с публикации выглядит для читателей как удаление
	assert.Equal(t, publishedEvent{RoomNews, EventDeleted, EventRef{ID: draft.ID}}, events[1])
}

func TestNewsSave_RequiredFields(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)

	_, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "  "}, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"title", "content"}, ve.Fields)
}

func TestNewsSave_UpdateMissingArticle(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)

	id := uuid.New()
	_, _, err := svc.Save(t.Context(), f.admin, &id, NewsInput{Title: "x", Content: "y"}, nil)
	assert.ErrorIs(t, err, ErrNewsNotFound)
}

func TestNewsSave_ImageWithoutStorage(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)

	image := &ImageUpload{ContentType: "image/png", Body: strings.NewReader("png")}
	_, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "x", Content: "y"}, image)
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestNewsSave_UploadsCoverAndReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	svc := newTestNewsService(f, uploader)

	n, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "Finals Recap", Content: "..."},
		&ImageUpload{ContentType: "image/png", Body: strings.NewReader("first")})
	require.NoError(t, err)
	require.NotNil(t, n.ImageKey)
	require.NotNil(t, n.ImageURL)
	firstKey := *n.ImageKey
	assert.True(t, strings.HasPrefix(firstKey, "news/"+n.ID.String()+"/finals-recap-"))
	assert.Equal(t, "https://cdn.test/"+firstKey, *n.ImageURL)

	n, _, err = svc.Save(t.Context(), f.admin, &n.ID, NewsInput{Title: "Finals Recap", Content: "..."},
		&ImageUpload{ContentType: "image/jpeg", Body: strings.NewReader("second")})
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *n.ImageKey)
	assert.True(t, strings.HasSuffix(*n.ImageKey, ".jpg"))
	assert.Equal(t, []string{firstKey}, uploader.deleted)
	assert.Len(t, uploader.objects, 1)
}

func TestNewsSave_PassesImageSize(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	svc := newTestNewsService(f, uploader)

	n, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "Cover", Content: "..."},
		&ImageUpload{ContentType: "image/png", Body: strings.NewReader("12345"), Size: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), uploader.sizes[*n.ImageKey])
}

func TestNewsSave_FailedUploadCreatesNothing(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	uploader.err = errors.New("bucket unavailable")
	svc := newTestNewsService(f, uploader)

	input := NewsInput{Title: "Finals Recap", Content: "...", Published: true}
	for i := 0; i < 2; i++ {
		_, _, err := svc.Save(t.Context(), f.admin, nil, input,
			&ImageUpload{ContentType: "image/png", Body: strings.NewReader("png")})
		require.Error(t, err)
	}

	items, err := svc.ListForAdmin(t.Context(), f.admin, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, f.events.Events())

	uploader.err = nil
	n, created, err := svc.Save(t.Context(), f.admin, nil, input,
		&ImageUpload{ContentType: "image/png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, n.ImageKey)

	items, err = svc.ListForAdmin(t.Context(), f.admin, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, n.ImageKey, items[0].ImageKey)
}

func TestNewsSave_FailedInsertRemovesUpload(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	svc := newTestNewsService(f, uploader)
	f.store.Fail("news.Create", errors.New("connection reset"))

	_, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "Finals Recap", Content: "..."},
		&ImageUpload{ContentType: "image/png", Body: strings.NewReader("png")})
	require.Error(t, err)
	assert.Empty(t, uploader.objects)
	assert.Len(t, uploader.deleted, 1)
}

func TestNewsSave_RejectsUnsupportedImage(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, newMemoryUploader())

	_, _, err := svc.Save(t.Context(), f.admin, nil, NewsInput{Title: "x", Content: "y"},
		&ImageUpload{ContentType: "application/pdf", Body: strings.NewReader("%PDF")})
	assert.ErrorIs(t, err, ErrUnsupportedImageType)
}

func TestNewsToggles_WriteInverse(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)
	n := f.store.AddNews(models.News{Title: "a", Content: "b", AuthorID: f.admin.UserID, Published: true})

	got, err := svc.TogglePublished(t.Context(), f.admin, n.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)

	got, err = svc.ToggleFeatured(t.Context(), f.admin, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Featured)
	assert.False(t, got.Published)
}

func TestNewsGetPublished_HidesDrafts(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)
	draft := f.store.AddNews(models.News{Title: "draft", AuthorID: f.admin.UserID})

	_, err := svc.GetPublished(t.Context(), draft.ID)
	assert.ErrorIs(t, err, ErrNewsNotFound)

	_, err = svc.GetPublished(t.Context(), uuid.New())
	assert.ErrorIs(t, err, ErrNewsNotFound)
}

func TestNewsListPublished_Window(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)
	for i := 0; i < 5; i++ {
		f.store.AddNews(models.News{
			Title: string(rune('a' + i)), Published: true,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		})
	}

	page, err := svc.ListPublished(t.Context(), 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].Title)
	assert.Equal(t, "d", page[1].Title)
}

func TestNewsListForAdmin_Search(t *testing.T) {
	f := newFixture(t)
	svc := newTestNewsService(f, nil)
	f.store.AddNews(models.News{Title: "Major Announcement"})
	f.store.AddNews(models.News{Title: "Roster update"})

	items, err := svc.ListForAdmin(t.Context(), f.admin, "MAJOR")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Major Announcement", items[0].Title)

	_, err = svc.ListForAdmin(t.Context(), f.player, "")
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestNewsDelete_RemovesCover(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	svc := newTestNewsService(f, uploader)
	key := "news/x/cover.png"
	n := f.store.AddNews(models.News{Title: "a", ImageKey: &key})

	require.NoError(t, svc.Delete(t.Context(), f.admin, n.ID))
	assert.Equal(t, []string{key}, uploader.deleted)

	assert.ErrorIs(t, svc.Delete(t.Context(), f.admin, n.ID), ErrNewsNotFound)
}
