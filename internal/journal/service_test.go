package journal

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/db/backends/memory"
	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
	"github.com/leafsii/journal-backend/internal/storage"
	"github.com/leafsii/journal-backend/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]Event
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]Event)
	}
	p.events[channel] = append(p.events[channel], message.(Event))
	return nil
}

func (p *recordingPublisher) types(channel string) []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []EventType
	for _, e := range p.events[channel] {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *Service
	db     *memory.Database
	blobs  *storage.LocalStorage
	cache  *store.Cache
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := memory.NewDatabase()
	require.NoError(t, db.Connect(ctx))

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	cache := store.NewInMemoryCache(logger, nil)
	t.Cleanup(func() { cache.Close() })

	events := &recordingPublisher{}
	svc := NewService(db, blobs, logger, WithCache(cache, time.Minute), WithEvents(events))
	return &fixture{svc: svc, db: db, blobs: blobs, cache: cache, events: events}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateEntryDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C", CategoryID: int64Ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.ID)
	assert.Nil(t, entry.CategoryID, "a zero category id means no category")
	assert.True(t, entry.Date.Equal(entry.UpdatedAt))
	assert.Equal(t, []EventType{EventEntryCreated}, f.events.types(ChannelEntries))
}

func TestEntryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    entities.EntryInput
		field string
		msg   string
	}{
		{"missing title", entities.EntryInput{Content: "C"}, "title", MsgTitleRequired},
		{"blank title", entities.EntryInput{Title: "   ", Content: "C"}, "title", MsgTitleRequired},
		{"missing content", entities.EntryInput{Title: "T"}, "content", MsgContentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEntry(ctx, tt.in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.msg, verr.Message)

			_, err = f.svc.UpdateEntry(ctx, 1, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetEntryNotFoundThenFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetEntry(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	got, err := f.svc.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
}

func TestUpdateEntryInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	category, err := f.svc.CreateCategory(ctx, entities.NewCategory{Name: "Voyages"})
	require.NoError(t, err)
	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "avant", Content: "C"})
	require.NoError(t, err)

	// warm both caches
	_, err = f.svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	list, err := f.svc.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := f.svc.UpdateEntry(ctx, entry.ID, entities.EntryInput{Title: "après", Content: "C", CategoryID: &category.ID})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(entry.UpdatedAt))
	assert.True(t, updated.Date.Equal(entry.Date))

	got, err := f.svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "après", got.Title)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Voyages", got.Category.Name)

	list, err = f.svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "après", list[0].Title)
}

func TestUpdateMissingEntry(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateEntry(context.Background(), 99, entities.EntryInput{Title: "T", Content: "C"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEntriesServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	_, err = f.svc.ListEntries(ctx)
	require.NoError(t, err)

	var cached []entities.EntryWithCategory
	require.NoError(t, f.cache.Get(ctx, store.KeyEntries, &cached))
	assert.Len(t, cached, 1)

	// a row written behind the service's back stays invisible until invalidation
	_, err = f.db.Entries().Create(ctx, entities.EntryInput{Title: "direct", Content: "C"})
	require.NoError(t, err)
	list, err := f.svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T2", Content: "C"})
	require.NoError(t, err)
	list, err = f.svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

// gatedEntries holds the first List call after it has read the rows until
// release is closed or the call's context ends
type gatedEntries struct {
	interfaces.EntryRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEntries) List(ctx context.Context) ([]entities.EntryWithCategory, error) {
	list, err := g.EntryRepository.List(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.release:
		}
	}
	return list, err
}

type gatedDB struct {
	interfaces.Database
	entries *gatedEntries
}

func (d *gatedDB) Entries() interfaces.EntryRepository { return d.entries }

func newGatedService(t *testing.T) (*Service, *gatedEntries) {
	f := newFixture(t)
	gated := &gatedEntries{
		EntryRepository: f.db.Entries(),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	cache := store.NewInMemoryCache(zap.NewNop().Sugar(), nil)
	t.Cleanup(func() { cache.Close() })

	svc := NewService(&gatedDB{Database: f.db, entries: gated}, f.blobs, nil, WithCache(cache, time.Minute))
	return svc, gated
}

func TestListOverlappingWriteIsNotCached(t *testing.T) {
	svc, gated := newGatedService(t)
	ctx := context.Background()

	type result struct {
		list []entities.EntryWithCategory
		err  error
	}
	done := make(chan result, 1)
	go func() {
		list, err := svc.ListEntries(ctx)
		done <- result{list, err}
	}()
	<-gated.entered

	created, err := svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	close(gated.release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Empty(t, stale.list)

	list, err := svc.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestSharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	svc, gated := newGatedService(t)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ListEntries(first)
		firstErr <- err
	}()
	<-gated.entered

	type result struct {
		list []entities.EntryWithCategory
		err  error
	}
	second := make(chan result, 1)
	go func() {
		list, err := svc.ListEntries(context.Background())
		second <- result{list, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(gated.release)
	select {
	case res := <-second:
		assert.NoError(t, res.err)
		assert.Empty(t, res.list)
	case <-time.After(2 * time.Second):
		t.Fatal("second reader did not finish")
	}
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCategory(ctx, entities.NewCategory{Name: " "})
	assert.ErrorIs(t, err, ErrValidation)

	for _, name := range []string{"Voyages", "Art", "Lectures"} {
		_, err := f.svc.CreateCategory(ctx, entities.NewCategory{Name: name})
		require.NoError(t, err)
	}
	// cached list must pick up a category created afterwards
	_, err = f.svc.ListCategories(ctx)
	require.NoError(t, err)
	_, err = f.svc.CreateCategory(ctx, entities.NewCategory{Name: "Cuisine"})
	require.NoError(t, err)

	list, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	var names []string
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Art", "Cuisine", "Lectures", "Voyages"}, names)
	assert.Len(t, f.events.types(ChannelCategories), 4)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	_, err = f.svc.CreateComment(ctx, entities.NewComment{EntryID: entry.ID, Content: "c"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgAuthorNameRequired, verr.Message)

	_, err = f.svc.CreateComment(ctx, entities.NewComment{EntryID: entry.ID, AuthorName: "a"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgContentRequired, verr.Message)

	first, err := f.svc.CreateComment(ctx, entities.NewComment{EntryID: entry.ID, Content: "un", AuthorName: "Alice"})
	require.NoError(t, err)
	second, err := f.svc.CreateComment(ctx, entities.NewComment{EntryID: entry.ID, Content: "deux", AuthorName: "Bob"})
	require.NoError(t, err)

	list, err := f.svc.ListComments(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, f.svc.DeleteComment(ctx, first.ID))
	require.NoError(t, f.svc.DeleteComment(ctx, first.ID))
	assert.Equal(t, []EventType{EventCommentCreated, EventCommentCreated, EventCommentDeleted}, f.events.types(ChannelComments))

	_, err = f.svc.CreateComment(ctx, entities.NewComment{EntryID: 404, Content: "c", AuthorName: "a"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestClassifyMediaType(t *testing.T) {
	tests := map[string]entities.MediaType{
		"image/png":                 entities.MediaTypeImage,
		"IMAGE/JPEG":                entities.MediaTypeImage,
		"video/mp4":                 entities.MediaTypeVideo,
		"application/pdf":           entities.MediaTypePDF,
		"application/pdf; charset=": entities.MediaTypePDF,
		"application/zip":           entities.MediaTypeOther,
		"text/plain":                entities.MediaTypeOther,
		"":                          entities.MediaTypeOther,
	}
	for contentType, want := range tests {
		assert.Equal(t, want, ClassifyMediaType(contentType), contentType)
	}
}

func TestCreateMediaStoresFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	media, err := f.svc.CreateMedia(ctx, entry.ID, &Upload{
		Filename:    "photo.png",
		ContentType: "image/png",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.MediaTypeImage, media.Type)
	assert.True(t, strings.HasPrefix(media.URL, storage.URLPrefix))
	assert.True(t, strings.HasSuffix(media.URL, ".png"))

	name, ok := storage.NameFromURL(media.URL)
	require.True(t, ok)
	obj, err := f.svc.OpenFile(ctx, name)
	require.NoError(t, err)
	data, _ := io.ReadAll(obj.Body)
	obj.Body.Close()
	assert.Equal(t, "hello", string(data))

	list, err := f.svc.ListMedia(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteMedia(ctx, media.ID))
	_, err = f.svc.OpenFile(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, f.svc.DeleteMedia(ctx, media.ID))

	assert.Equal(t, []EventType{EventMediaCreated, EventMediaDeleted}, f.events.types(ChannelMedia))
}

func TestCreateMediaSniffsMissingContentType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	pdf := "%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"
	media, err := f.svc.CreateMedia(ctx, entry.ID, &Upload{Filename: "doc", Size: -1, Body: strings.NewReader(pdf)})
	require.NoError(t, err)
	assert.Equal(t, entities.MediaTypePDF, media.Type)

	name, _ := storage.NameFromURL(media.URL)
	obj, err := f.svc.OpenFile(ctx, name)
	require.NoError(t, err)
	data, _ := io.ReadAll(obj.Body)
	obj.Body.Close()
	assert.Equal(t, pdf, string(data), "sniffing must not consume the body")
}

func TestCreateMediaSniffsOctetStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	media, err := f.svc.CreateMedia(ctx, entry.ID, &Upload{
		Filename:    "photo",
		ContentType: "application/octet-stream",
		Size:        -1,
		Body:        strings.NewReader(png),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.MediaTypeImage, media.Type)

	assert.True(t, isGenericContentType(""))
	assert.True(t, isGenericContentType("Application/Octet-Stream; charset=binary"))
	assert.False(t, isGenericContentType("video/mp4"))
}

func TestCreateMediaWithoutFile(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateMedia(context.Background(), 1, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgNoFile, verr.Message)
}

func TestCreateMediaRemovesFileWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blobs := &mockStorage{}
	blobs.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, int64(3), "video/mp4").Return(int64(3), nil)
	blobs.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	svc := NewService(f.db, blobs, nil)

	_, err := svc.CreateMedia(ctx, 404, &Upload{Filename: "clip.mp4", ContentType: "video/mp4", Size: 3, Body: strings.NewReader("abc")})
	require.Error(t, err)

	blobs.AssertExpectations(t)
	putName := blobs.Calls[0].Arguments.String(1)
	deleteName := blobs.Calls[1].Arguments.String(1)
	assert.Equal(t, putName, deleteName)
	assert.True(t, strings.HasSuffix(putName, ".mp4"))
}

func TestCreateMediaStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	blobs := &mockStorage{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("disk full"))
	svc := NewService(f.db, blobs, nil)

	_, err = svc.CreateMedia(ctx, entry.ID, &Upload{Filename: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("a")})
	require.Error(t, err)

	list, err := svc.ListMedia(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteEntryCascadesAndRemovesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	_, err = f.svc.CreateComment(ctx, entities.NewComment{EntryID: entry.ID, Content: "c", AuthorName: "a"})
	require.NoError(t, err)
	media, err := f.svc.CreateMedia(ctx, entry.ID, &Upload{Filename: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("a")})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEntry(ctx, entry.ID))
	require.NoError(t, f.svc.DeleteEntry(ctx, entry.ID), "deleting twice succeeds")

	_, err = f.svc.GetEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	comments, err := f.svc.ListComments(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	mediaList, err := f.svc.ListMedia(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, mediaList)

	name, _ := storage.NameFromURL(media.URL)
	_, err = f.blobs.Open(ctx, name)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestWritesSurviveCanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
}

func TestReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.NoError(t, f.svc.Ready(ctx))

	require.NoError(t, f.db.Disconnect(ctx))
	assert.Error(t, f.svc.Ready(ctx))
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (int64, error) {
	args := m.Called(ctx, name, body, size, contentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) Open(ctx context.Context, name string) (*storage.Object, error) {
	args := m.Called(ctx, name)
	obj, _ := args.Get(0).(*storage.Object)
	return obj, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockStorage) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx)
	objects, _ := args.Get(0).([]storage.ObjectInfo)
	return objects, args.Error(1)
}

func (m *mockStorage) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestSweepOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateEntry(ctx, entities.EntryInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	media, err := f.svc.CreateMedia(ctx, entry.ID, &Upload{Filename: "kept.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("k")})
	require.NoError(t, err)

	_, err = f.blobs.Put(ctx, "orphan.png", strings.NewReader("o"), 1, "image/png")
	require.NoError(t, err)

	// everything is younger than an hour
	removed, err := f.svc.SweepOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = f.svc.SweepOrphans(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.svc.OpenFile(ctx, "orphan.png")
	assert.ErrorIs(t, err, ErrNotFound)

	name, ok := storage.NameFromURL(media.URL)
	require.True(t, ok)
	obj, err := f.svc.OpenFile(ctx, name)
	require.NoError(t, err)
	obj.Body.Close()
}

func TestSweepOrphansListFailure(t *testing.T) {
	f := newFixture(t)
	blobs := &mockStorage{}
	blobs.On("List", mock.Anything).Return(nil, errors.New("bucket unavailable"))
	svc := NewService(f.db, blobs, nil)

	_, err := svc.SweepOrphans(context.Background(), 0)
	assert.Error(t, err)
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
