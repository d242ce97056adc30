// Package dbtest provides conformance tests for interfaces.Database implementations
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

// DatabaseFactory returns a connected, migrated and empty database
type DatabaseFactory func(t *testing.T) interfaces.Database

// RunConformanceTests runs all conformance tests against a Database implementation
func RunConformanceTests(t *testing.T, factory DatabaseFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, db interfaces.Database)
	}{
		{"CategoriesSortedByName", testCategoriesSortedByName},
		{"CategoryFindByName", testCategoryFindByName},
		{"EntryCreateDefaults", testEntryCreateDefaults},
		{"EntryUpdate", testEntryUpdate},
		{"EntryUpdateMissing", testEntryUpdateMissing},
		{"EntryGetMissing", testEntryGetMissing},
		{"EntryListJoinsCategory", testEntryListJoinsCategory},
		{"EntryUnknownCategory", testEntryUnknownCategory},
		{"EntryDeleteCascades", testEntryDeleteCascades},
		{"EntryDeleteMissing", testEntryDeleteMissing},
		{"CommentsNewestFirst", testCommentsNewestFirst},
		{"CommentRequiresEntry", testCommentRequiresEntry},
		{"CommentDelete", testCommentDelete},
		{"MediaNewestFirst", testMediaNewestFirst},
		{"MediaRequiresEntry", testMediaRequiresEntry},
		{"MediaDelete", testMediaDelete},
		{"MediaListURLs", testMediaListURLs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.test(t, factory(t))
		})
	}
}

func mustCategory(t *testing.T, db interfaces.Database, name string) *entities.Category {
	t.Helper()
	c, err := db.Categories().Create(context.Background(), entities.NewCategory{Name: name})
	require.NoError(t, err)
	return c
}

func mustEntry(t *testing.T, db interfaces.Database, title string, categoryID *int64) *entities.Entry {
	t.Helper()
	e, err := db.Entries().Create(context.Background(), entities.EntryInput{
		Title:      title,
		Content:    "content of " + title,
		CategoryID: categoryID,
	})
	require.NoError(t, err)
	return e
}

func testCategoriesSortedByName(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	for _, name := range []string{"Voyages", "Cuisine", "Lectures"} {
		mustCategory(t, db, name)
	}

	desc := "avec description"
	created, err := db.Categories().Create(ctx, entities.NewCategory{Name: "Art", Description: &desc})
	require.NoError(t, err)
	require.NotNil(t, created.Description)
	assert.Equal(t, desc, *created.Description)
	assert.False(t, created.CreatedAt.IsZero())

	list, err := db.Categories().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)

	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Art", "Cuisine", "Lectures", "Voyages"}, names)
}

func testCategoryFindByName(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	created := mustCategory(t, db, "Travail")

	found, err := db.Categories().FindByName(ctx, "Travail")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Nil(t, found.Description)

	_, err = db.Categories().FindByName(ctx, "Inconnue")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func testEntryCreateDefaults(t *testing.T, db interfaces.Database) {
	e := mustEntry(t, db, "T", nil)

	assert.NotZero(t, e.ID)
	assert.Equal(t, "T", e.Title)
	assert.Nil(t, e.CategoryID)
	assert.False(t, e.Date.IsZero())
	assert.True(t, e.Date.Equal(e.UpdatedAt))
}

func testEntryUpdate(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	cat := mustCategory(t, db, "Personnel")
	e := mustEntry(t, db, "avant", nil)

	first, err := db.Entries().Update(ctx, e.ID, entities.EntryInput{Title: "après", Content: "nouveau", CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "après", first.Title)
	assert.Equal(t, "nouveau", first.Content)
	require.NotNil(t, first.CategoryID)
	assert.Equal(t, cat.ID, *first.CategoryID)
	assert.True(t, first.Date.Equal(e.Date), "date must not change")
	assert.True(t, first.UpdatedAt.After(e.UpdatedAt), "updatedAt must increase")

	second, err := db.Entries().Update(ctx, e.ID, entities.EntryInput{Title: "encore", Content: "nouveau"})
	require.NoError(t, err)
	assert.Nil(t, second.CategoryID)
	assert.True(t, second.Date.Equal(e.Date))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func testEntryUpdateMissing(t *testing.T, db interfaces.Database) {
	_, err := db.Entries().Update(context.Background(), 424242, entities.EntryInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func testEntryGetMissing(t *testing.T, db interfaces.Database) {
	_, err := db.Entries().Get(context.Background(), 424242)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func testEntryListJoinsCategory(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	cat := mustCategory(t, db, "Voyages")
	first := mustEntry(t, db, "premier", &cat.ID)
	second := mustEntry(t, db, "second", nil)
	third := mustEntry(t, db, "troisième", &cat.ID)

	list, err := db.Entries().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, third.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, first.ID, list[2].ID)

	require.NotNil(t, list[0].Category)
	assert.Equal(t, "Voyages", list[0].Category.Name)
	assert.Nil(t, list[1].Category)

	got, err := db.Entries().Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, cat.ID, got.Category.ID)
	assert.Equal(t, "premier", got.Title)
}

func testEntryUnknownCategory(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	missing := int64(9999)

	_, err := db.Entries().Create(ctx, entities.EntryInput{Title: "x", Content: "y", CategoryID: &missing})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	e := mustEntry(t, db, "ok", nil)
	_, err = db.Entries().Update(ctx, e.ID, entities.EntryInput{Title: "x", Content: "y", CategoryID: &missing})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testEntryDeleteCascades(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	e := mustEntry(t, db, "à supprimer", nil)
	other := mustEntry(t, db, "à garder", nil)

	_, err := db.Comments().Create(ctx, entities.NewComment{EntryID: e.ID, Content: "c", AuthorName: "a"})
	require.NoError(t, err)
	_, err = db.Media().Create(ctx, entities.NewMedia{EntryID: e.ID, Type: entities.MediaTypeImage, URL: "/uploads/a.png"})
	require.NoError(t, err)
	_, err = db.Comments().Create(ctx, entities.NewComment{EntryID: other.ID, Content: "c", AuthorName: "a"})
	require.NoError(t, err)

	require.NoError(t, db.Entries().Delete(ctx, e.ID))

	_, err = db.Entries().Get(ctx, e.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	comments, err := db.Comments().ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	media, err := db.Media().ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, media)

	kept, err := db.Comments().ListByEntry(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func testEntryDeleteMissing(t *testing.T, db interfaces.Database) {
	assert.NoError(t, db.Entries().Delete(context.Background(), 424242))
}

func testCommentsNewestFirst(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	e := mustEntry(t, db, "commentée", nil)

	var ids []int64
	for _, content := range []string{"un", "deux", "trois"} {
		c, err := db.Comments().Create(ctx, entities.NewComment{EntryID: e.ID, Content: content, AuthorName: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, e.ID, c.EntryID)
		assert.Equal(t, "Alice", c.AuthorName)
		ids = append(ids, c.ID)
	}

	list, err := db.Comments().ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "trois", list[0].Content)

	empty, err := db.Comments().ListByEntry(ctx, 424242)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testCommentRequiresEntry(t *testing.T, db interfaces.Database) {
	_, err := db.Comments().Create(context.Background(), entities.NewComment{EntryID: 424242, Content: "c", AuthorName: "a"})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testCommentDelete(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	e := mustEntry(t, db, "e", nil)
	c, err := db.Comments().Create(ctx, entities.NewComment{EntryID: e.ID, Content: "c", AuthorName: "a"})
	require.NoError(t, err)

	deleted, err := db.Comments().Delete(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, c.ID, deleted.ID)

	again, err := db.Comments().Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func testMediaNewestFirst(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	e := mustEntry(t, db, "illustrée", nil)

	first, err := db.Media().Create(ctx, entities.NewMedia{EntryID: e.ID, Type: entities.MediaTypeImage, URL: "/uploads/1.png"})
	require.NoError(t, err)
	second, err := db.Media().Create(ctx, entities.NewMedia{EntryID: e.ID, Type: entities.MediaTypePDF, URL: "/uploads/2.pdf"})
	require.NoError(t, err)

	list, err := db.Media().ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, entities.MediaTypePDF, list[0].Type)
	assert.Equal(t, "/uploads/2.pdf", list[0].URL)
	assert.Equal(t, first.ID, list[1].ID)
}

func testMediaRequiresEntry(t *testing.T, db interfaces.Database) {
	_, err := db.Media().Create(context.Background(), entities.NewMedia{EntryID: 424242, Type: entities.MediaTypeOther, URL: "/uploads/x"})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testMediaDelete(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	e := mustEntry(t, db, "e", nil)
	m, err := db.Media().Create(ctx, entities.NewMedia{EntryID: e.ID, Type: entities.MediaTypeVideo, URL: "/uploads/v.mp4"})
	require.NoError(t, err)

	deleted, err := db.Media().Delete(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "/uploads/v.mp4", deleted.URL)

	again, err := db.Media().Delete(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func testMediaListURLs(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	e := mustEntry(t, db, "e", nil)

	urls, err := db.Media().ListURLs(ctx)
	require.NoError(t, err)
	assert.Empty(t, urls)

	_, err = db.Media().Create(ctx, entities.NewMedia{EntryID: e.ID, Type: entities.MediaTypePDF, URL: "/uploads/b.pdf"})
	require.NoError(t, err)
	_, err = db.Media().Create(ctx, entities.NewMedia{EntryID: e.ID, Type: entities.MediaTypeImage, URL: "/uploads/a.png"})
	require.NoError(t, err)

	urls, err = db.Media().ListURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.png", "/uploads/b.pdf"}, urls)

	require.NoError(t, db.Entries().Delete(ctx, e.ID))

	urls, err = db.Media().ListURLs(ctx)
	require.NoError(t, err)
	assert.Empty(t, urls)
}
