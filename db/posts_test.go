package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"blogfront/db"
	"blogfront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "posts.db")
	require.NoError(t, db.Migrate(path))

	database, err := db.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

func TestPosts(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	posts, err := database.ListPosts(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, posts)

	first, err := database.CreatePost(ctx, "k1", models.PostValues{Title: "A", Categories: "x", Content: "y"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "A", first.Title)

	second, err := database.CreatePost(ctx, "k1", models.PostValues{Title: "B"})
	require.NoError(t, err)

	_, err = database.CreatePost(ctx, "k2", models.PostValues{Title: "other key"})
	require.NoError(t, err)

	posts, err = database.ListPosts(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []models.Post{first, second}, posts)

	got, err := database.GetPost(ctx, "k1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	deleted, err := database.DeletePost(ctx, "k1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, deleted)

	_, err = database.GetPost(ctx, "k1", first.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	posts, err = database.ListPosts(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []models.Post{second}, posts)
}

func TestPostsScopedByKey(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	post, err := database.CreatePost(ctx, "mine", models.PostValues{Title: "A"})
	require.NoError(t, err)

	_, err = database.GetPost(ctx, "theirs", post.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = database.DeletePost(ctx, "theirs", post.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetPostInvalidID(t *testing.T) {
	database := openTestDB(t)

	_, err := database.GetPost(context.Background(), "", "abc")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMigrateTwiceAndRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.db")
	require.NoError(t, db.Migrate(path))
	require.NoError(t, db.Migrate(path))
	require.NoError(t, db.Rollback(path))
	require.NoError(t, db.Migrate(path))
}

func TestOpenFailsForMissingDirectory(t *testing.T) {
	_, err := db.Open(filepath.Join(t.TempDir(), "missing", "posts.db"))
	assert.Error(t, err)
}
