package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"blogfront/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no post has the requested id under the key
var ErrNotFound = errors.New("post not found")

const queryTimeout = 30 * time.Second

// DB stores posts for the local posts API
type DB struct {
	db *sql.DB
}

// Open connects to the SQLite file at database. The dev API is its only
// user, through a single connection.
func Open(database string) (*DB, error) {
	dsn := database + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &DB{db: conn}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func parseID(id models.PostID) (int64, bool) {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	return n, err == nil
}

func scanPost(row interface{ Scan(...any) error }) (models.Post, error) {
	var id int64
	var post models.Post
	if err := row.Scan(&id, &post.Title, &post.Categories, &post.Content); err != nil {
		return models.Post{}, err
	}
	post.ID = models.PostID(strconv.FormatInt(id, 10))
	return post, nil
}

func selectPosts(key string) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "title", "categories", "content").From("posts")
	sb.Where(sb.Equal("api_key", key))
	return sb
}

// ListPosts returns every post stored under key, oldest first
func (db *DB) ListPosts(ctx context.Context, key string) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := selectPosts(key)
	sb.OrderBy("id").Asc()
	query, args := sb.Build()

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// GetPost returns a single post
func (db *DB) GetPost(ctx context.Context, key string, id models.PostID) (models.Post, error) {
	n, ok := parseID(id)
	if !ok {
		return models.Post{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := selectPosts(key)
	sb.Where(sb.Equal("id", n))
	query, args := sb.Build()

	post, err := scanPost(db.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("query error: %w", err)
	}
	return post, nil
}

// CreatePost inserts a post and returns it with its new id
func (db *DB) CreatePost(ctx context.Context, key string, values models.PostValues) (models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("posts").
		Cols("api_key", "title", "categories", "content", "created_at").
		Values(key, values.Title, values.Categories, values.Content, time.Now().Unix())
	query, args := ib.Build()

	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Post{}, fmt.Errorf("insert error: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Post{}, fmt.Errorf("error getting inserted id: %w", err)
	}

	log.WithFields(log.Fields{
		"id":    id,
		"title": values.Title,
	}).Info("Created post")

	return models.Post{
		ID:         models.PostID(strconv.FormatInt(id, 10)),
		Title:      values.Title,
		Categories: values.Categories,
		Content:    values.Content,
	}, nil
}

// DeletePost removes a post and returns what was deleted
func (db *DB) DeletePost(ctx context.Context, key string, id models.PostID) (models.Post, error) {
	post, err := db.GetPost(ctx, key, id)
	if err != nil {
		return models.Post{}, err
	}
	n, _ := parseID(id)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("posts").Where(del.Equal("api_key", key), del.Equal("id", n))
	query, args := del.Build()

	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.Post{}, fmt.Errorf("delete error: %w", err)
	}

	log.WithFields(log.Fields{
		"id": id,
	}).Info("Deleted post")

	return post, nil
}
