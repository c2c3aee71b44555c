// Package api serves a local implementation of the posts API the blog front
// consumes: GET/POST /api/posts and GET/DELETE /api/posts/:id, partitioned by
// the ?key= query parameter.
package api

import (
	"context"
	"errors"
	"time"

	"blogfront/db"
	"blogfront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence the API needs
type Store interface {
	ListPosts(ctx context.Context, key string) ([]models.Post, error)
	GetPost(ctx context.Context, key string, id models.PostID) (models.Post, error)
	CreatePost(ctx context.Context, key string, values models.PostValues) (models.Post, error)
	DeletePost(ctx context.Context, key string, id models.PostID) (models.Post, error)
}

type ServerConfig struct {
	Store Store

	// Origins allowed to call the API from a browser
	AllowOrigins string
}

// Returns a fiber.App serving the posts API
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(logRequests)

	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.AllowOrigins,
			AllowMethods: "GET,POST,DELETE",
		}))
	}

	h := &handlers{store: config.Store}

	api := app.Group("/api")
	api.Get("/posts", h.list)
	api.Post("/posts", h.create)
	api.Get("/posts/:id", h.get)
	api.Delete("/posts/:id", h.delete)

	return app
}

func logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	log.WithFields(log.Fields{
		"method":  c.Method(),
		"route":   c.Route().Path,
		"status":  c.Response().StatusCode(),
		"latency": time.Since(start),
	}).Info("API request")
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, db.ErrNotFound):
		code = fiber.StatusNotFound
		message = err.Error()
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	default:
		log.WithFields(log.Fields{
			"path":  c.Path(),
			"error": err,
		}).Error("API error")
	}

	return c.Status(code).JSON(models.ErrorResponse{Error: message})
}

type handlers struct {
	store Store
}

func (h *handlers) list(c *fiber.Ctx) error {
	posts, err := h.store.ListPosts(c.UserContext(), c.Query("key"))
	if err != nil {
		return err
	}
	return c.JSON(posts)
}

func (h *handlers) get(c *fiber.Ctx) error {
	post, err := h.store.GetPost(c.UserContext(), c.Query("key"), models.PostID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(post)
}

func (h *handlers) create(c *fiber.Ctx) error {
	var values models.PostValues
	if err := c.BodyParser(&values); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post body")
	}

	post, err := h.store.CreatePost(c.UserContext(), c.Query("key"), values)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *handlers) delete(c *fiber.Ctx) error {
	post, err := h.store.DeletePost(c.UserContext(), c.Query("key"), models.PostID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(post)
}
