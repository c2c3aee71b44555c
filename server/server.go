package server

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"blogfront/actions"
	"blogfront/models"
	"blogfront/router"
	"blogfront/store"
	"blogfront/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

//go:embed dist/*
var dist embed.FS

const DefaultRenderWait = 2 * time.Second

type ServerConfig struct {
	// The store views read from
	Store *store.Store

	// Actions views dispatch on mount and on user input
	Actions *actions.Actions

	Renderer *views.Renderer

	Routes *router.Table[views.Component]

	// How long a page waits for the actions its views started before it
	// renders whatever the store holds
	RenderWait time.Duration

	// Origins allowed to read the event stream cross-origin
	AllowOrigins string

	// Interval between keep-alive pings on the event stream
	PingInterval time.Duration
}

type server struct {
	store        *store.Store
	actions      *actions.Actions
	renderer     *views.Renderer
	routes       *router.Table[views.Component]
	renderWait   time.Duration
	pingInterval time.Duration
}

// Returns a fiber.App instance serving the blog
func Server(config *ServerConfig) *fiber.App {
	s := &server{
		store:        config.Store,
		actions:      config.Actions,
		renderer:     config.Renderer,
		routes:       config.Routes,
		renderWait:   config.RenderWait,
		pingInterval: config.PingInterval,
	}
	if s.renderWait <= 0 {
		s.renderWait = DefaultRenderWait
	}
	if s.pingInterval <= 0 {
		s.pingInterval = 15 * time.Second
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Route params outlive the handler in background actions
		Immutable: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			// Compression buffers the event stream
			return c.Path() == "/events"
		},
	}))

	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     config.AllowOrigins,
			AllowHeaders:     "Cache-Control",
			AllowCredentials: true,
		}))
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Browse:     false,
		Root:       http.FS(dist),
		PathPrefix: "/dist",
		MaxAge:     3600,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Streams unsubscribe themselves when the client goes away
	app.Get("/events", s.events)

	app.Post("/posts/new", s.createPost)
	app.Post("/posts/:id/delete", s.deletePost)

	app.Get("/*", s.page)

	return app
}

// page resolves the route, mounts the matched views and renders them
func (s *server) page(c *fiber.Ctx) error {
	env := &views.Env{Actions: s.actions}

	match, ok := s.routes.Resolve(c.Path())
	if !ok {
		return s.notFound(c, env)
	}
	env.Params = match.Params

	var pending []*actions.Result
	for _, component := range match.Components {
		pending = append(pending, component.Mount(c.UserContext(), env)...)
	}
	s.await(c.UserContext(), pending)

	return s.render(c, fiber.StatusOK, match.Components, env)
}

// await waits for the mounted actions, up to the render wait. Failed
// actions are logged by the action layer and render like pending ones.
func (s *server) await(ctx context.Context, pending []*actions.Result) {
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.renderWait)
	defer cancel()

	for _, result := range pending {
		if err := result.Wait(ctx); err != nil && ctx.Err() != nil {
			log.WithFields(log.Fields{
				"wait": s.renderWait,
			}).Debug("Rendering before actions settled")
			return
		}
	}
}

func (s *server) render(c *fiber.Ctx, status int, components []views.Component, env *views.Env) error {
	state, version := s.store.State()
	env.Version = version

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, components, state, env); err != nil {
		log.WithFields(log.Fields{
			"path":  c.Path(),
			"error": err,
		}).Error("Error rendering page")
		return c.Status(fiber.StatusInternalServerError).SendString("Error rendering page")
	}

	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

func (s *server) notFound(c *fiber.Ctx, env *views.Env) error {
	_, env.Version = s.store.State()

	var buf bytes.Buffer
	if err := s.renderer.RenderNotFound(&buf, env); err != nil {
		log.WithFields(log.Fields{
			"path":  c.Path(),
			"error": err,
		}).Error("Error rendering not found page")
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}

	c.Type("html", "utf-8")
	return c.Status(fiber.StatusNotFound).Send(buf.Bytes())
}

// renderPath renders the views routed at path, without mounting them
func (s *server) renderPath(c *fiber.Ctx, status int, path string, env *views.Env) error {
	match, ok := s.routes.Resolve(path)
	if !ok {
		return s.notFound(c, env)
	}
	env.Params = match.Params
	return s.render(c, status, match.Components, env)
}

func (s *server) createPost(c *fiber.Ctx) error {
	values := models.PostValues{
		Title:      c.FormValue(models.FieldTitle),
		Categories: c.FormValue(models.FieldCategories),
		Content:    c.FormValue(models.FieldContent),
	}

	form := views.NewForm(values)
	env := &views.Env{Actions: s.actions, Form: form}

	if !form.Submit() {
		log.WithFields(log.Fields{
			"errors": form.Errors(),
		}).Info("Rejected invalid post")
		return s.renderPath(c, fiber.StatusUnprocessableEntity, "/posts/new", env)
	}

	if err := s.actions.CreatePost(c.UserContext(), values).Wait(c.UserContext()); err != nil {
		return s.renderPath(c, fiber.StatusBadGateway, "/posts/new", env)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *server) deletePost(c *fiber.Ctx) error {
	id := models.PostID(c.Params("id"))

	if err := s.actions.DeletePost(c.UserContext(), id).Wait(c.UserContext()); err != nil {
		return s.renderPath(c, fiber.StatusBadGateway, "/posts/"+id.String(), &views.Env{Actions: s.actions})
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// streamInit is the first event of a stream
type streamInit struct {
	Key     string `json:"key"`
	Version uint64 `json:"version"`
}

// events streams store changes to open pages so they re-render
func (s *server) events(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	// Unique client key
	key := uuid.New().String()
	changes := make(chan store.Change, 10)
	s.store.Subscribe(key, changes)

	// Read after subscribing: later changes arrive on the channel, earlier
	// ones show up as a version newer than the one the page rendered
	hello, err := json.Marshal(streamInit{Key: key, Version: s.store.ChangedAt()})
	if err != nil {
		s.store.Unsubscribe(key)
		return err
	}

	ping := s.pingInterval

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		alive := time.NewTicker(ping)
		defer alive.Stop()
		defer s.store.Unsubscribe(key)

		fmt.Fprintf(w, "event: init\ndata: %s\n\n", hello)
		if err := w.Flush(); err != nil {
			log.Errorf("Failed to send init event: %v", err)
			return
		}

		for {
			select {
			case <-alive.C:
				if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
					log.Warnf("Failed to send ping to client %s: %v", key, err)
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush ping for client %s: %v", key, err)
					return
				}

			case change, ok := <-changes:
				if !ok {
					log.Infof("Change channel closed for client %s", key)
					return
				}
				if !change.Changed {
					continue
				}
				data, err := json.Marshal(change)
				if err != nil {
					log.Errorf("Error marshalling change for client %s: %v", key, err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
					log.Warnf("Failed to send change to client %s: %v", key, err)
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush change for client %s: %v", key, err)
					return
				}
			}
		}
	}))

	return nil
}

// CloseStreams ends every open event stream
func CloseStreams(s *store.Store) {
	for _, key := range s.Subscribers() {
		s.Unsubscribe(key)
	}
}
