/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogfront/actions"
	"blogfront/config"
	"blogfront/server"
	"blogfront/store"
	"blogfront/views"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the blog",
		Description: `Starts the blog HTTP server.

Waits for the posts API to answer, then serves the blog pages on the
configured address. Pages fetch the posts they show from the API when they
are requested and reload in the browser when the posts change.`,
		Flags: append(apiFlags(),
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on",
				EnvVars: []string{"BLOGFRONT_LISTEN"},
			},
			&cli.DurationFlag{
				Name:    "render-wait",
				Usage:   "How long a page waits for the posts API before rendering",
				EnvVars: []string{"BLOGFRONT_RENDER_WAIT"},
			},
			&cli.StringSliceFlag{
				Name:    "cors-origins",
				Usage:   "Origins allowed to read the event stream",
				EnvVars: []string{"BLOGFRONT_CORS_ORIGINS"},
			},
			&cli.DurationFlag{
				Name:    "wait",
				Value:   2 * time.Minute,
				Usage:   "How long to wait for the posts API on startup, 0 to skip",
				EnvVars: []string{"BLOGFRONT_WAIT"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			if wait := ctx.Duration("wait"); wait > 0 {
				if err := waitFor(ctx.Context, "posts api", wait, client.Ping); err != nil {
					return err
				}
			}

			renderer, err := views.NewRenderer()
			if err != nil {
				return err
			}

			s := store.New()
			a := actions.New(client, s)

			app := server.Server(&server.ServerConfig{
				Store:        s,
				Actions:      a,
				Renderer:     renderer,
				Routes:       views.Routes(),
				RenderWait:   cfg.Server.RenderWait,
				AllowOrigins: corsOrigins(cfg.Server.CorsOrigins),
			})

			err = run(ctx.Context, app, cfg.Server.Listen, func(ctx context.Context) error {
				return s.Run(ctx)
			}, func() {
				server.CloseStreams(s)
			})

			// Let actions started by the last requests settle
			a.Wait()
			log.Info("Done!")
			return err
		},
	}
}

func newClient(cfg *config.Config) (*actions.Client, error) {
	return actions.NewClient(actions.ClientConfig{
		BaseURL:   cfg.API.BaseURL,
		Key:       cfg.API.Key,
		Timeout:   cfg.API.Timeout,
		UserAgent: "blogfront",
	})
}

// run serves app on addr next to the background loops until an interrupt.
// beforeShutdown runs once the interrupt arrives, before the server stops.
func run(ctx context.Context, app *fiber.App, addr string, loop func(ctx context.Context) error, beforeShutdown func()) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if loop != nil {
		g.Go(func() error {
			return loop(ctx)
		})
	}

	g.Go(func() error {
		log.WithFields(log.Fields{
			"address": addr,
		}).Info("Starting server")
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Gracefully shutting down...")
		if beforeShutdown != nil {
			beforeShutdown()
		}
		return app.ShutdownWithTimeout(60 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// waitFor retries ping with exponential backoff until it succeeds, a
// permanent error is returned or maxWait has passed.
func waitFor(ctx context.Context, what string, maxWait time.Duration, ping func(ctx context.Context) error) error {
	b := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxWait),
		backoff.WithMaxInterval(10*time.Second),
	), ctx)

	op := func() error {
		err := ping(ctx)
		var statusErr *actions.StatusError
		if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"service": what,
			"error":   err,
			"retry":   next,
		}).Warn("Waiting for service")
	})
}
