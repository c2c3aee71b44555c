/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"blogfront/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "blogfront",
		Usage: "A server-rendered blog front for a remote posts API",
		Description: `Renders a small blog from posts kept by a remote JSON API.

		Blogfront keeps the posts it has fetched in memory, renders pages on
		the server and reloads open pages when the posts change. The api
		command runs a local posts API backed by SQLite for development.

		Settings are read from a TOML file (blogfront.toml by default) and
		can generally be overridden with flags or environment variables, e.g.:

		--api-url => BLOGFRONT_API_URL=http://localhost:3001/api
		--listen => BLOGFRONT_LISTEN=:3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to the configuration file",
				EnvVars: []string{"BLOGFRONT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"BLOGFRONT_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			apiCmd(),
			migrateCmd(),
			rollbackCmd(),
			postsCmd(),
			shareCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func apiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Base URL of the posts API",
			EnvVars: []string{"BLOGFRONT_API_URL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Key partitioning posts on the API",
			EnvVars: []string{"BLOGFRONT_API_KEY"},
		},
		&cli.DurationFlag{
			Name:    "api-timeout",
			Usage:   "Timeout for a single API request",
			EnvVars: []string{"BLOGFRONT_API_TIMEOUT"},
		},
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Usage:   "SQLite database file location",
		EnvVars: []string{"BLOGFRONT_DATABASE"},
	}
}

// loadConfig reads the config file and applies flags set on the command
// line or in the environment on top of it.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String("config")

	var (
		cfg *config.Config
		err error
	)
	if ctx.IsSet("config") {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.LoadOptional(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	setString(ctx, "api-url", &cfg.API.BaseURL)
	setString(ctx, "api-key", &cfg.API.Key)
	setDuration(ctx, "api-timeout", &cfg.API.Timeout)
	setString(ctx, "listen", &cfg.Server.Listen)
	setDuration(ctx, "render-wait", &cfg.Server.RenderWait)
	setString(ctx, "database", &cfg.Database.Path)
	setString(ctx, "post-base-url", &cfg.Bluesky.PostBaseURL)

	if ctx.IsSet("cors-origins") {
		cfg.Server.CorsOrigins = ctx.StringSlice("cors-origins")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"api":      cfg.API.BaseURL,
		"database": cfg.Database.Path,
	}).Debug("Loaded config")

	return cfg, nil
}

func setString(ctx *cli.Context, name string, dst *string) {
	if ctx.IsSet(name) {
		*dst = ctx.String(name)
	}
}

func setDuration(ctx *cli.Context, name string, dst *time.Duration) {
	if ctx.IsSet(name) {
		*dst = ctx.Duration(name)
	}
}

func corsOrigins(origins []string) string {
	return strings.Join(origins, ",")
}
