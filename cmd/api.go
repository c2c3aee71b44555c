/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"time"

	"blogfront/api"
	"blogfront/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func apiCmd() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Serve a local posts API",
		Description: `Serves the posts API the blog consumes, backed by a SQLite database.

Meant for development: point the blog at http://localhost:3001/api and
posts are kept in the database file, partitioned by the ?key= parameter.
Runs the database migrations before serving.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Value:   ":3001",
				Usage:   "Address to listen on",
				EnvVars: []string{"BLOGFRONT_API_LISTEN"},
			},
			&cli.StringSliceFlag{
				Name:    "cors-origins",
				Usage:   "Origins allowed to call the API from a browser",
				EnvVars: []string{"BLOGFRONT_CORS_ORIGINS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			if err := db.Migrate(cfg.Database.Path); err != nil {
				return err
			}

			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := waitFor(ctx.Context, "database", 30*time.Second, database.Ping); err != nil {
				return err
			}

			app := api.Server(&api.ServerConfig{
				Store:        database,
				AllowOrigins: corsOrigins(cfg.Server.CorsOrigins),
			})

			// The api listens on its own address, not the blog's
			err = run(ctx.Context, app, ctx.String("listen"), nil, nil)
			log.Info("Done!")
			return err
		},
	}
}
