/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"blogfront/actions"
	"blogfront/models"
	"blogfront/store"
	"blogfront/views"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func postsCmd() *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Manage posts on the posts API",
		Description: `Lists, shows, creates and deletes posts on the configured posts API.

Returns each post as a JSON object on a single line. Use a tool like jq to process
the output.

Prints all other log messages to stderr.`,
		Flags: apiFlags(),
		Before: func(ctx *cli.Context) error {
			// Keep stdout for posts
			log.SetOutput(os.Stderr)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all posts",
				Action: func(ctx *cli.Context) error {
					client, err := clientFromContext(ctx)
					if err != nil {
						return err
					}

					posts, err := client.ListPosts(ctx.Context)
					if err != nil {
						return fmt.Errorf("could not list posts: %w", err)
					}

					collection := store.Reduce(nil, store.PostsFetched{Posts: posts})
					for _, post := range views.SortedPosts(collection) {
						printStdout(&post)
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Show a post",
				ArgsUsage: "<id>",
				Action: func(ctx *cli.Context) error {
					id, err := postIDArg(ctx)
					if err != nil {
						return err
					}

					client, err := clientFromContext(ctx)
					if err != nil {
						return err
					}

					post, err := client.GetPost(ctx.Context, id)
					if err != nil {
						return fmt.Errorf("could not get post %s: %w", id, err)
					}
					printStdout(&post)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a post",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: models.FieldTitle, Usage: "Post title"},
					&cli.StringFlag{Name: models.FieldCategories, Usage: "Post categories"},
					&cli.StringFlag{Name: models.FieldContent, Usage: "Post content"},
				},
				Action: func(ctx *cli.Context) error {
					values := models.PostValues{
						Title:      ctx.String(models.FieldTitle),
						Categories: ctx.String(models.FieldCategories),
						Content:    ctx.String(models.FieldContent),
					}

					if errs := views.Validate(values); len(errs) > 0 {
						messages := make([]string, 0, len(errs))
						for field, msg := range errs {
							messages = append(messages, fmt.Sprintf("%s: %s", field, msg))
						}
						sort.Strings(messages)
						return errors.New(strings.Join(messages, "; "))
					}

					client, err := clientFromContext(ctx)
					if err != nil {
						return err
					}

					post, err := client.CreatePost(ctx.Context, values)
					if err != nil {
						return fmt.Errorf("could not create post: %w", err)
					}
					printStdout(&post)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a post",
				ArgsUsage: "<id>",
				Action: func(ctx *cli.Context) error {
					id, err := postIDArg(ctx)
					if err != nil {
						return err
					}

					client, err := clientFromContext(ctx)
					if err != nil {
						return err
					}

					if err := client.DeletePost(ctx.Context, id); err != nil {
						return fmt.Errorf("could not delete post %s: %w", id, err)
					}
					log.WithFields(log.Fields{
						"id": id,
					}).Info("Deleted post")
					return nil
				},
			},
		},
	}
}

func clientFromContext(ctx *cli.Context) (*actions.Client, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return newClient(cfg)
}

func postIDArg(ctx *cli.Context) (models.PostID, error) {
	id := strings.TrimSpace(ctx.Args().First())
	if id == "" {
		return "", errors.New("please specify a post id")
	}
	return models.PostID(id), nil
}

func printStdout(post *models.Post) {
	// Print as single JSON string on a single line

	// Convert Post to JSON string
	postJson, err := json.Marshal(post)
	if err == nil {
		fmt.Println(string(postJson))
	}
}
