/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"blogfront/bluesky"
	"blogfront/models"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

// shareCmd announces a post on Bluesky
func shareCmd() *cli.Command {
	return &cli.Command{
		Name:      "share",
		Usage:     "Share a post on Bluesky",
		ArgsUsage: "<id>",
		Description: `Shares a post on Bluesky.:

A Bluesky user account is required to share posts on Bluesky.
Posts the title of the post with a link to it on the blog.`,
		Flags: append(apiFlags(),
			&cli.StringFlag{
				Name:    "post-base-url",
				Aliases: []string{"n"},
				Usage:   "Public URL of the blog, used to link the post",
				EnvVars: []string{"BLOGFRONT_POST_BASE_URL"},
			},
		),
		Action: func(ctx *cli.Context) error {
			id, err := postIDArg(ctx)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			posts, err := client.ListPosts(ctx.Context)
			if err != nil {
				return fmt.Errorf("could not list posts: %w", err)
			}

			post, ok := lo.Find(posts, func(p models.Post) bool {
				return p.ID == id
			})
			if !ok {
				return fmt.Errorf("no post with id %s", id)
			}

			link, err := postLink(cfg.Bluesky.PostBaseURL, post.ID)
			if err != nil {
				return err
			}

			handle, err := prompt.New().Ask("Handle:").Input("myname.bsky.social")
			if err != nil {
				return err
			}

			password, err := prompt.New().Ask("Password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}

			bsky, err := bluesky.ClientFromCredentials(ctx.Context, cfg.Bluesky.Host, &bluesky.Credentials{
				Identifier: handle,
				Password:   password,
			})
			if err != nil {
				return fmt.Errorf("could not create client with provided credentials: %w", err)
			}

			uri, err := bsky.CreatePost(ctx.Context, bluesky.Announcement(post, link, time.Now()))
			if err != nil {
				return fmt.Errorf("could not share post: %w", err)
			}

			fmt.Println("Shared post...", post.Title, uri)
			return nil
		},
	}
}

func postLink(base string, id models.PostID) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid post base url %q", base)
	}
	return u.JoinPath("posts", id.String()).String(), nil
}
