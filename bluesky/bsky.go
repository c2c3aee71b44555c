package bluesky

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"blogfront/models"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/gommon/log"
)

const DefaultPDSHost = "https://bsky.social"

// Posts on Bluesky are limited to 300 graphemes, runes are close enough here
const maxPostLength = 300

type Credentials struct {
	Identifier string
	Password   string
}

type Client struct {
	xrpc *xrpc.Client
}

func ClientFromCredentials(ctx context.Context, host string, creds *Credentials) (*Client, error) {
	auth, err := atproto.ServerCreateSession(ctx, &xrpc.Client{Host: host}, &atproto.ServerCreateSession_Input{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	xrpcClient := &xrpc.Client{
		Host: host,
		Auth: &xrpc.AuthInfo{
			AccessJwt:  auth.AccessJwt,
			RefreshJwt: auth.RefreshJwt,
			Handle:     auth.Handle,
			Did:        auth.Did,
		},
		Client: http.DefaultClient,
	}

	return &Client{xrpc: xrpcClient}, nil
}

// Announcement builds a feed post linking to a blog post. The link is
// attached as a facet so it stays clickable when the text is shortened.
func Announcement(post models.Post, link string, now time.Time) *bsky.FeedPost {
	title := strings.TrimSpace(post.Title)
	if title == "" {
		title = "New post"
	}

	// Leave room for the link and the separator
	budget := maxPostLength - len([]rune(link)) - 2
	if budget < 1 {
		budget = 1
	}
	if runes := []rune(title); len(runes) > budget {
		title = string(runes[:budget-1]) + "…"
	}

	text := title + "\n\n" + link
	start := len(title) + 2

	return &bsky.FeedPost{
		Text:      text,
		CreatedAt: FormatTime(now.UTC()),
		Facets: []*bsky.RichtextFacet{
			{
				Index: &bsky.RichtextFacet_ByteSlice{
					ByteStart: int64(start),
					ByteEnd:   int64(start + len(link)),
				},
				Features: []*bsky.RichtextFacet_Features_Elem{
					{RichtextFacet_Link: &bsky.RichtextFacet_Link{Uri: link}},
				},
			},
		},
	}
}

// CreatePost publishes record in the current user's repository and
// returns the at:// uri of the new record.
func (c *Client) CreatePost(ctx context.Context, record *bsky.FeedPost) (string, error) {
	resp, err := atproto.RepoCreateRecord(ctx, c.xrpc, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.xrpc.Auth.Did,
		Record: &lexutil.LexiconTypeDecoder{
			Val: record,
		},
	})
	if err != nil {
		// Display the entire http response error so we can see what went wrong
		log.Errorf("failed to create record: %s", err)
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	return resp.Uri, nil
}

// FormatTime formats a time.Time into the format expected by AT Protocol
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z")
}
