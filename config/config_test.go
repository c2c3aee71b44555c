package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"blogfront/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  func(c *config.Config)
	}{
		{
			name:  "empty file keeps defaults",
			input: "",
			want:  func(c *config.Config) {},
		},
		{
			name: "api section",
			input: `
[api]
base_url = "https://reduxblog.herokuapp.com/api"
key = "secret"
timeout = "3s"
`,
			want: func(c *config.Config) {
				c.API.BaseURL = "https://reduxblog.herokuapp.com/api"
				c.API.Key = "secret"
				c.API.Timeout = 3 * time.Second
			},
		},
		{
			name: "server and database",
			input: `
[server]
listen = ":8080"
render_wait = "500ms"
cors_origins = ["https://example.com", "https://blog.example.com"]

[database]
path = "/data/posts.db"
`,
			want: func(c *config.Config) {
				c.Server.Listen = ":8080"
				c.Server.RenderWait = 500 * time.Millisecond
				c.Server.CorsOrigins = []string{"https://example.com", "https://blog.example.com"}
				c.Database.Path = "/data/posts.db"
			},
		},
		{
			name: "unknown keys are ignored",
			input: `
[bluesky]
post_base_url = "https://blog.example.com"
colour = "blue"
`,
			want: func(c *config.Config) {
				c.Bluesky.PostBaseURL = "https://blog.example.com"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.Parse(tt.input)
			require.NoError(t, err)

			want := config.Default()
			tt.want(want)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed toml", "[api"},
		{"empty base url", "[api]\nbase_url = \"\""},
		{"zero timeout", "[api]\ntimeout = \"0s\""},
		{"bad duration", "[server]\nrender_wait = \"soon\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	got, err := config.LoadOptional(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), got)

	_, err = config.LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "blogfront.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nkey = \"abc\"\n"), 0o644))

	got, err = config.LoadOptional(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.API.Key)
	assert.Equal(t, config.Default().API.BaseURL, got.API.BaseURL)
}
