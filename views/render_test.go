package views_test

import (
	"bytes"
	"testing"

	"blogfront/models"
	"blogfront/router"
	"blogfront/store"
	"blogfront/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, path string, state store.Collection, env *views.Env) string {
	t.Helper()

	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	match, ok := views.Routes().Resolve(path)
	require.True(t, ok, "route %s should resolve", path)

	if env == nil {
		env = &views.Env{}
	}
	env.Params = match.Params

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, match.Components, state, env))
	return buf.String()
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		path  string
		names []string
	}{
		{path: "/", names: []string{"App", "PostsIndex"}},
		{path: "/posts/new", names: []string{"App", "PostsNew"}},
		{path: "/posts/5", names: []string{"App", "PostsShow"}},
		{path: "/greet", names: []string{"App", "Greeting"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			match, ok := views.Routes().Resolve(tt.path)
			require.True(t, ok)

			var names []string
			for _, c := range match.Components {
				names = append(names, c.Name())
			}
			assert.Equal(t, tt.names, names)
		})
	}

	_, ok := views.Routes().Resolve("/posts")
	assert.False(t, ok)
}

func TestRenderIndex(t *testing.T) {
	state := store.Collection{
		"10": {ID: "10", Title: "Ten"},
		"2":  {ID: "2", Title: "Two <b>"},
	}

	html := render(t, "/", state, &views.Env{Version: 7})

	assert.Contains(t, html, `<a href="/posts/2">Two &lt;b&gt;</a>`)
	assert.Contains(t, html, `<a href="/posts/10">Ten</a>`)
	assert.Less(t, bytes.Index([]byte(html), []byte("/posts/2")), bytes.Index([]byte(html), []byte("/posts/10")))
	assert.Contains(t, html, `href="/posts/new"`)
	assert.Contains(t, html, `data-version="7"`)
}

func TestRenderShow(t *testing.T) {
	state := store.Collection{
		"1": {ID: "1", Title: "A", Categories: "go", Content: "body"},
	}

	html := render(t, "/posts/1", state, nil)
	assert.Contains(t, html, "<h3>A</h3>")
	assert.Contains(t, html, "Categories: go")
	assert.Contains(t, html, `action="/posts/1/delete"`)
	assert.NotContains(t, html, "Loading...")
}

func TestRenderShowLoading(t *testing.T) {
	html := render(t, "/posts/2", store.Collection{"1": {ID: "1"}}, nil)
	assert.Contains(t, html, "Loading...")
}

func TestRenderNewForm(t *testing.T) {
	html := render(t, "/posts/new", store.Collection{}, nil)
	assert.Contains(t, html, `name="title"`)
	assert.Contains(t, html, `name="categories"`)
	assert.Contains(t, html, `name="content"`)
	assert.NotContains(t, html, "Enter a title")

	form := views.NewForm(models.PostValues{Categories: "x", Content: "y"})
	form.Submit()
	html = render(t, "/posts/new", store.Collection{}, &views.Env{Form: form})
	assert.Contains(t, html, "Enter a title")
	assert.NotContains(t, html, "Enter some content")
	assert.Contains(t, html, `value="x"`)
}

func TestRenderGreeting(t *testing.T) {
	html := render(t, "/greet", nil, nil)
	assert.Contains(t, html, "Hey there!")
}

func TestRenderNotFound(t *testing.T) {
	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderer.RenderNotFound(&buf, &views.Env{Params: router.Params{}}))
	assert.Contains(t, buf.String(), "Page not found")
}

func TestSortedPosts(t *testing.T) {
	posts := views.SortedPosts(store.Collection{
		"b":  {ID: "b"},
		"10": {ID: "10"},
		"9":  {ID: "9"},
		"a":  {ID: "a"},
	})

	var ids []models.PostID
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []models.PostID{"9", "10", "a", "b"}, ids)
}

func TestSortedPostsNumericTies(t *testing.T) {
	state := store.Collection{
		"1":   {ID: "1"},
		"01":  {ID: "01"},
		"001": {ID: "001"},
		"2":   {ID: "2"},
	}

	for i := 0; i < 20; i++ {
		var ids []models.PostID
		for _, p := range views.SortedPosts(state) {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []models.PostID{"001", "01", "1", "2"}, ids)
	}
}
