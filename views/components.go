package views

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	"blogfront/actions"
	"blogfront/models"
	"blogfront/router"
	"blogfront/store"
)

// Env is what a mounted component gets to work with for one render
type Env struct {
	Actions *actions.Actions
	Params  router.Params
	// Form carries submitted values back into PostsNew
	Form *Form
	// Version of the store snapshot being rendered
	Version uint64
}

// Component is a view bound to a route. Components never change the
// collection themselves; Mount dispatches actions and Props selects the
// slice of the collection the template needs.
type Component interface {
	Name() string
	Template() string
	Mount(ctx context.Context, env *Env) []*actions.Result
	Props(state store.Collection, env *Env) any
}

// App is the outer layout every page renders into
type App struct{}

func (App) Name() string     { return "App" }
func (App) Template() string { return "app" }

func (App) Mount(ctx context.Context, env *Env) []*actions.Result { return nil }

type AppProps struct {
	Version uint64
}

func (App) Props(state store.Collection, env *Env) any {
	return AppProps{Version: env.Version}
}

// PostsIndex lists every post with a link to it
type PostsIndex struct{}

func (PostsIndex) Name() string     { return "PostsIndex" }
func (PostsIndex) Template() string { return "posts_index" }

func (PostsIndex) Mount(ctx context.Context, env *Env) []*actions.Result {
	return []*actions.Result{env.Actions.FetchPosts(ctx)}
}

type PostsIndexProps struct {
	Posts []models.Post
}

func (PostsIndex) Props(state store.Collection, env *Env) any {
	return PostsIndexProps{Posts: SortedPosts(state)}
}

// PostsShow renders one post, or a loading placeholder until it arrives
type PostsShow struct{}

func (PostsShow) Name() string     { return "PostsShow" }
func (PostsShow) Template() string { return "posts_show" }

func (PostsShow) Mount(ctx context.Context, env *Env) []*actions.Result {
	return []*actions.Result{env.Actions.FetchPost(ctx, models.PostID(env.Params.Get("id")))}
}

type PostsShowProps struct {
	ID   models.PostID
	Post *models.Post
}

func (PostsShow) Props(state store.Collection, env *Env) any {
	id := models.PostID(env.Params.Get("id"))
	props := PostsShowProps{ID: id}
	if post, ok := state.Get(id); ok {
		props.Post = &post
	}
	return props
}

// PostsNew is the create form
type PostsNew struct{}

func (PostsNew) Name() string     { return "PostsNew" }
func (PostsNew) Template() string { return "posts_new" }

func (PostsNew) Mount(ctx context.Context, env *Env) []*actions.Result { return nil }

type PostsNewProps struct {
	Fields []formField
}

func (PostsNew) Props(state store.Collection, env *Env) any {
	form := env.Form
	if form == nil {
		form = NewForm(models.PostValues{})
	}
	return PostsNewProps{Fields: form.fields()}
}

// Greeting is the nested route demo
type Greeting struct{}

func (Greeting) Name() string     { return "Greeting" }
func (Greeting) Template() string { return "greeting" }

func (Greeting) Mount(ctx context.Context, env *Env) []*actions.Result { return nil }

func (Greeting) Props(state store.Collection, env *Env) any { return nil }

// SortedPosts returns the collection ordered by id: numeric ids first in
// numeric order, then the rest as strings.
func SortedPosts(state store.Collection) []models.Post {
	posts := make([]models.Post, 0, len(state))
	for _, post := range state {
		posts = append(posts, post)
	}
	slices.SortFunc(posts, func(a, b models.Post) int {
		an, aErr := strconv.ParseInt(a.ID.String(), 10, 64)
		bn, bErr := strconv.ParseInt(b.ID.String(), 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			// "01" and "1" are equal numerically
			return cmp.Or(cmp.Compare(an, bn), cmp.Compare(a.ID, b.ID))
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return posts
}

// Routes is the route table of the blog
func Routes() *router.Table[Component] {
	var index Component = PostsIndex{}
	return router.MustNew(router.Route[Component]{
		Path:      "/",
		Component: App{},
		Index:     &index,
		Routes: []router.Route[Component]{
			{Path: "posts/new", Component: PostsNew{}},
			{Path: "posts/:id", Component: PostsShow{}},
			{Path: "greet", Component: Greeting{}},
		},
	})
}
