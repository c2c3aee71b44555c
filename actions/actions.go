package actions

import (
	"context"
	"sync"

	"blogfront/models"
	"blogfront/store"

	log "github.com/sirupsen/logrus"
)

// Dispatcher applies messages to the post collection
type Dispatcher interface {
	Dispatch(ctx context.Context, msg store.Message) error
}

// API is the subset of the posts API the actions need
type API interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id models.PostID) (models.Post, error)
	CreatePost(ctx context.Context, values models.PostValues) (models.Post, error)
	DeletePost(ctx context.Context, id models.PostID) error
}

// Result settles once an action's API call finished and its message, if
// any, has been dispatched.
type Result struct {
	done chan struct{}
	once sync.Once
	post models.Post
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) settle(post models.Post, err error) {
	r.once.Do(func() {
		r.post = post
		r.err = err
		close(r.done)
	})
}

// Done is closed when the result has settled
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result settles or ctx ends. A ctx error does not
// cancel the action itself.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the action error, nil until settled
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Post returns the post produced by FetchPost or CreatePost
func (r *Result) Post() models.Post {
	<-r.done
	return r.post
}

// Actions issue API calls and dispatch their outcome to the store
type Actions struct {
	api   API
	store Dispatcher
	wg    sync.WaitGroup
}

func New(api API, store Dispatcher) *Actions {
	return &Actions{api: api, store: store}
}

// run performs call in the background, detached from ctx cancellation: a
// request started by a view keeps going after the view is gone.
func (a *Actions) run(ctx context.Context, name string, call func(ctx context.Context) (models.Post, store.Message, error)) *Result {
	result := newResult()
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		post, msg, err := call(ctx)
		if err != nil {
			log.WithFields(log.Fields{
				"action": name,
				"error":  err,
			}).Warn("Action failed")
			result.settle(post, err)
			return
		}

		if msg != nil {
			if err := a.store.Dispatch(ctx, msg); err != nil {
				log.WithFields(log.Fields{
					"action": name,
					"kind":   msg.Kind(),
					"error":  err,
				}).Error("Error dispatching message")
				result.settle(post, err)
				return
			}
		}

		result.settle(post, nil)
	}()

	return result
}

// FetchPosts lists all posts and replaces the collection with them
func (a *Actions) FetchPosts(ctx context.Context) *Result {
	return a.run(ctx, "fetchPosts", func(ctx context.Context) (models.Post, store.Message, error) {
		posts, err := a.api.ListPosts(ctx)
		if err != nil {
			return models.Post{}, nil, err
		}
		return models.Post{}, store.PostsFetched{Posts: posts}, nil
	})
}

// FetchPost loads one post into the collection
func (a *Actions) FetchPost(ctx context.Context, id models.PostID) *Result {
	return a.run(ctx, "fetchPost", func(ctx context.Context) (models.Post, store.Message, error) {
		post, err := a.api.GetPost(ctx, id)
		if err != nil {
			return models.Post{}, nil, err
		}
		return post, store.PostFetched{Post: post}, nil
	})
}

// CreatePost stores a new post. Callers wait on the result before navigating.
func (a *Actions) CreatePost(ctx context.Context, values models.PostValues) *Result {
	return a.run(ctx, "createPost", func(ctx context.Context) (models.Post, store.Message, error) {
		post, err := a.api.CreatePost(ctx, values)
		if err != nil {
			return models.Post{}, nil, err
		}
		return post, store.PostCreated{Post: post}, nil
	})
}

// DeletePost removes a post from the API and then from the collection
func (a *Actions) DeletePost(ctx context.Context, id models.PostID) *Result {
	return a.run(ctx, "deletePost", func(ctx context.Context) (models.Post, store.Message, error) {
		if err := a.api.DeletePost(ctx, id); err != nil {
			return models.Post{}, nil, err
		}
		return models.Post{}, store.PostDeleted{ID: id}, nil
	})
}

// Wait blocks until every started action has settled
func (a *Actions) Wait() {
	a.wg.Wait()
}
