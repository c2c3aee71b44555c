package actions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blogfront/actions"
	"blogfront/models"
	"blogfront/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	posts   []models.Post
	err     error
	release chan struct{}
	deleted []models.PostID
	created []models.PostValues
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.release != nil {
		<-f.release
	}
	return ctx.Err()
}

func (f *fakeAPI) ListPosts(ctx context.Context) ([]models.Post, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.posts, f.err
}

func (f *fakeAPI) GetPost(ctx context.Context, id models.PostID) (models.Post, error) {
	if err := f.wait(ctx); err != nil {
		return models.Post{}, err
	}
	if f.err != nil {
		return models.Post{}, f.err
	}
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Post{}, &actions.StatusError{Code: 404}
}

func (f *fakeAPI) CreatePost(ctx context.Context, values models.PostValues) (models.Post, error) {
	if f.err != nil {
		return models.Post{}, f.err
	}
	f.created = append(f.created, values)
	return models.Post{ID: "99", Title: values.Title, Categories: values.Categories, Content: values.Content}, nil
}

func (f *fakeAPI) DeletePost(ctx context.Context, id models.PostID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []store.Message
}

func (r *recorder) Dispatch(ctx context.Context, msg store.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) messages() []store.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Message(nil), r.msgs...)
}

func TestFetchPosts(t *testing.T) {
	api := &fakeAPI{posts: []models.Post{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}}
	rec := &recorder{}
	a := actions.New(api, rec)

	require.NoError(t, a.FetchPosts(context.Background()).Wait(context.Background()))

	assert.Equal(t, []store.Message{store.PostsFetched{Posts: api.posts}}, rec.messages())
}

func TestFetchPost(t *testing.T) {
	api := &fakeAPI{posts: []models.Post{{ID: "1", Title: "A"}}}
	rec := &recorder{}
	a := actions.New(api, rec)

	result := a.FetchPost(context.Background(), "1")
	require.NoError(t, result.Wait(context.Background()))

	assert.Equal(t, models.Post{ID: "1", Title: "A"}, result.Post())
	assert.Equal(t, []store.Message{store.PostFetched{Post: models.Post{ID: "1", Title: "A"}}}, rec.messages())
}

func TestFetchPostNotFound(t *testing.T) {
	rec := &recorder{}
	a := actions.New(&fakeAPI{}, rec)

	err := a.FetchPost(context.Background(), "404").Wait(context.Background())
	assert.True(t, actions.IsNotFound(err))
	assert.Empty(t, rec.messages())
}

func TestCreatePost(t *testing.T) {
	api := &fakeAPI{}
	rec := &recorder{}
	a := actions.New(api, rec)

	values := models.PostValues{Title: "T", Categories: "C", Content: "X"}
	result := a.CreatePost(context.Background(), values)
	require.NoError(t, result.Wait(context.Background()))

	assert.Equal(t, []models.PostValues{values}, api.created)
	assert.Equal(t, models.PostID("99"), result.Post().ID)
	assert.Equal(t, []store.Message{store.PostCreated{Post: result.Post()}}, rec.messages())
}

func TestDeletePost(t *testing.T) {
	api := &fakeAPI{}
	rec := &recorder{}
	a := actions.New(api, rec)

	require.NoError(t, a.DeletePost(context.Background(), "5").Wait(context.Background()))

	assert.Equal(t, []models.PostID{"5"}, api.deleted)
	assert.Equal(t, []store.Message{store.PostDeleted{ID: "5"}}, rec.messages())
}

func TestFailedActionDispatchesNothing(t *testing.T) {
	boom := errors.New("connection refused")
	api := &fakeAPI{err: boom}
	rec := &recorder{}
	a := actions.New(api, rec)
	ctx := context.Background()

	results := []*actions.Result{
		a.FetchPosts(ctx),
		a.FetchPost(ctx, "1"),
		a.CreatePost(ctx, models.PostValues{Title: "t"}),
		a.DeletePost(ctx, "1"),
	}

	for _, result := range results {
		assert.ErrorIs(t, result.Wait(ctx), boom)
		assert.ErrorIs(t, result.Err(), boom)
	}
	assert.Empty(t, rec.messages())
}

func TestActionOutlivesCancelledCaller(t *testing.T) {
	api := &fakeAPI{posts: []models.Post{{ID: "1"}}, release: make(chan struct{})}
	rec := &recorder{}
	a := actions.New(api, rec)

	ctx, cancel := context.WithCancel(context.Background())
	result := a.FetchPosts(ctx)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	assert.ErrorIs(t, result.Wait(waitCtx), context.DeadlineExceeded)
	assert.NoError(t, result.Err(), "unsettled result has no error")

	close(api.release)
	a.Wait()

	assert.NoError(t, result.Err())
	assert.Len(t, rec.messages(), 1)
}

func TestActionsUpdateStore(t *testing.T) {
	s := store.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	api := &fakeAPI{posts: []models.Post{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}}
	a := actions.New(api, s)

	require.NoError(t, a.FetchPosts(ctx).Wait(ctx))
	require.NoError(t, a.DeletePost(ctx, "1").Wait(ctx))

	state, _ := s.State()
	assert.Equal(t, store.Collection{"2": {ID: "2", Title: "B"}}, state)
}
