package store

import "blogfront/models"

// Kind tags a message
type Kind string

const (
	KindFetchPosts Kind = "FETCH_POSTS"
	KindFetchPost  Kind = "FETCH_POST"
	KindDeletePost Kind = "DELETE_POST"
	KindCreatePost Kind = "CREATE_POST"
)

// Message is an intent or event applied to the collection by Reduce.
// The set of messages is closed: only this package can add a kind.
type Message interface {
	Kind() Kind
	message()
}

// PostsFetched carries the result of listing all posts
type PostsFetched struct {
	Posts []models.Post
}

// PostFetched carries the result of fetching one post
type PostFetched struct {
	Post models.Post
}

// PostDeleted is dispatched after the API removed a post
type PostDeleted struct {
	ID models.PostID
}

// PostCreated is dispatched after the API stored a new post. The posts
// reducer leaves the collection alone, the index re-fetches on mount.
type PostCreated struct {
	Post models.Post
}

func (PostsFetched) Kind() Kind { return KindFetchPosts }
func (PostFetched) Kind() Kind  { return KindFetchPost }
func (PostDeleted) Kind() Kind  { return KindDeletePost }
func (PostCreated) Kind() Kind  { return KindCreatePost }

func (PostsFetched) message() {}
func (PostFetched) message()  {}
func (PostDeleted) message()  {}
func (PostCreated) message()  {}
