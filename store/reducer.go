package store

import (
	"blogfront/models"

	"github.com/samber/lo"
)

// Collection maps post ids to posts. Every key equals the ID of its value.
// A Collection handed out by this package is never mutated afterwards.
type Collection map[models.PostID]models.Post

// Reduce returns the collection that results from applying msg to current.
// It never modifies current.
func Reduce(current Collection, msg Message) Collection {
	switch msg := msg.(type) {
	case PostsFetched:
		return Collection(lo.KeyBy(msg.Posts, func(post models.Post) models.PostID {
			return post.ID
		}))
	case PostFetched:
		return Collection(lo.Assign(
			map[models.PostID]models.Post(current),
			map[models.PostID]models.Post{msg.Post.ID: msg.Post},
		))
	case PostDeleted:
		return Collection(lo.OmitByKeys(map[models.PostID]models.Post(current), []models.PostID{msg.ID}))
	default:
		return current
	}
}

// Get looks up a post by id
func (c Collection) Get(id models.PostID) (models.Post, bool) {
	post, ok := c[id]
	return post, ok
}
