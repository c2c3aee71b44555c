package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PostID identifies a post. The posts API hands ids out as JSON numbers but
// route params and form values carry them as strings, so both decode here.
type PostID string

func (id *PostID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid post id %s: %w", data, err)
		}
		*id = PostID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid post id %s: %w", data, err)
	}
	*id = PostID(n.String())
	return nil
}

func (id PostID) String() string {
	return string(id)
}

// Post as served by the posts API
type Post struct {
	ID         PostID `json:"id"`
	Title      string `json:"title"`
	Categories string `json:"categories"`
	Content    string `json:"content"`
}

// PostValues are the user supplied fields of a new post
type PostValues struct {
	Title      string `json:"title" form:"title"`
	Categories string `json:"categories" form:"categories"`
	Content    string `json:"content" form:"content"`
}

// Field names used by forms and validation errors
const (
	FieldTitle      = "title"
	FieldCategories = "categories"
	FieldContent    = "content"
)

// Get returns the value of the named field
func (v PostValues) Get(field string) string {
	switch field {
	case FieldTitle:
		return v.Title
	case FieldCategories:
		return v.Categories
	case FieldContent:
		return v.Content
	}
	return ""
}

// Omit everything but the error text
type ErrorResponse struct {
	Error string `json:"error"`
}
