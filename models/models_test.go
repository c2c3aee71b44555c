package models_test

import (
	"encoding/json"
	"testing"

	"blogfront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostIDUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected models.PostID
		wantErr  bool
	}{
		{name: "number", json: `{"id": 42}`, expected: "42"},
		{name: "string", json: `{"id": "42"}`, expected: "42"},
		{name: "string with spaces", json: `{"id": " abc "}`, expected: "abc"},
		{name: "null", json: `{"id": null}`, expected: ""},
		{name: "missing", json: `{}`, expected: ""},
		{name: "object", json: `{"id": {}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var post models.Post
			err := json.Unmarshal([]byte(tt.json), &post)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, post.ID)
		})
	}
}

func TestPostDecode(t *testing.T) {
	var posts []models.Post
	err := json.Unmarshal([]byte(`[
		{"id": 1, "title": "A", "categories": "go", "content": "hello"},
		{"id": 2, "title": "B", "categories": null, "content": null}
	]`), &posts)
	require.NoError(t, err)

	assert.Equal(t, []models.Post{
		{ID: "1", Title: "A", Categories: "go", Content: "hello"},
		{ID: "2", Title: "B"},
	}, posts)
}

func TestPostValuesGet(t *testing.T) {
	v := models.PostValues{Title: "t", Categories: "c", Content: "x"}
	assert.Equal(t, "t", v.Get(models.FieldTitle))
	assert.Equal(t, "c", v.Get(models.FieldCategories))
	assert.Equal(t, "x", v.Get(models.FieldContent))
	assert.Equal(t, "", v.Get("unknown"))
}
