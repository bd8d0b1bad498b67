// Package sandbox serves a small GraphQL schema of authors and posts over
// seeded in-memory data. It backs integration tests and `wasp sandbox`.
package sandbox

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/graph-gophers/graphql-go"
)

//go:embed schema.graphql
var sdl string

// Author is a seeded author row.
type Author struct {
	ID        int32
	FirstName string
	LastName  string
}

// Post is a seeded post row.
type Post struct {
	ID       int32
	AuthorID int32
	Title    string
	Votes    int32
}

// Data is the mutable dataset behind the schema.
type Data struct {
	mu      sync.RWMutex
	authors []Author
	posts   []Post
}

// Seed returns a fresh copy of the sample dataset.
func Seed() *Data {
	return &Data{
		authors: []Author{
			{ID: 1, FirstName: "Tom", LastName: "Stevens"},
			{ID: 2, FirstName: "Steve", LastName: "Thomas"},
			{ID: 3, FirstName: "SteveTom", LastName: "TomStevenson"},
		},
		posts: []Post{
			{ID: 0, AuthorID: 1, Title: "Introduction to GraphQL", Votes: 0},
			{ID: 1, AuthorID: 2, Title: "Welcome to This", Votes: 0},
			{ID: 2, AuthorID: 2, Title: "Advanced This", Votes: 5},
			{ID: 3, AuthorID: 3, Title: "Will This even work", Votes: 3},
		},
	}
}

// Posts returns a snapshot of all posts.
func (d *Data) Posts() []Post {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Post, len(d.posts))
	copy(out, d.posts)
	return out
}

func (d *Data) author(id int32) (Author, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.authors {
		if a.ID == id {
			return a, true
		}
	}
	return Author{}, false
}

func (d *Data) postsBy(authorID int32) []Post {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Post
	for _, p := range d.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out
}

func (d *Data) upvote(id int32) (Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.posts {
		if d.posts[i].ID == id {
			d.posts[i].Votes++
			return d.posts[i], nil
		}
	}
	return Post{}, fmt.Errorf("couldn't find post with id %d", id)
}

// NewSchema parses the schema over a freshly seeded dataset.
func NewSchema() (*graphql.Schema, error) {
	return Parse(Seed())
}

// Parse builds the executable schema over d.
func Parse(d *Data) (*graphql.Schema, error) {
	schema, err := graphql.ParseSchema(sdl, &resolver{data: d}, graphql.MaxDepth(8))
	if err != nil {
		return nil, fmt.Errorf("sandbox: parse schema: %w", err)
	}
	return schema, nil
}
