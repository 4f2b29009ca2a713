// Package memory provides an in-memory Store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/forumvac/forumvac/internal/store"
)

// Store keeps all entities in maps keyed by their unique ids. It is safe
// for concurrent use.
type Store struct {
	mu           sync.Mutex
	Presets      map[string]store.Preset
	Categories   map[string]store.Category
	Subforums    map[string]store.Subforum
	Threads      map[string]store.Thread
	Posts        map[string]store.Post
	Images       map[string]store.Image
	Applications map[string]store.Application
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		Presets:      make(map[string]store.Preset),
		Categories:   make(map[string]store.Category),
		Subforums:    make(map[string]store.Subforum),
		Threads:      make(map[string]store.Thread),
		Posts:        make(map[string]store.Post),
		Images:       make(map[string]store.Image),
		Applications: make(map[string]store.Application),
	}
}

// UpsertPreset inserts or replaces a preset row.
func (s *Store) UpsertPreset(_ context.Context, p store.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Presets[p.PresetID] = p
	return nil
}

// UpsertCategory inserts or replaces a category row.
func (s *Store) UpsertCategory(_ context.Context, c store.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Categories[c.CategoryID] = c
	return nil
}

// UpsertSubforum inserts or replaces a subforum row.
func (s *Store) UpsertSubforum(_ context.Context, sf store.Subforum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Subforums[sf.ForumID] = sf
	return nil
}

// UpsertThread inserts or replaces a thread row.
func (s *Store) UpsertThread(_ context.Context, t store.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Threads[t.ThreadID] = t
	return nil
}

// UpsertPost inserts or replaces a post row.
func (s *Store) UpsertPost(_ context.Context, p store.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Posts[p.PostID] = p
	return nil
}

// UpsertApplication inserts or replaces an application row.
func (s *Store) UpsertApplication(_ context.Context, a store.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Applications[a.ApplicationID] = a
	return nil
}

// HasImage reports whether an image row exists for the URL.
func (s *Store) HasImage(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Images[url]
	return ok, nil
}

// PutImage inserts or replaces an image row.
func (s *Store) PutImage(_ context.Context, img store.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Images[img.ImageURL] = img
	return nil
}

// Close does nothing.
func (s *Store) Close() {}
