// Package store defines the persistence interface for harvested forum
// content. Backends must make every write idempotent: inserting an entity
// whose key already exists refreshes its mutable fields instead of
// creating a duplicate.
package store

import "context"

// Preset is one hosted forum site instance.
type Preset struct {
	PresetID     string
	TitleWelcome string
	TotalThreads int
	TotalPosts   int
}

// Category maps a category id to its display name.
type Category struct {
	CategoryID   string
	CategoryName string
}

// Subforum is a thread container, optionally nested under a parent.
type Subforum struct {
	ForumID          string
	ParentID         *string
	PresetID         string
	CategoryID       string
	CategoryName     string
	ForumName        string
	ForumDescription string
	ForumType        string
	TitleWelcome     *string
}

// Thread is a titled discussion container owned by one subforum.
type Thread struct {
	ThreadID      string
	ThreadSubject string
	ThreadViews   string
	ThreadType    string
	ThreadStatus  string
	ForumID       string
	Username      *string
	CategoryID    string
}

// Post is a single message within a thread.
type Post struct {
	PostID          string
	PostTime        string
	PostContent     string
	PostUserID      string
	PostUsername    string
	LastEditTime    string
	LastEditUser    string
	PostUnhidden    string
	PostAdminHidden string
	PostLocked      string
	ThreadID        *string
}

// Image is an embedded image, content-addressed by its source URL.
// Content is nil when the download failed or was skipped.
type Image struct {
	ImageURL     string
	ImageContent []byte
}

// Application is one form submission.
type Application struct {
	ApplicationID string
	SiteID        string
	PresetID      string
	Title         string
	UserIP        string
	Created       string
	Username      string
	UserID        string
	UserData      []byte
}

// Store is the write path for harvested entities. All methods are safe
// for concurrent use. Upserts never fail on key conflicts; any error a
// Store returns indicates a code-level problem and should abort the run.
type Store interface {
	UpsertPreset(ctx context.Context, p Preset) error
	UpsertCategory(ctx context.Context, c Category) error
	UpsertSubforum(ctx context.Context, s Subforum) error
	UpsertThread(ctx context.Context, t Thread) error
	UpsertPost(ctx context.Context, p Post) error
	UpsertApplication(ctx context.Context, a Application) error

	// HasImage reports whether an image row exists for the URL.
	HasImage(ctx context.Context, url string) (bool, error)
	PutImage(ctx context.Context, img Image) error

	Close()
}

// NoOp discards all writes. It exists so the harvester can be exercised
// without any persistence backend configured.
type NoOp struct{}

// UpsertPreset does nothing.
func (NoOp) UpsertPreset(context.Context, Preset) error { return nil }

// UpsertCategory does nothing.
func (NoOp) UpsertCategory(context.Context, Category) error { return nil }

// UpsertSubforum does nothing.
func (NoOp) UpsertSubforum(context.Context, Subforum) error { return nil }

// UpsertThread does nothing.
func (NoOp) UpsertThread(context.Context, Thread) error { return nil }

// UpsertPost does nothing.
func (NoOp) UpsertPost(context.Context, Post) error { return nil }

// UpsertApplication does nothing.
func (NoOp) UpsertApplication(context.Context, Application) error { return nil }

// HasImage always reports false.
func (NoOp) HasImage(context.Context, string) (bool, error) { return false, nil }

// PutImage does nothing.
func (NoOp) PutImage(context.Context, Image) error { return nil }

// Close does nothing.
func (NoOp) Close() {}
