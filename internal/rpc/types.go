package rpc

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Number is an integer that the remote API serializes inconsistently: as a
// JSON number, a numeric string, or null. Anything non-numeric decodes as
// unknown rather than failing the surrounding payload.
type Number struct {
	Value int
	Known bool
}

// UnmarshalJSON accepts numbers, numeric strings, and null.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value, n.Known = 0, false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		n.Value, n.Known = v, true
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	n.Value, n.Known = v, true
	return nil
}

// MarshalJSON renders the value as a plain number, or null when unknown.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Known {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Value)), nil
}

// LoginResult is the response to User.login.
type LoginResult struct {
	SessionID string `json:"session_id"`
}

// ForumSettings carries per-preset display settings.
type ForumSettings struct {
	TitleWelcome string `json:"title_welcome"`
}

// Subforum describes one forum container within a preset.
type Subforum struct {
	TitleWelcome     *string `json:"title_welcome"`
	PresetID         string  `json:"preset_id"`
	CategoryID       string  `json:"category_id"`
	CategoryName     string  `json:"category_name"`
	ForumID          string  `json:"forum_id"`
	ForumName        string  `json:"forum_name"`
	ForumDescription string  `json:"forum_description"`
	ParentID         *string `json:"parent_id"`
	ForumType        string  `json:"forum_type"`
}

// ForumThread is a thread row as it appears in forum index listings.
type ForumThread struct {
	ThreadID      string  `json:"thread_id"`
	ThreadSubject string  `json:"thread_subject"`
	ThreadViews   string  `json:"thread_views"`
	ThreadType    string  `json:"thread_type"`
	ThreadStatus  string  `json:"thread_status"`
	ForumID       string  `json:"forum_id"`
	Username      *string `json:"username"`
	CategoryID    string  `json:"category_id"`
}

// ForumPost is a single post within a thread page. ThreadID is absent in
// some payload shapes; the harvester stamps it before persistence.
type ForumPost struct {
	PostID          string  `json:"post_id"`
	PostTime        string  `json:"post_time"`
	PostContent     string  `json:"post_content"`
	PostUserID      string  `json:"post_user_id"`
	LastEditTime    string  `json:"last_edit_time"`
	PostUnhidden    string  `json:"post_unhidden"`
	PostAdminHidden string  `json:"post_admin_hidden"`
	PostLocked      string  `json:"post_locked"`
	LastEditUser    string  `json:"last_edit_user"`
	PostUsername    string  `json:"post_username"`
	ThreadID        *string `json:"thread_id"`
}

// SubforumIndex is the "subforums" field of Forum.getCategoriesAndForums.
// Deployments have been observed shipping it as a mapping of parent id to
// child subforum lists, or as a flat list (of ids or of subforum objects).
// All shapes normalize to a set of forum ids via ForumIDs.
type SubforumIndex struct {
	Groups map[string][]Subforum
	Flat   []string
}

// UnmarshalJSON accepts the mapping shape and both flat shapes.
func (s *SubforumIndex) UnmarshalJSON(data []byte) error {
	s.Groups, s.Flat = nil, nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		return json.Unmarshal(data, &s.Groups)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		s.Flat = ids
		return nil
	}
	var subs []Subforum
	if err := json.Unmarshal(data, &subs); err != nil {
		return err
	}
	for _, sf := range subs {
		if sf.ForumID != "" {
			s.Flat = append(s.Flat, sf.ForumID)
		}
	}
	return nil
}

// ForumIDs flattens the index into the ids it mentions: mapping keys,
// child subforum ids, and flat entries.
func (s SubforumIndex) ForumIDs() []string {
	var ids []string
	for parent, children := range s.Groups {
		ids = append(ids, parent)
		for _, child := range children {
			if child.ForumID != "" {
				ids = append(ids, child.ForumID)
			}
		}
	}
	ids = append(ids, s.Flat...)
	return ids
}

// CafResult is the response to Forum.getCategoriesAndForums.
type CafResult struct {
	Settings      ForumSettings                         `json:"settings"`
	Subforums     SubforumIndex                         `json:"subforums"`
	Categories    map[string]map[string]json.RawMessage `json:"categories"`
	TotalThreads  Number                                `json:"total_threads"`
	TotalPosts    Number                                `json:"total_posts"`
	CategoryNames map[string]string                     `json:"category_names"`
}

// SubforumIDs returns the deduplicated, sorted union of subforum ids from
// every place the payload mentions them: the subforums index and the
// nested categories grouping.
func (c *CafResult) SubforumIDs() []string {
	seen := make(map[string]struct{})
	for _, id := range c.Subforums.ForumIDs() {
		seen[id] = struct{}{}
	}
	for _, group := range c.Categories {
		for forumID := range group {
			seen[forumID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ForumPage is one page of a forum index (Forum.getForum). Threads are
// split by listing category; global announcements repeat under every
// subforum of the preset.
type ForumPage struct {
	Forum              Subforum      `json:"forum"`
	Threads            []ForumThread `json:"threads"`
	Sticky             []ForumThread `json:"sticky"`
	Notices            []ForumThread `json:"notices"`
	AnnouncementLocal  []ForumThread `json:"announcement_local"`
	AnnouncementGlobal []ForumThread `json:"announcement_global"`
	Page               Number        `json:"page"`
	Pages              Number        `json:"pages"`
}

// ThreadPage is one page of a thread's post history (Forum.getThread).
type ThreadPage struct {
	Thread     ForumThread `json:"thread"`
	Posts      []ForumPost `json:"posts"`
	TotalItems Number      `json:"total_items"`
	Pages      Number      `json:"pages"`
}

// AppListItem is one row of an application listing page.
type AppListItem struct {
	ApplicationID *string `json:"application_id"`
}

// AppListPage is the response to Applications.getList. Total is the
// claimed number of items across all pages.
type AppListPage struct {
	Items []AppListItem `json:"items"`
	Total Number        `json:"total"`
}

// Application is a full form submission (Applications.getApplication).
type Application struct {
	ApplicationID string          `json:"application_id"`
	SiteID        string          `json:"site_id"`
	PresetID      string          `json:"preset_id"`
	Title         string          `json:"title"`
	UserIP        string          `json:"user_ip"`
	Created       string          `json:"created"`
	Username      string          `json:"username"`
	UserID        string          `json:"user_id"`
	UserData      json.RawMessage `json:"user_data"`
}
