package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/metrics"
	"github.com/forumvac/forumvac/internal/rpc"
	"github.com/forumvac/forumvac/internal/store"
)

// Run archives every configured preset: categories, subforums, threads,
// posts, and embedded images. Presets are walked one at a time; the page
// and item fan-out within a preset is concurrent.
func (h *Harvester) Run(ctx context.Context) error {
	for _, presetID := range h.cfg.PresetIDs {
		if err := h.harvestPreset(ctx, presetID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harvester) harvestPreset(ctx context.Context, presetID string) error {
	caf, ok, err := fetchRetry(ctx, h.policy, ResourcePreset, presetID, func(ctx context.Context) (*rpc.CafResult, error) {
		return h.api.CategoriesAndForums(ctx, h.session, presetID)
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	h.logger.Info("harvesting preset",
		zap.String("preset_id", presetID),
		zap.String("title", caf.Settings.TitleWelcome),
	)

	if err := h.savePreset(ctx, presetID, caf); err != nil {
		return err
	}

	subforumIDs := h.allowedSubforums(caf.SubforumIDs())
	h.logger.Info("enumerating subforums",
		zap.String("preset_id", presetID),
		zap.Int("count", len(subforumIDs)),
	)

	forumPages, err := GatherPaged(ctx, subforumIDs, h.fetchForumPage, forumPageMeta, h.pause)
	if err != nil {
		return err
	}

	threadIDs, err := h.saveForumPages(ctx, forumPages)
	if err != nil {
		return err
	}
	h.logger.Info("enumerating threads",
		zap.String("preset_id", presetID),
		zap.Int("count", len(threadIDs)),
	)

	threadPages, err := GatherPaged(ctx, threadIDs, h.fetchThreadPage, threadPageMeta, h.pause)
	if err != nil {
		return err
	}

	for _, tp := range threadPages {
		if err := h.savePosts(ctx, tp); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harvester) fetchForumPage(ctx context.Context, forumID string, page int) (*rpc.ForumPage, bool, error) {
	id := forumID
	if page > 0 {
		id = fmt.Sprintf("%s p%d", forumID, page)
	}
	return fetchRetry(ctx, h.policy, ResourceForumIndex, id, func(ctx context.Context) (*rpc.ForumPage, error) {
		return h.api.Forum(ctx, h.session, forumID, page)
	})
}

func (h *Harvester) fetchThreadPage(ctx context.Context, threadID string, page int) (*rpc.ThreadPage, bool, error) {
	id := threadID
	if page > 0 {
		id = fmt.Sprintf("%s p%d", threadID, page)
	}
	return fetchRetry(ctx, h.policy, ResourceThreadIndex, id, func(ctx context.Context) (*rpc.ThreadPage, error) {
		return h.api.Thread(ctx, h.session, threadID, page)
	})
}

func forumPageMeta(p *rpc.ForumPage) (string, int, bool) {
	return p.Forum.ForumID, p.Pages.Value, p.Pages.Known
}

func threadPageMeta(p *rpc.ThreadPage) (string, int, bool) {
	return p.Thread.ThreadID, p.Pages.Value, p.Pages.Known
}

func (h *Harvester) savePreset(ctx context.Context, presetID string, caf *rpc.CafResult) error {
	for cid, name := range caf.CategoryNames {
		if err := h.store.UpsertCategory(ctx, store.Category{CategoryID: cid, CategoryName: name}); err != nil {
			return err
		}
		metrics.IncEntitySaved("category")
	}
	err := h.store.UpsertPreset(ctx, store.Preset{
		PresetID:     presetID,
		TitleWelcome: caf.Settings.TitleWelcome,
		TotalThreads: caf.TotalThreads.Value,
		TotalPosts:   caf.TotalPosts.Value,
	})
	if err != nil {
		return err
	}
	metrics.IncEntitySaved("preset")
	return nil
}

// saveForumPages persists every subforum and its directly-listed threads
// and returns the thread ids left to fetch. Global announcements surface
// under every subforum of the preset but represent a single thread, so
// they are persisted and scheduled at most once; the four locally-scoped
// listing categories are taken as-is.
func (h *Harvester) saveForumPages(ctx context.Context, pages []*rpc.ForumPage) ([]string, error) {
	seenGlobal := NewSeenSet()
	var threadIDs []string

	for _, fp := range pages {
		if err := h.store.UpsertSubforum(ctx, subforumRow(fp.Forum)); err != nil {
			return nil, err
		}
		metrics.IncEntitySaved("subforum")

		for _, list := range [][]rpc.ForumThread{fp.Threads, fp.Sticky, fp.Notices, fp.AnnouncementLocal} {
			for _, th := range list {
				if err := h.saveThread(ctx, fp, th); err != nil {
					return nil, err
				}
				threadIDs = append(threadIDs, th.ThreadID)
			}
		}
		for _, th := range fp.AnnouncementGlobal {
			if !seenGlobal.MarkIfNew(th.ThreadID) {
				continue
			}
			if err := h.saveThread(ctx, fp, th); err != nil {
				return nil, err
			}
			threadIDs = append(threadIDs, th.ThreadID)
		}
	}
	return threadIDs, nil
}

func (h *Harvester) saveThread(ctx context.Context, fp *rpc.ForumPage, th rpc.ForumThread) error {
	err := h.store.UpsertThread(ctx, store.Thread{
		ThreadID:      th.ThreadID,
		ThreadSubject: th.ThreadSubject,
		ThreadViews:   th.ThreadViews,
		ThreadType:    th.ThreadType,
		ThreadStatus:  th.ThreadStatus,
		ForumID:       fp.Forum.ForumID,
		Username:      th.Username,
		CategoryID:    fp.Forum.CategoryID,
	})
	if err != nil {
		return err
	}
	metrics.IncEntitySaved("thread")
	return nil
}

// savePosts persists one thread page's posts, stamping the owning thread
// id onto each post. Each post's embedded-image downloads are fanned out
// once its row has been accepted and drained before returning; image
// failures stay non-fatal inside the image harvester.
func (h *Harvester) savePosts(ctx context.Context, tp *rpc.ThreadPage) error {
	threadID := tp.Thread.ThreadID
	images := NewFetchSet[struct{}]()
	defer images.Drain()
	for _, post := range tp.Posts {
		tid := threadID
		err := h.store.UpsertPost(ctx, store.Post{
			PostID:          post.PostID,
			PostTime:        post.PostTime,
			PostContent:     post.PostContent,
			PostUserID:      post.PostUserID,
			PostUsername:    post.PostUsername,
			LastEditTime:    post.LastEditTime,
			LastEditUser:    post.LastEditUser,
			PostUnhidden:    post.PostUnhidden,
			PostAdminHidden: post.PostAdminHidden,
			PostLocked:      post.PostLocked,
			ThreadID:        &tid,
		})
		if err != nil {
			return err
		}
		metrics.IncEntitySaved("post")

		if h.cfg.DoImages && h.images != nil {
			post := post
			images.Go(ctx, func(ctx context.Context) (struct{}, bool, error) {
				h.images.Harvest(ctx, post.PostID, post.PostContent)
				return struct{}{}, false, nil
			})
		}
	}
	return nil
}

func subforumRow(sf rpc.Subforum) store.Subforum {
	return store.Subforum{
		ForumID:          sf.ForumID,
		ParentID:         sf.ParentID,
		PresetID:         sf.PresetID,
		CategoryID:       sf.CategoryID,
		CategoryName:     sf.CategoryName,
		ForumName:        sf.ForumName,
		ForumDescription: sf.ForumDescription,
		ForumType:        sf.ForumType,
		TitleWelcome:     sf.TitleWelcome,
	}
}
