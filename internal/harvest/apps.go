package harvest

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/metrics"
	"github.com/forumvac/forumvac/internal/rpc"
	"github.com/forumvac/forumvac/internal/store"
)

// RunApplications archives every form submission of every application
// type. Types are walked one at a time; list pages follow the
// running-total convention and detail fetches fan out concurrently.
func (h *Harvester) RunApplications(ctx context.Context) error {
	types, ok, err := fetchRetry(ctx, h.policy, ResourceAppList, "types", func(ctx context.Context) (map[string]string, error) {
		return h.api.ApplicationTypes(ctx, h.session)
	})
	if err != nil {
		return err
	}
	if !ok || len(types) == 0 {
		h.logger.Warn("no application types reported, nothing to harvest")
		return nil
	}

	typeIDs := make([]string, 0, len(types))
	for id := range types {
		typeIDs = append(typeIDs, id)
	}
	sort.Strings(typeIDs)

	for _, typeID := range typeIDs {
		h.logger.Info("harvesting applications",
			zap.String("type", typeID),
			zap.String("label", types[typeID]),
		)
		ids, err := h.listApplications(ctx, typeID)
		if err != nil {
			return err
		}
		if err := h.fetchApplications(ctx, ids); err != nil {
			return err
		}
	}
	return nil
}

// listApplications enumerates every application id of one type using the
// running-total convention: page 1's claimed total is authoritative and
// pages are requested until that many items have been accumulated.
func (h *Harvester) listApplications(ctx context.Context, typeID string) ([]string, error) {
	return GatherCounted(ctx, func(ctx context.Context, page int) (CountedPage[string], bool, error) {
		id := fmt.Sprintf("%s p%d", typeID, page)
		lp, ok, err := fetchRetry(ctx, h.policy, ResourceAppList, id, func(ctx context.Context) (*rpc.AppListPage, error) {
			return h.api.Applications(ctx, h.session, typeID, page, nil)
		})
		if err != nil || !ok {
			return CountedPage[string]{}, false, err
		}
		cp := CountedPage[string]{
			Total:      lp.Total.Value,
			TotalKnown: lp.Total.Known,
		}
		for _, item := range lp.Items {
			if item.ApplicationID != nil && *item.ApplicationID != "" {
				cp.Items = append(cp.Items, *item.ApplicationID)
			}
		}
		return cp, true, nil
	})
}

// fetchApplications fans out detail fetches for the collected ids and
// merges each result into the store as it completes.
func (h *Harvester) fetchApplications(ctx context.Context, ids []string) error {
	set := NewFetchSet[*rpc.Application]()
	for _, id := range ids {
		id := id
		set.Go(ctx, func(ctx context.Context) (*rpc.Application, bool, error) {
			return fetchRetry(ctx, h.policy, ResourceApplication, id, func(ctx context.Context) (*rpc.Application, error) {
				return h.api.Application(ctx, h.session, id)
			})
		})
	}

	throttle := NewThrottle(h.pause)
	for {
		app, more, err := set.Next()
		if err != nil {
			set.Drain()
			return err
		}
		if !more {
			return nil
		}
		err = h.store.UpsertApplication(ctx, store.Application{
			ApplicationID: app.ApplicationID,
			SiteID:        app.SiteID,
			PresetID:      app.PresetID,
			Title:         app.Title,
			UserIP:        app.UserIP,
			Created:       app.Created,
			Username:      app.Username,
			UserID:        app.UserID,
			UserData:      app.UserData,
		})
		if err != nil {
			return err
		}
		metrics.IncEntitySaved("application")
		h.logger.Debug("saved application", zap.String("application_id", app.ApplicationID))
		throttle.Wait(ctx)
	}
}
