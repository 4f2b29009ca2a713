// Package harvest implements the archiving engine: paginated enumeration
// of remote forum and application listings with bounded concurrent
// fan-out, failure classification and recovery, cross-listing
// deduplication, and idempotent merging into the store.
package harvest

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/rpc"
	"github.com/forumvac/forumvac/internal/store"
)

// API is the remote surface the harvester consumes. *rpc.Client satisfies
// it; tests use fakes.
type API interface {
	CategoriesAndForums(ctx context.Context, sessionID, presetID string) (*rpc.CafResult, error)
	Forum(ctx context.Context, sessionID, forumID string, page int) (*rpc.ForumPage, error)
	Thread(ctx context.Context, sessionID, threadID string, page int) (*rpc.ThreadPage, error)
	ApplicationTypes(ctx context.Context, sessionID string) (map[string]string, error)
	Applications(ctx context.Context, sessionID, appType string, page int, opts *rpc.AppListOptions) (*rpc.AppListPage, error)
	Application(ctx context.Context, sessionID, applicationID string) (*rpc.Application, error)
}

// Config controls one harvest run. It is immutable for the run's
// duration.
type Config struct {
	// PresetIDs lists the forum instances to archive.
	PresetIDs []string
	// SubforumIDs is an optional allow-list; empty means all subforums.
	SubforumIDs []string
	// KeepGoing selects lenient mode: skip items whose retries are
	// exhausted instead of aborting the run.
	KeepGoing bool
	// DoImages enables the embedded-image sub-harvest.
	DoImages bool
}

// Harvester drives full harvest runs against one site. All run state is
// held here explicitly and passed along; there are no process-wide
// singletons.
type Harvester struct {
	api     API
	store   store.Store
	images  *ImageHarvester
	policy  *Policy
	cfg     Config
	session string
	runID   string
	logger  *zap.Logger
	pause   PauseFunc
}

// New builds a Harvester. sessionID must already be resolved (via login
// or configuration). A nil pause sleeps for real; tests pass a stub.
func New(api API, st store.Store, images *ImageHarvester, cfg Config, sessionID string, logger *zap.Logger, pause PauseFunc) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pause == nil {
		pause = SleepPause
	}
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	return &Harvester{
		api:     api,
		store:   st,
		images:  images,
		policy:  NewPolicy(cfg.KeepGoing, pause, logger),
		cfg:     cfg,
		session: sessionID,
		runID:   runID,
		logger:  logger,
		pause:   pause,
	}
}

// RunID identifies this harvester's run in logs.
func (h *Harvester) RunID() string {
	return h.runID
}

// allowedSubforums filters ids against the configured allow-list. An
// empty allow-list permits everything.
func (h *Harvester) allowedSubforums(ids []string) []string {
	if len(h.cfg.SubforumIDs) == 0 {
		return ids
	}
	allowed := make(map[string]struct{}, len(h.cfg.SubforumIDs))
	for _, id := range h.cfg.SubforumIDs {
		allowed[id] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := allowed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
