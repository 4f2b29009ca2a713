package harvest

import (
	"context"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/metrics"
	"github.com/forumvac/forumvac/internal/store"
)

// imagePattern matches [img]url[/img] markers in post content.
var imagePattern = regexp.MustCompile(`(?i)\[img]\s*(https?://.+?)\s*\[/img]`)

// ExtractImageURLs returns the embedded image URLs found in post content.
func ExtractImageURLs(content string) []string {
	var urls []string
	for _, m := range imagePattern.FindAllStringSubmatch(content, -1) {
		urls = append(urls, m[1])
	}
	return urls
}

// ImageHarvester downloads images embedded in post content, once per URL.
// Image downloads are unreliable at the best of times, so every failure
// is logged and swallowed; nothing here can fail the surrounding harvest.
type ImageHarvester struct {
	store  store.Store
	client *http.Client
	logger *zap.Logger
}

// NewImageHarvester builds an ImageHarvester. A nil client uses
// http.DefaultClient.
func NewImageHarvester(st store.Store, client *http.Client, logger *zap.Logger) *ImageHarvester {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageHarvester{store: st, client: client, logger: logger}
}

// Harvest scans one post's content and downloads each image URL the store
// has not seen yet.
func (h *ImageHarvester) Harvest(ctx context.Context, postID, content string) {
	for _, url := range ExtractImageURLs(content) {
		h.download(ctx, postID, url)
	}
}

func (h *ImageHarvester) download(ctx context.Context, postID, url string) {
	have, err := h.store.HasImage(ctx, url)
	if err != nil {
		h.logger.Warn("image lookup failed", zap.String("url", url), zap.Error(err))
		return
	}
	if have {
		metrics.IncImageSkipped()
		h.logger.Debug("already have image, not downloading again", zap.String("url", url))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		h.logger.Warn("bad image url", zap.String("post_id", postID), zap.String("url", url), zap.Error(err))
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("image fetch failed", zap.String("url", url), zap.Error(err))
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("image fetch failed", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Warn("image read failed", zap.String("url", url), zap.Error(err))
		return
	}

	if err := h.store.PutImage(ctx, store.Image{ImageURL: url, ImageContent: body}); err != nil {
		h.logger.Warn("image store failed", zap.String("url", url), zap.Error(err))
		return
	}
	metrics.IncImageFetched()
	h.logger.Debug("stored image", zap.String("post_id", postID), zap.String("url", url))
}
