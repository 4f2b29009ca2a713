package harvest

import "context"

// PageFetcher fetches one page of a paginated listing for a resource.
// Page 0 requests the first page. ok=false means the page was skipped
// after exhausting retries in lenient mode.
type PageFetcher[P any] func(ctx context.Context, id string, page int) (P, bool, error)

// PageMeta extracts the owning resource id and the total page count from
// a first-page response. known is false when the remote did not report a
// usable count, in which case no further pages are requested.
type PageMeta[P any] func(page P) (id string, pages int, known bool)

// GatherPaged collects every page of every listed resource using the
// page-count convention: first pages of all resources are fetched
// concurrently, each first page reveals its listing's page count, and
// pages 2..P are then fetched concurrently in a second burst. Results
// arrive in completion order and each drain passes through a fresh
// per-burst throttle.
func GatherPaged[P any](ctx context.Context, ids []string, fetch PageFetcher[P], meta PageMeta[P], pause PauseFunc) ([]P, error) {
	set := NewFetchSet[P]()
	for _, id := range ids {
		id := id
		set.Go(ctx, func(ctx context.Context) (P, bool, error) {
			return fetch(ctx, id, 0)
		})
	}

	pageCounts := make(map[string]int)
	var out []P
	throttle := NewThrottle(pause)
	for {
		page, more, err := set.Next()
		if err != nil {
			set.Drain()
			return nil, err
		}
		if !more {
			break
		}
		id, pages, known := meta(page)
		if known {
			pageCounts[id] = pages
		}
		out = append(out, page)
		throttle.Wait(ctx)
	}

	for id, pages := range pageCounts {
		for page := 2; page <= pages; page++ {
			id, page := id, page
			set.Go(ctx, func(ctx context.Context) (P, bool, error) {
				return fetch(ctx, id, page)
			})
		}
	}

	throttle = NewThrottle(pause)
	for {
		page, more, err := set.Next()
		if err != nil {
			set.Drain()
			return nil, err
		}
		if !more {
			break
		}
		out = append(out, page)
		throttle.Wait(ctx)
	}

	return out, nil
}

// CountedPage is one page of a running-total listing.
type CountedPage[I any] struct {
	Items []I
	// Total is the claimed number of items across every page. Only the
	// first page's claim is honored.
	Total      int
	TotalKnown bool
}

// CountedFetcher fetches page n (starting at 1) of a running-total
// listing. ok=false means the page was skipped.
type CountedFetcher[I any] func(ctx context.Context, page int) (CountedPage[I], bool, error)

// GatherCounted collects a listing that reports a running item total:
// pages are fetched in order, accumulating items until the count claimed
// by page 1 is reached. A missing or non-numeric claim stops enumeration
// after the pages already fetched; a skipped page ends the listing with
// whatever was accumulated.
func GatherCounted[I any](ctx context.Context, fetch CountedFetcher[I]) ([]I, error) {
	var items []I
	var want int
	for page := 1; ; page++ {
		cp, ok, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, cp.Items...)
		if page == 1 {
			if !cp.TotalKnown {
				return items, nil
			}
			want = cp.Total
		}
		if len(items) >= want {
			return items, nil
		}
		if len(cp.Items) == 0 {
			// The remote claims more items but returned an empty page;
			// stop instead of paging forever.
			return items, nil
		}
	}
}
