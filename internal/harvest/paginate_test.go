package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePage struct {
	id    string
	page  int
	pages int
	known bool
}

func fakeMeta(p fakePage) (string, int, bool) {
	return p.id, p.pages, p.known
}

// requestLog counts fetches from concurrent page goroutines.
type requestLog struct {
	mu   sync.Mutex
	rows []string
}

func (l *requestLog) add(id string, page int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, fmt.Sprintf("%s/%d", id, page))
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func TestGatherPagedCollectsAllPagesOnce(t *testing.T) {
	log := &requestLog{}
	fetch := func(_ context.Context, id string, page int) (fakePage, bool, error) {
		log.add(id, page)
		if page == 0 {
			return fakePage{id: id, page: 1, pages: 3, known: true}, true, nil
		}
		return fakePage{id: id, page: page, pages: 3, known: true}, true, nil
	}

	pages, err := GatherPaged(context.Background(), []string{"f1"}, fetch, fakeMeta, noPause)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	var got []int
	for _, p := range pages {
		got = append(got, p.page)
	}
	require.ElementsMatch(t, []int{1, 2, 3}, got)
	require.ElementsMatch(t, []string{"f1/0", "f1/2", "f1/3"}, log.rows)
}

func TestGatherPagedMultipleResources(t *testing.T) {
	counts := map[string]int{"a": 2, "b": 1}
	fetch := func(_ context.Context, id string, page int) (fakePage, bool, error) {
		if page == 0 {
			page = 1
		}
		return fakePage{id: id, page: page, pages: counts[id], known: true}, true, nil
	}

	pages, err := GatherPaged(context.Background(), []string{"a", "b"}, fetch, fakeMeta, noPause)
	require.NoError(t, err)
	require.Len(t, pages, 3) // a:2 pages, b:1 page
}

func TestGatherPagedUnknownCountStopsAtFirstPage(t *testing.T) {
	log := &requestLog{}
	fetch := func(_ context.Context, id string, page int) (fakePage, bool, error) {
		log.add(id, page)
		return fakePage{id: id, page: 1, known: false}, true, nil
	}

	pages, err := GatherPaged(context.Background(), []string{"f1"}, fetch, fakeMeta, noPause)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, 1, log.count())
}

func TestGatherPagedSkippedResourceContributesNothing(t *testing.T) {
	fetch := func(_ context.Context, id string, page int) (fakePage, bool, error) {
		if id == "gone" {
			return fakePage{}, false, nil
		}
		return fakePage{id: id, page: 1, pages: 1, known: true}, true, nil
	}

	pages, err := GatherPaged(context.Background(), []string{"gone", "f1"}, fetch, fakeMeta, noPause)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "f1", pages[0].id)
}

func TestGatherPagedPropagatesAbort(t *testing.T) {
	boom := errors.New("fatal")
	fetch := func(_ context.Context, id string, page int) (fakePage, bool, error) {
		return fakePage{}, false, boom
	}

	_, err := GatherPaged(context.Background(), []string{"f1"}, fetch, fakeMeta, noPause)
	require.ErrorIs(t, err, boom)
}

func TestGatherCountedStopsAtClaimedTotal(t *testing.T) {
	requests := 0
	fetch := func(_ context.Context, page int) (CountedPage[int], bool, error) {
		requests++
		items := make([]int, 10)
		total := 25
		if page == 3 {
			// Later pages may report a different total; page 1's claim wins.
			total = 99
		}
		return CountedPage[int]{Items: items, Total: total, TotalKnown: true}, true, nil
	}

	items, err := GatherCounted(context.Background(), fetch)
	require.NoError(t, err)
	require.Equal(t, 3, requests)
	require.GreaterOrEqual(t, len(items), 25)
}

func TestGatherCountedUnknownTotalStopsAfterFirstPage(t *testing.T) {
	requests := 0
	fetch := func(_ context.Context, page int) (CountedPage[int], bool, error) {
		requests++
		return CountedPage[int]{Items: []int{1, 2}, TotalKnown: false}, true, nil
	}

	items, err := GatherCounted(context.Background(), fetch)
	require.NoError(t, err)
	require.Equal(t, 1, requests)
	require.Len(t, items, 2)
}

func TestGatherCountedSkippedPageEndsListing(t *testing.T) {
	fetch := func(_ context.Context, page int) (CountedPage[int], bool, error) {
		if page == 2 {
			return CountedPage[int]{}, false, nil
		}
		return CountedPage[int]{Items: []int{1}, Total: 5, TotalKnown: true}, true, nil
	}

	items, err := GatherCounted(context.Background(), fetch)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestGatherCountedEmptyPageGuardsAgainstLyingTotals(t *testing.T) {
	requests := 0
	fetch := func(_ context.Context, page int) (CountedPage[int], bool, error) {
		requests++
		if page == 1 {
			return CountedPage[int]{Items: []int{1}, Total: 10, TotalKnown: true}, true, nil
		}
		return CountedPage[int]{Total: 10, TotalKnown: true}, true, nil
	}

	items, err := GatherCounted(context.Background(), fetch)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, requests)
}
