package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/rpc"
	"github.com/forumvac/forumvac/internal/store/memory"
)

func appListPage(total int, ids ...string) *rpc.AppListPage {
	lp := &rpc.AppListPage{Total: num(total)}
	for _, id := range ids {
		id := id
		lp.Items = append(lp.Items, rpc.AppListItem{ApplicationID: &id})
	}
	return lp
}

func submissionsAPI(typeID string, perPage []int, total int) (*fakeAPI, int) {
	api := &fakeAPI{
		appTypes: map[string]string{typeID: "Membership"},
		appPages: map[string][]*rpc.AppListPage{typeID: nil},
		apps:     make(map[string]*rpc.Application),
	}
	n := 0
	for _, count := range perPage {
		var ids []string
		for i := 0; i < count; i++ {
			n++
			ids = append(ids, fmt.Sprintf("a%d", n))
		}
		api.appPages[typeID] = append(api.appPages[typeID], appListPage(total, ids...))
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("a%d", i)
		api.apps[id] = &rpc.Application{
			ApplicationID: id,
			SiteID:        "site-1",
			PresetID:      "100001",
			Title:         "Application " + id,
			Username:      "applicant",
			UserData:      json.RawMessage(`{"age":"30"}`),
		}
	}
	return api, n
}

func TestRunApplicationsArchivesEverySubmission(t *testing.T) {
	api, n := submissionsAPI("5", []int{10, 10, 5}, 25)
	st := memory.New()
	h := New(api, st, nil, Config{KeepGoing: true}, "sess", zap.NewNop(), noPause)

	require.NoError(t, h.RunApplications(context.Background()))

	require.Equal(t, 25, n)
	require.Len(t, st.Applications, 25)
	require.Equal(t, 3, api.listCalls)

	got := st.Applications["a7"]
	require.Equal(t, "100001", got.PresetID)
	require.Equal(t, "applicant", got.Username)
	require.JSONEq(t, `{"age":"30"}`, string(got.UserData))
}

func TestRunApplicationsNoTypes(t *testing.T) {
	api := &fakeAPI{appTypes: map[string]string{}}
	st := memory.New()
	h := New(api, st, nil, Config{KeepGoing: true}, "sess", zap.NewNop(), noPause)

	require.NoError(t, h.RunApplications(context.Background()))
	require.Empty(t, st.Applications)
}

func TestRunApplicationsSkipsItemsWithoutID(t *testing.T) {
	api, _ := submissionsAPI("5", []int{2}, 3)
	// A row with a null id cannot be fetched and is dropped from the listing.
	api.appPages["5"][0].Items = append(api.appPages["5"][0].Items, rpc.AppListItem{})
	st := memory.New()
	h := New(api, st, nil, Config{KeepGoing: true}, "sess", zap.NewNop(), noPause)

	require.NoError(t, h.RunApplications(context.Background()))
	require.Len(t, st.Applications, 2)
}

func TestRunApplicationsLenientSkipsMissingDetail(t *testing.T) {
	api, _ := submissionsAPI("5", []int{3}, 3)
	delete(api.apps, "a2") // detail fetch reports "empty result"
	st := memory.New()
	h := New(api, st, nil, Config{KeepGoing: true}, "sess", zap.NewNop(), noPause)

	require.NoError(t, h.RunApplications(context.Background()))
	require.Len(t, st.Applications, 2)
	require.NotContains(t, st.Applications, "a2")
}
