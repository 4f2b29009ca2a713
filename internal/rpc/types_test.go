package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		value int
		known bool
	}{
		{"number", `7`, 7, true},
		{"numeric string", `"42"`, 42, true},
		{"null", `null`, 0, false},
		{"empty string", `""`, 0, false},
		{"garbage string", `"lots"`, 0, false},
		{"bool", `true`, 0, false},
		{"array", `[1]`, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tc.in), &n))
			require.Equal(t, tc.known, n.Known)
			require.Equal(t, tc.value, n.Value)
		})
	}
}

func TestNumberInsidePayloadNeverFails(t *testing.T) {
	var page ForumPage
	err := json.Unmarshal([]byte(`{"pages": {"weird": true}, "page": "3"}`), &page)
	require.NoError(t, err)
	require.False(t, page.Pages.Known)
	require.True(t, page.Page.Known)
	require.Equal(t, 3, page.Page.Value)
}

func TestSubforumIndexMappingShape(t *testing.T) {
	var idx SubforumIndex
	err := json.Unmarshal([]byte(`{
		"100": [{"forum_id": "101"}, {"forum_id": "102"}],
		"200": []
	}`), &idx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"100", "101", "102", "200"}, idx.ForumIDs())
}

func TestSubforumIndexFlatIDs(t *testing.T) {
	var idx SubforumIndex
	require.NoError(t, json.Unmarshal([]byte(`["5", "6"]`), &idx))
	require.ElementsMatch(t, []string{"5", "6"}, idx.ForumIDs())
}

func TestSubforumIndexFlatObjects(t *testing.T) {
	var idx SubforumIndex
	require.NoError(t, json.Unmarshal([]byte(`[{"forum_id": "9"}]`), &idx))
	require.ElementsMatch(t, []string{"9"}, idx.ForumIDs())
}

func TestCafSubforumIDsUnionsAllSources(t *testing.T) {
	var caf CafResult
	err := json.Unmarshal([]byte(`{
		"settings": {"title_welcome": "Welcome"},
		"subforums": {"10": [{"forum_id": "11"}]},
		"categories": {"cat1": {"12": {}, "11": {}}},
		"total_threads": "2",
		"total_posts": 4,
		"category_names": {"cat1": "General"}
	}`), &caf)
	require.NoError(t, err)
	require.Equal(t, []string{"10", "11", "12"}, caf.SubforumIDs())
	require.Equal(t, 2, caf.TotalThreads.Value)
	require.Equal(t, 4, caf.TotalPosts.Value)
}
