package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman/types"
)

func TestBuilderString(t *testing.T) {
	created := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	b := NewBuilder("https://api.example.test/2.3/", "/questions/").
		Add("site", "stackoverflow").
		Add("page", Int(2)).
		Add("pagesize", (*int)(nil)).
		Add("fromdate", created).
		Add("tagged", []string{"go", "http"}).
		Add("sort", types.QuestionSortVotes).
		Add("order", types.OrderAsc).
		Add("filter", "").
		Add("closed", false)

	parsed, err := url.Parse(b.String())
	require.NoError(t, err)
	assert.Equal(t, "/2.3/questions", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "stackoverflow", query.Get("site"))
	assert.Equal(t, "2", query.Get("page"))
	assert.Equal(t, "1700000000", query.Get("fromdate"))
	assert.Equal(t, "go;http", query.Get("tagged"))
	assert.Equal(t, "votes", query.Get("sort"))
	assert.Equal(t, "asc", query.Get("order"))
	assert.Equal(t, "false", query.Get("closed"))
	assert.False(t, query.Has("pagesize"))
	assert.False(t, query.Has("filter"))
}

func TestBuilderWithoutParams(t *testing.T) {
	b := NewBuilder("http://x.test", "info")
	assert.Equal(t, "http://x.test/info", b.String())
	assert.Equal(t, "info", b.Method())
	assert.Empty(t, b.Param("site"))
}

func TestBuilderSkipsUnsetValues(t *testing.T) {
	b := NewBuilder("http://x.test", "users").
		Add("a", nil).
		Add("b", (*string)(nil)).
		Add("c", (*time.Time)(nil)).
		Add("d", time.Time{}).
		Add("e", []int{}).
		Add("f", types.UserSort(""))

	assert.Equal(t, "http://x.test/users", b.String())
}

func TestJoinInts(t *testing.T) {
	assert.Equal(t, "1;22;333", joinInts([]int{1, 22, 333}))
	assert.Equal(t, "", joinInts(nil))
}
