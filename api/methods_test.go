package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman"
)

func TestBackoffKeyFor(t *testing.T) {
	tests := map[string]string{
		"questions":               KeyQuestions,
		"questions/1;2;3/answers": KeyQuestionAnswers,
		"/users/42/":              KeyUsersByIDs,
		"users/7/questions":       KeyUserQuestions,
		"users/moderators":        "users/moderators",
		"tags/go/info":            "tags/go/info",
		"posts/1%3B2":             "posts/{ids}",
	}
	for method, want := range tests {
		assert.Equal(t, want, BackoffKeyFor(method), method)
	}
}

func TestSiteScoped(t *testing.T) {
	assert.True(t, SiteScoped("questions/1"))
	assert.True(t, SiteScoped("/info"))
	assert.False(t, SiteScoped("sites"))
	assert.False(t, SiteScoped("filters/create"))
}

func TestRaw(t *testing.T) {
	client := stacman.NewClient("k1", stacman.WithBaseURL("https://example.test/2.3"), stacman.WithSite("superuser"))

	t.Run("adds site and key", func(t *testing.T) {
		raw := Raw(client, "/tags/go/info/", url.Values{"filter": {"default"}}).String()
		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/2.3/tags/go/info", parsed.Path)
		assert.Equal(t, "superuser", parsed.Query().Get("site"))
		assert.Equal(t, "k1", parsed.Query().Get("key"))
		assert.Equal(t, "default", parsed.Query().Get("filter"))
	})

	t.Run("explicit site wins", func(t *testing.T) {
		raw := Raw(client, "questions", url.Values{"site": {"askubuntu"}}).String()
		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "askubuntu", parsed.Query().Get("site"))
	})

	t.Run("network wide methods omit site", func(t *testing.T) {
		raw := Raw(client, "sites", nil).String()
		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		assert.False(t, parsed.Query().Has("site"))
	})
}
