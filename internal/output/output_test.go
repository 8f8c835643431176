package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/store"
	"github.com/stacman/stacman/types"
)

func intPtr(v int) *int { return &v }

func sampleQuestions() *core.Envelope[types.Question] {
	return &core.Envelope[types.Question]{
		Items: []types.Question{
			{QuestionID: 11, Title: "How do I use|pipes?", Score: 4, AnswerCount: 2, IsAnswered: true, Tags: []string{"go", "shell"}},
			{QuestionID: 12, Title: strings.Repeat("x", 100)},
		},
		HasMore:        true,
		QuotaMax:       intPtr(300),
		QuotaRemaining: intPtr(250),
		Backoff:        intPtr(5),
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("yml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestQuestionsListingTable(t *testing.T) {
	rendered, err := Render(FormatTable, QuestionsListing(sampleQuestions()))
	require.NoError(t, err)
	require.Contains(t, rendered, "SCORE")
	require.Contains(t, rendered, "go, shell")
	require.Contains(t, strings.ToLower(rendered), "2 items, more available, quota 250/300, backoff 5s")
	require.Contains(t, rendered, strings.Repeat("x", cellLimit-3)+"...")
}

func TestQuestionsListingJSON(t *testing.T) {
	rendered, err := Render(FormatJSON, QuestionsListing(sampleQuestions()))
	require.NoError(t, err)
	require.Contains(t, rendered, "\"question_id\": 11")
	require.Contains(t, rendered, "\"has_more\": true")
}

func TestQuestionsListingYAML(t *testing.T) {
	rendered, err := Render(FormatYAML, QuestionsListing(sampleQuestions()))
	require.NoError(t, err)
	require.Contains(t, rendered, "question_id: 11")
	require.Contains(t, rendered, "quota_remaining: 250")
	require.Contains(t, rendered, "- go")
}

func TestMarkdownEscaping(t *testing.T) {
	rendered, err := Render(FormatMarkdown, QuestionsListing(sampleQuestions()))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "## Questions"))
	require.Contains(t, rendered, "| ID | Score | Answers | Answered | Title | Tags |")
	require.Contains(t, rendered, "How do I use\\|pipes?")
}

func TestRawListing(t *testing.T) {
	envelope := &core.Envelope[json.RawMessage]{
		Items: []json.RawMessage{
			json.RawMessage(`{ "tag_name" : "go" }`),
			json.RawMessage(`{"tag_name":"rust"}`),
		},
	}

	listing := RawListing("tags", envelope)
	require.Len(t, listing.Rows, 2)
	require.Equal(t, []string{"1", `{"tag_name":"go"}`}, listing.Rows[0])
	require.Equal(t, "2", listing.Rows[1][0])
	require.Equal(t, "2 items", listing.Footer)
}

func TestNilEnvelope(t *testing.T) {
	listing := UsersListing(nil)
	require.Empty(t, listing.Rows)

	rendered, err := Render(FormatTable, nil)
	require.NoError(t, err)
	require.Empty(t, rendered)
}

func TestBackoffsListing(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []store.BackoffRecord{
		{Key: "questions", NotBefore: now.Add(90 * time.Second), RecordedAt: now.Add(-time.Minute)},
		{Key: "users", NotBefore: now.Add(-time.Second), RecordedAt: now.Add(-time.Hour)},
	}

	listing := BackoffsListing(records, now)
	require.Equal(t, []string{"questions", "2025-01-01T12:01:30Z", "1m30s", "2025-01-01T11:59:00Z"}, listing.Rows[0])
	require.Equal(t, "0s", listing.Rows[1][2])
	require.Equal(t, "2 stored, 1 active", listing.Footer)
}

func TestOtherListings(t *testing.T) {
	answers := AnswersListing(&core.Envelope[types.Answer]{Items: []types.Answer{{
		AnswerID:     5,
		QuestionID:   11,
		IsAccepted:   true,
		Owner:        &types.ShallowUser{DisplayName: "ada"},
		CreationDate: types.NewUnixTime(time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)),
	}}})
	require.Equal(t, []string{"5", "11", "0", "yes", "ada", "2024-02-03"}, answers.Rows[0])

	sites := SitesListing(&core.Envelope[types.Site]{Items: []types.Site{{APISiteParameter: "stackoverflow", Name: "Stack Overflow"}}})
	require.Equal(t, "stackoverflow", sites.Rows[0][0])

	info := InfoListing(&core.Envelope[types.Info]{Items: []types.Info{{TotalQuestions: 10, QuestionsPerMinute: 1.5, APIRevision: "2024.1"}}})
	require.Equal(t, "1.50", info.Rows[0][4])
}

func TestFormatExtension(t *testing.T) {
	require.Equal(t, "json", FormatJSON.Extension())
	require.Equal(t, "yaml", FormatYAML.Extension())
	require.Equal(t, "md", FormatMarkdown.Extension())
	require.Equal(t, "txt", FormatTable.Extension())
}

func TestJSONKeepsHTML(t *testing.T) {
	listing := &Listing{Value: map[string]string{"title": "<b>A & B</b>"}}

	compact, err := (&JSONFormatter{}).Format(listing)
	require.NoError(t, err)
	require.Equal(t, `{"title":"<b>A & B</b>"}`, compact)

	empty, err := (&JSONFormatter{}).Format(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
