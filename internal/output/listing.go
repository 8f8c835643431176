package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/store"
	"github.com/stacman/stacman/types"
)

const cellLimit = 72

// Listing is a format-neutral view of a response. Tabular formats use
// Columns and Rows; structured formats encode Value as-is.
type Listing struct {
	Title   string
	Columns []string
	Rows    [][]string
	Footer  string
	Value   any
}

// summary describes the paging and quota fields of an envelope.
func summary[T any](envelope *core.Envelope[T]) string {
	if envelope == nil {
		return ""
	}

	parts := []string{fmt.Sprintf("%d items", len(envelope.Items))}
	if envelope.HasMore {
		parts = append(parts, "more available")
	}
	if envelope.QuotaRemaining != nil && envelope.QuotaMax != nil {
		parts = append(parts, fmt.Sprintf("quota %d/%d", *envelope.QuotaRemaining, *envelope.QuotaMax))
	}
	if backoff := envelope.BackoffDuration(); backoff > 0 {
		parts = append(parts, "backoff "+backoff.String())
	}
	return strings.Join(parts, ", ")
}

func fromEnvelope[T any](title string, envelope *core.Envelope[T], columns []string, row func(T) []string) *Listing {
	listing := &Listing{
		Title:   title,
		Columns: columns,
		Footer:  summary(envelope),
		Value:   envelope,
	}
	if envelope == nil {
		return listing
	}
	for _, item := range envelope.Items {
		listing.Rows = append(listing.Rows, row(item))
	}
	return listing
}

func QuestionsListing(envelope *core.Envelope[types.Question]) *Listing {
	return fromEnvelope("Questions", envelope,
		[]string{"ID", "Score", "Answers", "Answered", "Title", "Tags"},
		func(q types.Question) []string {
			return []string{
				strconv.Itoa(q.QuestionID),
				strconv.Itoa(q.Score),
				strconv.Itoa(q.AnswerCount),
				yesNo(q.IsAnswered),
				truncate(q.Title),
				strings.Join(q.Tags, ", "),
			}
		})
}

func AnswersListing(envelope *core.Envelope[types.Answer]) *Listing {
	return fromEnvelope("Answers", envelope,
		[]string{"ID", "Question", "Score", "Accepted", "Owner", "Created"},
		func(a types.Answer) []string {
			return []string{
				strconv.Itoa(a.AnswerID),
				strconv.Itoa(a.QuestionID),
				strconv.Itoa(a.Score),
				yesNo(a.IsAccepted),
				ownerName(a.Owner),
				formatDate(a.CreationDate),
			}
		})
}

func UsersListing(envelope *core.Envelope[types.User]) *Listing {
	return fromEnvelope("Users", envelope,
		[]string{"ID", "Name", "Reputation", "Type", "Location"},
		func(u types.User) []string {
			return []string{
				strconv.Itoa(u.UserID),
				truncate(u.DisplayName),
				strconv.Itoa(u.Reputation),
				string(u.UserType),
				truncate(u.Location),
			}
		})
}

func SitesListing(envelope *core.Envelope[types.Site]) *Listing {
	return fromEnvelope("Sites", envelope,
		[]string{"Parameter", "Name", "Type", "State", "URL"},
		func(s types.Site) []string {
			return []string{
				s.APISiteParameter,
				truncate(s.Name),
				string(s.SiteType),
				string(s.SiteState),
				s.SiteURL,
			}
		})
}

func InfoListing(envelope *core.Envelope[types.Info]) *Listing {
	return fromEnvelope("Site Info", envelope,
		[]string{"Questions", "Unanswered", "Answers", "Users", "Questions/min", "API Revision"},
		func(i types.Info) []string {
			return []string{
				strconv.Itoa(i.TotalQuestions),
				strconv.Itoa(i.TotalUnanswered),
				strconv.Itoa(i.TotalAnswers),
				strconv.Itoa(i.TotalUsers),
				strconv.FormatFloat(i.QuestionsPerMinute, 'f', 2, 64),
				i.APIRevision,
			}
		})
}

// RawListing renders items of unknown shape as compact JSON.
func RawListing(title string, envelope *core.Envelope[json.RawMessage]) *Listing {
	return fromEnvelope(title, envelope, []string{"#", "Item"},
		func() func(json.RawMessage) []string {
			index := 0
			return func(item json.RawMessage) []string {
				index++
				return []string{strconv.Itoa(index), truncate(compactJSON(item))}
			}
		}())
}

// BackoffsListing renders persisted backoff records.
func BackoffsListing(records []store.BackoffRecord, now time.Time) *Listing {
	listing := &Listing{
		Title:   "Backoffs",
		Columns: []string{"Key", "Not Before", "Remaining", "Recorded"},
		Value:   records,
	}
	active := 0
	for _, record := range records {
		if record.Remaining(now) > 0 {
			active++
		}
		listing.Rows = append(listing.Rows, []string{
			record.Key,
			record.NotBefore.UTC().Format(time.RFC3339),
			record.Remaining(now).Round(time.Second).String(),
			record.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	listing.Footer = fmt.Sprintf("%d stored, %d active", len(records), active)
	return listing
}

func ownerName(owner *types.ShallowUser) string {
	if owner == nil {
		return ""
	}
	return truncate(owner.DisplayName)
}

func formatDate(t types.UnixTime) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func truncate(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= cellLimit {
		return value
	}
	return string(runes[:cellLimit-3]) + "..."
}
