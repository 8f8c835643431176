package api

import (
	"net/url"
	"strings"

	"github.com/stacman/stacman"
)

// BackoffKeyFor derives a backoff key from a method path by replacing id
// lists with {ids}, e.g. "questions/1;2/answers" becomes
// "questions/{ids}/answers". The keys match the ones the typed resources use.
func BackoffKeyFor(method string) string {
	segments := strings.Split(strings.Trim(method, "/"), "/")
	for i, segment := range segments {
		if isIDList(segment) {
			segments[i] = "{ids}"
		}
	}
	return strings.Join(segments, "/")
}

func isIDList(segment string) bool {
	if segment == "" {
		return false
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		decoded = segment
	}
	for _, part := range strings.Split(decoded, ";") {
		if part == "" {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// SiteScoped reports whether a method takes a site parameter. Network wide
// methods reject one.
func SiteScoped(method string) bool {
	root := strings.Trim(method, "/")
	if i := strings.IndexByte(root, '/'); i >= 0 {
		root = root[:i]
	}
	switch root {
	case "sites", "errors", "filters", "apps", "access-tokens":
		return false
	default:
		return true
	}
}

// Raw builds the URL of an arbitrary method. The client's site is added to
// site scoped methods unless params already name one.
func Raw(client *stacman.Client, method string, params url.Values) *Builder {
	method = strings.Trim(method, "/")
	b := NewBuilder(client.BaseURL(), method)
	for name, values := range params {
		if len(values) > 0 {
			b.Add(name, strings.Join(values, ";"))
		}
	}
	if b.Param("site") == "" && SiteScoped(method) {
		b.Add("site", client.Site())
	}
	if b.Param("key") == "" {
		b.Add("key", client.Key())
	}
	return b
}
