package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Builder assembles a method URL and its query string. Unset values (empty
// strings, nil pointers, zero times, empty slices) are skipped.
type Builder struct {
	base   string
	method string
	params url.Values
}

func NewBuilder(baseURL, method string) *Builder {
	return &Builder{
		base:   strings.TrimRight(baseURL, "/"),
		method: strings.Trim(method, "/"),
		params: url.Values{},
	}
}

// Add sets name to value. Slices are joined with ";", times are sent as unix
// seconds and booleans as "true"/"false".
func (b *Builder) Add(name string, value any) *Builder {
	if encoded, ok := encodeParam(value); ok {
		b.params.Set(name, encoded)
	}
	return b
}

// Method returns the method path without the base URL.
func (b *Builder) Method() string {
	return b.method
}

// Param returns the encoded value of a parameter, or "".
func (b *Builder) Param(name string) string {
	return b.params.Get(name)
}

func (b *Builder) String() string {
	u := b.base + "/" + b.method
	if len(b.params) == 0 {
		return u
	}
	return u + "?" + b.params.Encode()
}

func encodeParam(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case int:
		return strconv.Itoa(v), true
	case *int:
		if v == nil {
			return "", false
		}
		return strconv.Itoa(*v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	case *bool:
		if v == nil {
			return "", false
		}
		return strconv.FormatBool(*v), true
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return strconv.FormatInt(v.Unix(), 10), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return "", false
		}
		return strconv.FormatInt(v.Unix(), 10), true
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return strings.Join(v, ";"), true
	case []int:
		if len(v) == 0 {
			return "", false
		}
		return joinInts(v), true
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	default:
		return fmt.Sprint(v), true
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ";")
}

// Int returns a pointer to v, for optional integer options.
func Int(v int) *int {
	return &v
}

// String returns a pointer to v, for optional string options.
func String(v string) *string {
	return &v
}

// Time returns a pointer to v, for optional date options.
func Time(v time.Time) *time.Time {
	return &v
}
