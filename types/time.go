package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// UnixTime is a timestamp the API encodes as whole seconds since the epoch.
type UnixTime struct {
	time.Time
}

// NewUnixTime truncates t to whole seconds in UTC.
func NewUnixTime(t time.Time) UnixTime {
	return UnixTime{Time: t.UTC().Truncate(time.Second)}
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	if u.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(u.Unix(), 10)), nil
}

func (u *UnixTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		u.Time = time.Time{}
		return nil
	}

	var seconds int64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	u.Time = time.Unix(seconds, 0).UTC()
	return nil
}
