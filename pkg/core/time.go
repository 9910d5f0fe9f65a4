package core

import (
	"encoding/json"
	"strconv"
	"time"
)

// UnixTime is a timestamp encoded as epoch seconds.
type UnixTime struct {
	time.Time
}

// MarshalJSON encodes the time as epoch seconds.
func (t UnixTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.Unix(), 10)), nil
}

// UnmarshalJSON decodes epoch seconds.
func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	t.Time = time.Unix(v, 0).UTC()
	return nil
}

// UnixMilli is a timestamp encoded as epoch milliseconds.
type UnixMilli struct {
	time.Time
}

// MarshalJSON encodes the time as epoch milliseconds.
func (t UnixMilli) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// UnmarshalJSON decodes epoch milliseconds.
func (t *UnixMilli) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	t.Time = time.UnixMilli(v).UTC()
	return nil
}
