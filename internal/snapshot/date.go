package snapshot

import (
	"fmt"
	"time"
)

// DateLayout is the layout of snapshot keys (YYYYMMDD).
const DateLayout = "20060102"

// DateKey returns the snapshot key for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate validates a snapshot key and returns the calendar day it names.
func ParseDate(key string) (time.Time, error) {
	t, err := time.Parse(DateLayout, key)
	if err != nil || len(key) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("invalid snapshot date %q: expected YYYYMMDD", key)
	}
	return t, nil
}

func validDate(key string) bool {
	_, err := ParseDate(key)
	return err == nil
}
