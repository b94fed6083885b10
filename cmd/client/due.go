package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDue accepts a date (2006-01-02), an RFC 3339 timestamp or an English
// phrase such as "next friday" or "in 3 days", relative to now.
func parseDue(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return &t, nil
		}
	}
	r, err := dueParser.Parse(s, now)
	if err != nil {
		return nil, fmt.Errorf("parse due date %q: %w", s, err)
	}
	if r == nil {
		return nil, fmt.Errorf("parse due date %q: not a date", s)
	}
	t := r.Time
	return &t, nil
}
