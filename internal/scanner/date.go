package scanner

import (
	"errors"
	"fmt"
	"time"
)

const (
	// TokenLayout is the YYMMDD date token used by commands.
	TokenLayout = "060102"
	// DateLayout is the canonical output date.
	DateLayout = "2006-01-02"
)

var (
	// ErrBadDateToken means the token is not a valid YYMMDD date.
	ErrBadDateToken = errors.New("date must be YYMMDD")
	// ErrSessionNotClosed means "today" was requested before the session close cutoff.
	ErrSessionNotClosed = errors.New("today's session has not closed yet")
)

// Calendar resolves date tokens in the market timezone.
type Calendar struct {
	Location     *time.Location
	SessionClose time.Duration // offset from local midnight after which today's bar is final
	Now          func() time.Time
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Resolve turns a YYMMDD token into local midnight of that date. An empty
// token means today, which is refused before the session close cutoff.
func (c Calendar) Resolve(token string) (time.Time, error) {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	if token != "" {
		d, err := time.ParseInLocation(TokenLayout, token, loc)
		if err != nil || len(token) != len(TokenLayout) {
			return time.Time{}, fmt.Errorf("%q: %w", token, ErrBadDateToken)
		}
		return d, nil
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now().In(loc)
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	if t.Before(today.Add(c.SessionClose)) {
		return time.Time{}, fmt.Errorf("%s before %s: %w", t.Format("15:04"), today.Add(c.SessionClose).Format("15:04"), ErrSessionNotClosed)
	}
	return today, nil
}
