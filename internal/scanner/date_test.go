package scanner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPSentinel/internal/testutil"
)

func TestCalendar_ResolveToken(t *testing.T) {
	cal := Calendar{Location: testutil.Taipei}
	d, err := cal.Resolve("250314")
	require.NoError(t, err)
	assert.Equal(t, testutil.Day(2025, 3, 14), d)
	assert.Equal(t, "2025-03-14", d.Format(DateLayout))

	for _, bad := range []string{"2503", "251340", "abcdef", "2025-03-14"} {
		_, err := cal.Resolve(bad)
		assert.True(t, errors.Is(err, ErrBadDateToken), bad)
	}
}

func TestCalendar_TodayRequiresClosedSession(t *testing.T) {
	cutoff, err := ParseClock("14:30")
	require.NoError(t, err)

	before := Calendar{Location: testutil.Taipei, SessionClose: cutoff, Now: func() time.Time {
		return time.Date(2025, 3, 14, 13, 0, 0, 0, testutil.Taipei)
	}}
	_, err = before.Resolve("")
	assert.True(t, errors.Is(err, ErrSessionNotClosed))

	after := before
	after.Now = func() time.Time {
		// 07:00 UTC is 15:00 in Taipei
		return time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)
	}
	d, err := after.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, testutil.Day(2025, 3, 14), d)

	// explicit tokens are never refused
	d, err = before.Resolve("250314")
	require.NoError(t, err)
	assert.Equal(t, testutil.Day(2025, 3, 14), d)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("13:45")
	require.NoError(t, err)
	assert.Equal(t, 13*time.Hour+45*time.Minute, d)

	_, err = ParseClock("1345")
	assert.Error(t, err)
}
