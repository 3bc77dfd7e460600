package ratelimit_test

import (
	"testing"
	"time"

	"github.com/inkwell-cms/auth-service/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	l := ratelimit.New(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("203.0.113.7", "/auth/login"))
	}
	require.False(t, l.Allow("203.0.113.7", "/auth/login"))
}

func TestKeysAreIndependent(t *testing.T) {
	l := ratelimit.New(1, time.Minute)

	require.True(t, l.Allow("203.0.113.7", "/auth/login"))
	require.False(t, l.Allow("203.0.113.7", "/auth/login"))

	// Different route, same IP.
	require.True(t, l.Allow("203.0.113.7", "/auth/refresh"))
	// Different IP, same route.
	require.True(t, l.Allow("203.0.113.8", "/auth/login"))
}

func TestWindowSlides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := ratelimit.New(2, time.Minute, ratelimit.WithNowFunc(func() time.Time { return now }))

	require.True(t, l.Allow("ip", "/r"))
	now = now.Add(30 * time.Second)
	require.True(t, l.Allow("ip", "/r"))
	require.False(t, l.Allow("ip", "/r"))

	// The first hit ages out of the window; one slot frees up.
	now = now.Add(31 * time.Second)
	require.True(t, l.Allow("ip", "/r"))
	require.False(t, l.Allow("ip", "/r"))
}

func TestSweepEvictsIdleKeys(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := ratelimit.New(5, time.Minute,
		ratelimit.WithNowFunc(func() time.Time { return now }),
		ratelimit.WithSweepInterval(10*time.Millisecond),
	)
	l.Start()
	defer l.Stop()

	require.True(t, l.Allow("ip-1", "/r"))
	require.True(t, l.Allow("ip-2", "/r"))
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	l.Start()
	l.Stop()
	l.Stop()
}
