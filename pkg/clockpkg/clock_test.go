package clockpkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeAdvanceFiresDueTimersInOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFake(start)

	var fired []string

	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "first") })
	clock.AfterFunc(time.Minute, func() { fired = append(fired, "late") })

	clock.Advance(5 * time.Second)

	require.Equal(t, []string{"first", "second"}, fired)
	require.Equal(t, start.Add(5*time.Second), clock.Now())
	require.Equal(t, 1, clock.Pending())
}

func TestFakeStop(t *testing.T) {
	clock := NewFake(time.Now())

	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	clock.Advance(time.Hour)
	require.False(t, fired)
	require.Zero(t, clock.Pending())
}
