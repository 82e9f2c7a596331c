package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/domain"
)

// tickingSleep replaces the manager's sleep hook with one the test
// drives explicitly. Requested intervals are recorded.
type tickingSleep struct {
	mu        sync.Mutex
	ticks     chan struct{}
	intervals []time.Duration
}

func newTickingSleep() *tickingSleep {
	return &tickingSleep{ticks: make(chan struct{})}
}

func (s *tickingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.intervals = append(s.intervals, d)
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ticks:
		return nil
	}
}

func (s *tickingSleep) requested() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.intervals))
	copy(out, s.intervals)
	return out
}

func TestEnforcementRemutesDrifters(t *testing.T) {
	m, _, gateway, _ := newTestManager(t)
	ticker := newTickingSleep()
	m.sleep = ticker.sleep

	gateway.addMember(testGuild, testChannel, domain.Member{UserID: "alice"})

	_, _, err := m.Start(testGuild, testChannel)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return gateway.isMuted("alice") },
		time.Second, time.Millisecond)

	// alice unmutes herself between sweeps.
	gateway.setMuted("alice", false)
	ticker.ticks <- struct{}{}

	require.Eventually(t, func() bool { return gateway.isMuted("alice") },
		time.Second, time.Millisecond)
}

func TestEnforcementIntervalTracksFocusMode(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ticker := newTickingSleep()
	m.sleep = ticker.sleep

	_, _, err := m.Start(testGuild, testChannel)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(ticker.requested()) == 1 },
		time.Second, time.Millisecond)
	assert.Equal(t, enforceInterval, ticker.requested()[0])

	require.NoError(t, m.SetFocusMode(testGuild, false))
	ticker.ticks <- struct{}{}

	require.Eventually(t, func() bool { return len(ticker.requested()) == 2 },
		time.Second, time.Millisecond)
	assert.Equal(t, recheckInterval, ticker.requested()[1])
}

func TestEnforcementSkipsMutingDuringBreak(t *testing.T) {
	m, _, gateway, _ := newTestManager(t)
	ticker := newTickingSleep()
	m.sleep = ticker.sleep

	_, _, err := m.Start(testGuild, testChannel)
	require.NoError(t, err)
	require.NoError(t, m.SetFocusMode(testGuild, false))

	gateway.addMember(testGuild, testChannel, domain.Member{UserID: "bob"})
	ticker.ticks <- struct{}{}

	assert.Never(t, func() bool { return gateway.isMuted("bob") },
		50*time.Millisecond, 5*time.Millisecond)
}

func TestEnforcementSurvivesPermissionDenied(t *testing.T) {
	m, _, gateway, _ := newTestManager(t)
	ticker := newTickingSleep()
	m.sleep = ticker.sleep

	gateway.addMember(testGuild, testChannel, domain.Member{UserID: "admin"})
	gateway.addMember(testGuild, testChannel, domain.Member{UserID: "bob"})
	gateway.denyMute["admin"] = true

	_, _, err := m.Start(testGuild, testChannel)
	require.NoError(t, err)

	// The denied member does not abort the sweep; bob still gets muted
	// and the loop keeps asking to be rescheduled.
	require.Eventually(t, func() bool { return gateway.isMuted("bob") },
		time.Second, time.Millisecond)
	assert.False(t, gateway.isMuted("admin"))

	ticker.ticks <- struct{}{}
	require.Eventually(t, func() bool { return len(ticker.requested()) >= 2 },
		time.Second, time.Millisecond)
}

func TestEnforcementStopsWithSession(t *testing.T) {
	m, _, gateway, _ := newTestManager(t)
	ticker := newTickingSleep()
	m.sleep = ticker.sleep

	gateway.addMember(testGuild, testChannel, domain.Member{UserID: "alice"})

	_, _, err := m.Start(testGuild, testChannel)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return gateway.isMuted("alice") },
		time.Second, time.Millisecond)

	_, ok, err := m.Stop(testGuild, "session ended")
	require.NoError(t, err)
	require.True(t, ok)

	// With the session gone the loop is cancelled: alice can unmute
	// freely and nothing re-mutes her.
	gateway.setMuted("alice", false)
	assert.Never(t, func() bool { return gateway.isMuted("alice") },
		50*time.Millisecond, 5*time.Millisecond)
}
