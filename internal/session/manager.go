package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

const (
	// enforceInterval is how long the enforcement loop sleeps between
	// sweeps while focus mode is on.
	enforceInterval = 10 * time.Second
	// recheckInterval is the shorter sleep used while focus mode is
	// off, so re-enablement is picked up promptly.
	recheckInterval = 5 * time.Second
)

// Manager owns all in-memory session state, partitioned per guild. It
// is the only mutator of that state: command handlers, presence events,
// the enforcement loops and the pomodoro schedulers all go through its
// mutex, so read-modify-write sequences never interleave.
type Manager struct {
	store   domain.StudyStore
	gateway domain.VoiceGateway

	mu     sync.Mutex
	guilds map[string]*guildState

	// Injected for tests; production uses the wall clock.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	enforceEvery time.Duration
	recheckEvery time.Duration
}

// guildState is the per-guild partition. Fields other than pomodoro are
// only meaningful while session is non-nil.
type guildState struct {
	session  *activeSession
	recordID int64
	joinedAt map[string]time.Time
	enforced map[string]struct{}
	focusOn  bool
	pomodoro *pomodoroRun
}

// activeSession ties a running session to its enforcement loop. The
// session owns the loop: cancelEnforce is called exactly once, on stop.
type activeSession struct {
	guildID        string
	voiceChannelID string
	startedAt      time.Time
	cancelEnforce  context.CancelFunc
}

// NewManager creates a session manager backed by the given store and
// chat platform gateway.
func NewManager(store domain.StudyStore, gateway domain.VoiceGateway) *Manager {
	return &Manager{
		store:        store,
		gateway:      gateway,
		guilds:       make(map[string]*guildState),
		now:          time.Now,
		sleep:        sleepContext,
		enforceEvery: enforceInterval,
		recheckEvery: recheckInterval,
	}
}

// guild returns the state partition for guildID, creating it if needed.
// Callers must hold m.mu.
func (m *Manager) guild(guildID string) *guildState {
	g, ok := m.guilds[guildID]
	if !ok {
		g = &guildState{}
		m.guilds[guildID] = g
	}
	return g
}

// Start begins a study session for the guild in the given voice
// channel. If a session is already active it is left untouched and
// started is false, with the existing channel returned.
func (m *Manager) Start(guildID, voiceChannelID string) (started bool, channelID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guild(guildID)
	if g.session != nil {
		return false, g.session.voiceChannelID, nil
	}

	startedAt := m.now()

	members, err := m.gateway.ChannelMembers(guildID, voiceChannelID)
	if err != nil {
		return false, "", fmt.Errorf("failed to list channel members: %w", err)
	}

	recordID, err := m.store.CreateSessionRecord(guildID, voiceChannelID, startedAt)
	if err != nil {
		return false, "", fmt.Errorf("failed to create session record: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &activeSession{
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		startedAt:      startedAt,
		cancelEnforce:  cancel,
	}

	g.session = sess
	g.recordID = recordID
	g.focusOn = true
	g.joinedAt = make(map[string]time.Time, len(members))
	g.enforced = make(map[string]struct{})
	for _, member := range members {
		if member.Bot {
			continue
		}
		g.joinedAt[member.UserID] = startedAt
	}

	go m.enforceMute(loopCtx, sess)

	log.Printf("session: started in guild %s, channel %s", guildID, voiceChannelID)
	return true, voiceChannelID, nil
}

// Stop ends the active session, settling remaining ledger entries and
// unmuting everyone this engine muted. Returns ok=false when no session
// is active; that path performs no mutation, so Stop is safe to race
// with the pomodoro scheduler's own cleanup.
func (m *Manager) Stop(guildID, reason string) (durationSeconds int64, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guilds[guildID]
	if g == nil || g.session == nil {
		return 0, false, nil
	}

	sess := g.session
	g.session = nil

	endedAt := m.now()
	duration := int64(endedAt.Sub(sess.startedAt) / time.Second)

	for userID := range g.joinedAt {
		m.accrueLocked(g, guildID, userID, endedAt)
	}

	members, err := m.gateway.ChannelMembers(guildID, sess.voiceChannelID)
	if err != nil {
		log.Printf("session: list members while stopping guild %s: %v", guildID, err)
	}
	for _, member := range members {
		if member.Bot || !member.Muted {
			continue
		}
		if _, enforced := g.enforced[member.UserID]; !enforced {
			continue
		}
		if err := m.gateway.SetMute(guildID, member.UserID, false); err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
			log.Printf("session: unmute %s in guild %s: %v", member.UserID, guildID, err)
		}
	}

	g.joinedAt = nil
	g.enforced = nil
	g.focusOn = false

	sess.cancelEnforce()

	recordID := g.recordID
	g.recordID = 0

	log.Printf("session: stopped in guild %s (%s) after %ds", guildID, reason, duration)

	if err := m.store.CloseSessionRecord(recordID, endedAt, duration); err != nil {
		return duration, true, fmt.Errorf("failed to close session record: %w", err)
	}

	return duration, true, nil
}

// ActiveChannel reports the voice channel of the guild's running
// session, if any.
func (m *Manager) ActiveChannel(guildID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guilds[guildID]
	if g == nil || g.session == nil {
		return "", false
	}
	return g.session.voiceChannelID, true
}

// SetFocusMode toggles mute enforcement for the guild's active session.
// Without a session it is a no-op. Enabling re-seeds the presence
// ledger at the current instant; disabling settles it.
func (m *Manager) SetFocusMode(guildID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setFocusLocked(guildID, enabled)
}

func (m *Manager) setFocusLocked(guildID string, enabled bool) error {
	g := m.guilds[guildID]
	if g == nil || g.session == nil {
		return nil
	}

	now := m.now()
	g.focusOn = enabled

	members, err := m.gateway.ChannelMembers(guildID, g.session.voiceChannelID)
	if err != nil {
		return fmt.Errorf("failed to list channel members: %w", err)
	}

	if enabled {
		g.joinedAt = make(map[string]time.Time, len(members))
		for _, member := range members {
			if member.Bot {
				continue
			}
			g.joinedAt[member.UserID] = now
			if member.Muted {
				continue
			}
			if err := m.gateway.SetMute(guildID, member.UserID, true); err != nil {
				if !errors.Is(err, domain.ErrPermissionDenied) {
					log.Printf("session: mute %s in guild %s: %v", member.UserID, guildID, err)
				}
				continue
			}
			g.enforced[member.UserID] = struct{}{}
		}
		return nil
	}

	// Focus window is over: settle everyone still in the ledger, then
	// lift only the mutes this engine applied.
	for userID := range g.joinedAt {
		m.accrueLocked(g, guildID, userID, now)
	}
	for _, member := range members {
		if member.Bot || !member.Muted {
			continue
		}
		if _, enforced := g.enforced[member.UserID]; !enforced {
			continue
		}
		if err := m.gateway.SetMute(guildID, member.UserID, false); err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
			log.Printf("session: unmute %s in guild %s: %v", member.UserID, guildID, err)
		}
	}
	return nil
}

// accrueLocked settles one ledger entry: removes the join instant and
// credits whole elapsed seconds to the durable totals. No-op when the
// user is not in the ledger or no whole second has elapsed. Callers
// must hold m.mu.
func (m *Manager) accrueLocked(g *guildState, guildID, userID string, now time.Time) {
	joinedAt, ok := g.joinedAt[userID]
	if !ok {
		return
	}
	delete(g.joinedAt, userID)

	seconds := int64(now.Sub(joinedAt) / time.Second)
	if seconds <= 0 {
		return
	}

	// One failed write must not drop the remaining ledger entries.
	if err := m.store.AddStudySeconds(guildID, userID, seconds, now); err != nil {
		log.Printf("session: accrue %ds for %s in guild %s: %v", seconds, userID, guildID, err)
	}
}

// PresenceUpdate carries one voice-state change from the platform.
type PresenceUpdate struct {
	GuildID         string
	UserID          string
	Bot             bool
	BeforeChannelID string
	AfterChannelID  string
	Muted           bool
}

// HandlePresence reacts to a member entering or leaving the monitored
// voice channel. Changes elsewhere, bots and guilds without an active
// session are ignored.
func (m *Manager) HandlePresence(ev PresenceUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guilds[ev.GuildID]
	if g == nil || g.session == nil || ev.Bot {
		return
	}

	studyChannelID := g.session.voiceChannelID
	now := m.now()

	left := ev.BeforeChannelID == studyChannelID
	joined := ev.AfterChannelID == studyChannelID

	if left && !joined {
		m.accrueLocked(g, ev.GuildID, ev.UserID, now)
		if _, enforced := g.enforced[ev.UserID]; enforced && ev.Muted {
			if err := m.gateway.SetMute(ev.GuildID, ev.UserID, false); err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
				log.Printf("session: unmute %s leaving guild %s: %v", ev.UserID, ev.GuildID, err)
			}
		}
	}

	if joined && !left && g.focusOn {
		g.joinedAt[ev.UserID] = now
		if !ev.Muted {
			if err := m.gateway.SetMute(ev.GuildID, ev.UserID, true); err != nil {
				if !errors.Is(err, domain.ErrPermissionDenied) {
					log.Printf("session: mute %s joining guild %s: %v", ev.UserID, ev.GuildID, err)
				}
				return
			}
			g.enforced[ev.UserID] = struct{}{}
		}
	}
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
