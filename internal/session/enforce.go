package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// enforceMute keeps the mute policy applied for one session. It runs
// until the session it was started for is gone or its context is
// cancelled, whichever happens first. A transient failure never ends
// the loop; it sleeps and retries on the next sweep.
func (m *Manager) enforceMute(ctx context.Context, sess *activeSession) {
	for {
		interval := m.enforceTick(sess)
		if interval == 0 {
			return
		}
		if err := m.sleep(ctx, interval); err != nil {
			return
		}
	}
}

// enforceTick performs one sweep and reports how long to sleep before
// the next one, or 0 when the owning session is no longer active.
func (m *Manager) enforceTick(sess *activeSession) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guilds[sess.guildID]
	if g == nil || g.session != sess {
		return 0
	}

	// During a break there is nothing to enforce, but re-check soon so
	// focus re-enablement takes effect promptly.
	if !g.focusOn {
		return m.recheckEvery
	}

	members, err := m.gateway.ChannelMembers(sess.guildID, sess.voiceChannelID)
	if err != nil {
		log.Printf("session: enforcement sweep in guild %s: %v", sess.guildID, err)
		return m.enforceEvery
	}

	for _, member := range members {
		if member.Bot || member.Muted {
			continue
		}
		if err := m.gateway.SetMute(sess.guildID, member.UserID, true); err != nil {
			// Permission denials are retried on the next sweep;
			// anything else is surfaced in the log.
			if !errors.Is(err, domain.ErrPermissionDenied) {
				log.Printf("session: mute %s in guild %s: %v", member.UserID, sess.guildID, err)
			}
			continue
		}
		g.enforced[member.UserID] = struct{}{}
	}

	return m.enforceEvery
}
