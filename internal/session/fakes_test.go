package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// Hand-rolled fakes for the manager's collaborators.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeGateway struct {
	mu       sync.Mutex
	members  map[string][]domain.Member // guildID/channelID -> occupants
	denyMute map[string]bool            // userID -> always permission-denied
	messages map[string][]string        // channelID -> sent messages
	moves    []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		members:  make(map[string][]domain.Member),
		denyMute: make(map[string]bool),
		messages: make(map[string][]string),
	}
}

func channelKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

func (f *fakeGateway) addMember(guildID, channelID string, m domain.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := channelKey(guildID, channelID)
	f.members[key] = append(f.members[key], m)
}

func (f *fakeGateway) setMuted(userID string, muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, members := range f.members {
		for i := range members {
			if members[i].UserID == userID {
				members[i].Muted = muted
			}
		}
		f.members[key] = members
	}
}

func (f *fakeGateway) isMuted(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, members := range f.members {
		for _, m := range members {
			if m.UserID == userID {
				return m.Muted
			}
		}
	}
	return false
}

func (f *fakeGateway) messagesTo(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages[channelID]))
	copy(out, f.messages[channelID])
	return out
}

func (f *fakeGateway) ChannelMembers(guildID, channelID string) ([]domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.members[channelKey(guildID, channelID)]
	out := make([]domain.Member, len(members))
	copy(out, members)
	return out, nil
}

func (f *fakeGateway) SetMute(guildID, userID string, muted bool) error {
	f.mu.Lock()
	if f.denyMute[userID] {
		f.mu.Unlock()
		return fmt.Errorf("%w: missing mute permission", domain.ErrPermissionDenied)
	}
	f.mu.Unlock()
	f.setMuted(userID, muted)
	return nil
}

func (f *fakeGateway) MoveToChannel(guildID, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, userID+"->"+channelID)
	return nil
}

func (f *fakeGateway) SendMessage(channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channelID] = append(f.messages[channelID], content)
	return nil
}

type sessionRecord struct {
	id             int64
	guildID        string
	voiceChannelID string
	startedAt      time.Time
	endedAt        time.Time
	duration       int64
	closed         bool
}

type fakeStore struct {
	mu      sync.Mutex
	configs map[string]domain.GuildConfig
	records []*sessionRecord
	total   map[string]int64 // guild|user
	weekly  map[string]int64 // guild|user|weekStart
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: make(map[string]domain.GuildConfig),
		total:   make(map[string]int64),
		weekly:  make(map[string]int64),
	}
}

func (f *fakeStore) totalFor(guildID, userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total[guildID+"|"+userID]
}

func (f *fakeStore) weeklyFor(guildID, userID string, weekStart time.Time) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weekly[guildID+"|"+userID+"|"+weekStart.Format("2006-01-02")]
}

func (f *fakeStore) sessionRecords() []sessionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sessionRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out
}

func (f *fakeStore) UpsertGuildConfig(guildID, voiceChannelID, categoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[guildID] = domain.GuildConfig{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		CategoryID:     categoryID,
	}
	return nil
}

func (f *fakeStore) GetGuildConfig(guildID string) (*domain.GuildConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[guildID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (f *fakeStore) CreateSessionRecord(guildID, voiceChannelID string, startedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record := &sessionRecord{
		id:             int64(len(f.records) + 1),
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		startedAt:      startedAt,
	}
	f.records = append(f.records, record)
	return record.id, nil
}

func (f *fakeStore) CloseSessionRecord(recordID int64, endedAt time.Time, durationSeconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.id == recordID {
			r.endedAt = endedAt
			r.duration = durationSeconds
			r.closed = true
			return nil
		}
	}
	return fmt.Errorf("no session record %d", recordID)
}

func (f *fakeStore) AddStudySeconds(guildID, userID string, seconds int64, at time.Time) error {
	if seconds <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	week := domain.WeekStartUTC(at).Format("2006-01-02")
	f.total[guildID+"|"+userID] += seconds
	f.weekly[guildID+"|"+userID+"|"+week] += seconds
	return nil
}

func (f *fakeStore) GetTopUsers(guildID string, limit int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (f *fakeStore) GetWeeklyTopUsers(guildID string, weekStart time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (f *fakeStore) ResetWeeklyData(guildID string, weekStart time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) GetUserSeconds(guildID, userID string) (int64, error) {
	return f.totalFor(guildID, userID), nil
}
