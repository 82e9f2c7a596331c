package discord

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/session"
)

const leaderboardLimit = 10

// Fixed user-facing replies; internal errors never leak past these.
const (
	msgGuildOnly     = "Use this command in a server."
	msgNoPermission  = "You do not have permission for this command."
	msgCommandFailed = "Command failed. Check bot permissions and logs."
)

// command binds a slash command to its required permission and handler.
type command struct {
	permission int64
	handle     func(i *discordgo.InteractionCreate) error
}

// Bot is the Discord transport: it registers the slash commands,
// relays voice-state events into the session manager and renders
// replies. All session semantics live in the session package.
type Bot struct {
	session  *discordgo.Session
	store    domain.StudyStore
	gateway  *Gateway
	sessions *session.Manager
	commands map[string]command
}

// New creates a new Bot instance
func New(token string, store domain.StudyStore) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	gateway := NewGateway(dg)

	b := &Bot{
		session:  dg,
		store:    store,
		gateway:  gateway,
		sessions: session.NewManager(store, gateway),
	}

	b.commands = map[string]command{
		"setup_study":        {permission: discordgo.PermissionManageServer, handle: b.handleSetupStudy},
		"start_study":        {permission: discordgo.PermissionVoiceMuteMembers, handle: b.handleStartStudy},
		"join_study":         {handle: b.handleJoinStudy},
		"end_study":          {permission: discordgo.PermissionVoiceMuteMembers, handle: b.handleEndStudy},
		"pomodoro_start":     {permission: discordgo.PermissionVoiceMuteMembers, handle: b.handlePomodoroStart},
		"pomodoro_stop":      {permission: discordgo.PermissionVoiceMuteMembers, handle: b.handlePomodoroStop},
		"leaderboard":        {handle: b.handleLeaderboard},
		"weekly_leaderboard": {handle: b.handleWeeklyLeaderboard},
		"weekly_reset":       {permission: discordgo.PermissionManageServer, handle: b.handleWeeklyReset},
		"my_study_time":      {handle: b.handleMyStudyTime},
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onVoiceStateUpdate)

	return b, nil
}

// Start opens the gateway connection and registers the command surface
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commandDefinitions); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Logged in as %s (ID: %s)", r.User.Username, r.User.ID)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	cmd, ok := b.commands[name]
	if !ok {
		return
	}

	if i.GuildID == "" || i.Member == nil {
		b.respond(i, msgGuildOnly, true)
		return
	}

	if cmd.permission != 0 && i.Member.Permissions&cmd.permission != cmd.permission {
		b.respond(i, msgNoPermission, true)
		return
	}

	if err := cmd.handle(i); err != nil {
		log.Printf("discord: %s failed in guild %s: %v", name, i.GuildID, err)
		b.respond(i, msgCommandFailed, true)
	}
}

// onVoiceStateUpdate forwards one presence change to the engine.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, ev *discordgo.VoiceStateUpdate) {
	var beforeChannelID string
	if ev.BeforeUpdate != nil {
		beforeChannelID = ev.BeforeUpdate.ChannelID
	}

	isBot := false
	if member, err := s.State.Member(ev.GuildID, ev.UserID); err == nil && member.User != nil {
		isBot = member.User.Bot
	}

	b.sessions.HandlePresence(session.PresenceUpdate{
		GuildID:         ev.GuildID,
		UserID:          ev.UserID,
		Bot:             isBot,
		BeforeChannelID: beforeChannelID,
		AfterChannelID:  ev.ChannelID,
		Muted:           ev.Mute,
	})
}

func (b *Bot) handleSetupStudy(i *discordgo.InteractionCreate) error {
	channelID, err := b.ensureStudyChannel(i.GuildID)
	if err != nil {
		return err
	}

	b.respond(i, fmt.Sprintf("Study room ready: <#%s>", channelID), true)
	return nil
}

func (b *Bot) handleStartStudy(i *discordgo.InteractionCreate) error {
	channelID, err := b.ensureStudyChannel(i.GuildID)
	if err != nil {
		return err
	}

	started, activeChannelID, err := b.sessions.Start(i.GuildID, channelID)
	if err != nil {
		return err
	}
	if !started {
		b.respond(i, "A study session is already active.", true)
		return nil
	}

	b.respond(i, fmt.Sprintf(
		"Study session started in <#%s>. Everyone in that channel will be server-muted.",
		activeChannelID), false)
	return nil
}

func (b *Bot) handleJoinStudy(i *discordgo.InteractionCreate) error {
	userID := i.Member.User.ID

	vs, err := b.session.State.VoiceState(i.GuildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		b.respond(i, "Join any voice channel first, then run this.", true)
		return nil
	}

	channelID, err := b.ensureStudyChannel(i.GuildID)
	if err != nil {
		return err
	}

	if err := b.gateway.MoveToChannel(i.GuildID, userID, channelID); err != nil {
		return err
	}

	b.respond(i, fmt.Sprintf("Moved you to <#%s>.", channelID), true)
	return nil
}

func (b *Bot) handleEndStudy(i *discordgo.InteractionCreate) error {
	// A running pomodoro must not keep driving a session we are ending.
	if err := b.sessions.StopPomodoro(i.GuildID); err != nil && !errors.Is(err, session.ErrNoPomodoro) {
		return err
	}

	duration, ok, err := b.sessions.Stop(i.GuildID, "study session ended")
	if err != nil {
		return err
	}
	if !ok {
		b.respond(i, "No active study session.", true)
		return nil
	}

	b.respond(i, fmt.Sprintf("Study session ended. Session duration: %s",
		session.FormatDuration(duration)), false)
	return nil
}

func (b *Bot) handlePomodoroStart(i *discordgo.InteractionCreate) error {
	if b.sessions.PomodoroRunning(i.GuildID) {
		b.respond(i, "A Pomodoro session is already running.", true)
		return nil
	}

	cfg := parsePomodoroOptions(i.ApplicationCommandData())
	cfg.TextChannelID = i.ChannelID

	channelID, err := b.ensureStudyChannel(i.GuildID)
	if err != nil {
		return err
	}

	// Reuse an already-active session; Start is an idempotent no-op then.
	if _, channelID, err = b.sessions.Start(i.GuildID, channelID); err != nil {
		return err
	}

	if err := b.sessions.StartPomodoro(i.GuildID, cfg); err != nil {
		if errors.Is(err, session.ErrPomodoroRunning) {
			b.respond(i, "A Pomodoro session is already running.", true)
			return nil
		}
		return err
	}

	b.respond(i, fmt.Sprintf(
		"Pomodoro started: %dm focus / %dm break for %d cycles in <#%s>.",
		cfg.WorkMinutes, cfg.BreakMinutes, cfg.Cycles, channelID), false)
	return nil
}

func (b *Bot) handlePomodoroStop(i *discordgo.InteractionCreate) error {
	if err := b.sessions.StopPomodoro(i.GuildID); err != nil {
		if errors.Is(err, session.ErrNoPomodoro) {
			b.respond(i, "No Pomodoro is running.", true)
			return nil
		}
		return err
	}

	b.respond(i, "Stopping Pomodoro...", false)
	return nil
}

func (b *Bot) handleLeaderboard(i *discordgo.InteractionCreate) error {
	entries, err := b.store.GetTopUsers(i.GuildID, leaderboardLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		b.respond(i, "No study data yet.", false)
		return nil
	}

	b.respond(i, renderLeaderboard(entries, b.displayName(i.GuildID), ""), false)
	return nil
}

func (b *Bot) handleWeeklyLeaderboard(i *discordgo.InteractionCreate) error {
	weekStart := domain.WeekStartUTC(time.Now())

	entries, err := b.store.GetWeeklyTopUsers(i.GuildID, weekStart, leaderboardLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		b.respond(i, fmt.Sprintf("No weekly study data yet for week starting %s.",
			weekStart.Format("2006-01-02")), false)
		return nil
	}

	header := fmt.Sprintf("Weekly leaderboard (week starting %s):", weekStart.Format("2006-01-02"))
	b.respond(i, renderLeaderboard(entries, b.displayName(i.GuildID), header), false)
	return nil
}

func (b *Bot) handleWeeklyReset(i *discordgo.InteractionCreate) error {
	weekStart := domain.WeekStartUTC(time.Now())

	deleted, err := b.store.ResetWeeklyData(i.GuildID, weekStart)
	if err != nil {
		return err
	}

	b.respond(i, fmt.Sprintf("Weekly data reset for week starting %s. Cleared %d entries.",
		weekStart.Format("2006-01-02"), deleted), true)
	return nil
}

func (b *Bot) handleMyStudyTime(i *discordgo.InteractionCreate) error {
	total, err := b.store.GetUserSeconds(i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}

	b.respond(i, fmt.Sprintf("Your total study time: %s", session.FormatDuration(total)), false)
	return nil
}

// displayName resolves a member's display name from the state cache,
// falling back to a stable placeholder for departed members.
func (b *Bot) displayName(guildID string) func(userID string) string {
	return func(userID string) string {
		member, err := b.session.State.Member(guildID, userID)
		if err != nil {
			return "User " + userID
		}
		if name := memberDisplayName(member); name != "" {
			return name
		}
		return "User " + userID
	}
}

func (b *Bot) respond(i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("discord: respond to %s: %v", i.ApplicationCommandData().Name, err)
	}
}
