package domain

import "errors"

// ErrPermissionDenied is returned by VoiceGateway implementations when
// the chat platform refuses a mute, unmute or move action.
var ErrPermissionDenied = errors.New("permission denied")

// Member is a voice-channel occupant as seen by the chat platform
type Member struct {
	UserID      string
	DisplayName string
	Bot         bool
	Muted       bool // server-side mute
}

// VoiceGateway is the narrow slice of the chat platform the session
// engine needs: who is in a voice channel, server mute, moving users
// and posting announcements. Everything else stays in the adapter.
type VoiceGateway interface {
	ChannelMembers(guildID, channelID string) ([]Member, error)
	SetMute(guildID, userID string, muted bool) error
	MoveToChannel(guildID, userID, channelID string) error
	SendMessage(channelID, content string) error
}
