package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/glebk/study-bot/internal/domain"
)

// Gateway implements domain.VoiceGateway on top of a discordgo session.
// Presence is read from the gateway state cache; mutations go through
// the REST API.
type Gateway struct {
	session *discordgo.Session
}

// NewGateway creates a new Gateway
func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

// ChannelMembers lists the current occupants of a voice channel
func (g *Gateway) ChannelMembers(guildID, channelID string) ([]domain.Member, error) {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild %s from state: %w", guildID, err)
	}

	var members []domain.Member
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}

		member, err := g.session.State.Member(guildID, vs.UserID)
		if err != nil {
			member, err = g.session.GuildMember(guildID, vs.UserID)
			if err != nil {
				// Occupant we cannot resolve; skip rather than fail
				// the whole enumeration.
				continue
			}
		}

		members = append(members, domain.Member{
			UserID:      vs.UserID,
			DisplayName: memberDisplayName(member),
			Bot:         member.User != nil && member.User.Bot,
			Muted:       vs.Mute,
		})
	}

	return members, nil
}

// SetMute applies or lifts a server mute
func (g *Gateway) SetMute(guildID, userID string, muted bool) error {
	if err := g.session.GuildMemberMute(guildID, userID, muted); err != nil {
		return classifyRESTError(err)
	}
	return nil
}

// MoveToChannel moves a connected member into a voice channel
func (g *Gateway) MoveToChannel(guildID, userID, channelID string) error {
	if err := g.session.GuildMemberMove(guildID, userID, &channelID); err != nil {
		return classifyRESTError(err)
	}
	return nil
}

// SendMessage posts a plain message to a text channel
func (g *Gateway) SendMessage(channelID, content string) error {
	if _, err := g.session.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// classifyRESTError maps Discord 403 responses onto the domain's
// permission sentinel so the core can treat them as expected.
func classifyRESTError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}
	return err
}

func memberDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}
