package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/glebk/study-bot/internal/domain"
)

const (
	defaultCategoryName = "Study Sessions"
	defaultVoiceName    = "Focused Study Room"
)

// ensureStudyChannel returns the guild's shared study voice channel,
// provisioning the category and channel when missing and persisting
// their ids for reuse.
func (b *Bot) ensureStudyChannel(guildID string) (string, error) {
	cfg, err := b.store.GetGuildConfig(guildID)
	if err != nil {
		return "", err
	}

	if cfg != nil && cfg.VoiceChannelID != "" {
		if ch, err := b.session.State.Channel(cfg.VoiceChannelID); err == nil && ch.Type == discordgo.ChannelTypeGuildVoice {
			return ch.ID, nil
		}
	}

	category, err := b.ensureStudyCategory(guildID, cfg)
	if err != nil {
		return "", err
	}

	// The @everyone role shares the guild's id. Members may connect but
	// not speak; the session engine handles muting of those who can.
	voice, err := b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     defaultVoiceName,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: category.ID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:    guildID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionVoiceConnect,
				Deny:  discordgo.PermissionVoiceSpeak,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create study voice channel: %w", err)
	}

	if err := b.store.UpsertGuildConfig(guildID, voice.ID, category.ID); err != nil {
		return "", err
	}

	return voice.ID, nil
}

// ensureStudyCategory resolves the configured category, falls back to
// one with the default name, and creates it as a last resort.
func (b *Bot) ensureStudyCategory(guildID string, cfg *domain.GuildConfig) (*discordgo.Channel, error) {
	if cfg != nil && cfg.CategoryID != "" {
		if ch, err := b.session.State.Channel(cfg.CategoryID); err == nil && ch.Type == discordgo.ChannelTypeGuildCategory {
			return ch, nil
		}
	}

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == defaultCategoryName {
			return ch, nil
		}
	}

	category, err := b.session.GuildChannelCreate(guildID, defaultCategoryName, discordgo.ChannelTypeGuildCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to create study category: %w", err)
	}
	return category, nil
}
