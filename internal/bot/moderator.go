package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// sessionModerator performs automod actions through the REST client.
type sessionModerator struct {
	session *discordgo.Session
}

func (m sessionModerator) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return m.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (m sessionModerator) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := m.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m sessionModerator) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	return m.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (m sessionModerator) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return m.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}
