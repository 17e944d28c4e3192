package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"warden/internal/analytics"
	"warden/internal/automod"
	"warden/internal/config"
	"warden/internal/moderation"
	"warden/internal/modules/antispam"
	"warden/internal/modules/audit"
	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const noticeWindow = 10 * time.Minute

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	engine    *automod.Engine
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
	scheduler *cron.Cron
	noticeMu  sync.Mutex
	notices   map[string]*noticeAggregate
}

// noticeAggregate folds repeated violations by the same user and rule into
// one log channel embed.
type noticeAggregate struct {
	channelID string
	messageID string
	count     int
	lastAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, counters antispam.CounterStore, auditLogger *audit.Logger, analyticsSvc *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsSvc,
		session:   session,
		notices:   make(map[string]*noticeAggregate),
	}

	dispatcher := automod.NewDispatcher(sessionModerator{session: session}, auditLogger, logger, cfg.Automod.NoticeTTL())
	b.engine = automod.New(store, store, automod.DefaultDetectors(counters), dispatcher, automod.Options{
		RuleCacheSize: cfg.Automod.RuleCacheSize,
		RuleCacheTTL:  cfg.Automod.RuleCacheTTL(),
	}, logger)

	if b.audit != nil {
		b.audit.SetNotifier(b.notifyViolation)
	}
	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startDailySummary()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	if b.scheduler != nil {
		select {
		case <-b.scheduler.Stop().Done():
		case <-ctx.Done():
		}
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil {
		return
	}

	ctx := context.Background()
	message := toMessage(msg.Message)
	if message.AuthorBot || message.GuildID == "" {
		return
	}
	message.AuthorAdmin = b.isAdmin(msg.GuildID, msg.Author.ID, msg.Member)
	b.engine.CheckMessage(ctx, message, b.isPremium(ctx, msg.GuildID))
}

func toMessage(msg *discordgo.Message) moderation.Message {
	out := moderation.Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
		Content:   msg.Content,
	}
	if msg.Author != nil {
		out.AuthorID = msg.Author.ID
		out.AuthorBot = msg.Author.Bot
	}
	for _, attachment := range msg.Attachments {
		if attachment != nil {
			out.Attachments = append(out.Attachments, attachment.URL)
		}
	}
	return out
}

func (b *Bot) isPremium(ctx context.Context, guildID string) bool {
	if b.cfg.Automod.PremiumAll {
		return true
	}
	return b.guildSettings(ctx, guildID).Premium()
}

func (b *Bot) isAdmin(guildID, userID string, member *discordgo.Member) bool {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = b.session.Guild(guildID)
		if err != nil {
			return false
		}
	}
	if guild.OwnerID == userID {
		return true
	}
	if member == nil || len(member.Roles) == 0 {
		member = b.memberForUser(guildID, userID)
	}
	return memberHasAdmin(guild, member)
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func memberHasAdmin(guild *discordgo.Guild, member *discordgo.Member) bool {
	if guild == nil || member == nil {
		return false
	}
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	settings, err := b.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return storage.GuildSettings{GuildID: guildID, PremiumTier: "free"}
	}
	return settings
}

func (b *Bot) notifyViolation(ctx context.Context, v moderation.Violation) {
	channelID := b.guildSettings(ctx, v.GuildID).LogChannel
	if channelID == "" {
		return
	}

	key := v.GuildID + "|" + v.UserID + "|" + string(v.RuleType)

	b.noticeMu.Lock()
	agg := b.notices[key]
	if agg != nil && agg.channelID == channelID && time.Since(agg.lastAt) <= noticeWindow {
		agg.count++
		agg.lastAt = time.Now()
		count := agg.count
		messageID := agg.messageID
		b.noticeMu.Unlock()
		if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, b.violationEmbed(v, count)); err == nil {
			return
		}
		b.noticeMu.Lock()
		delete(b.notices, key)
	}
	b.noticeMu.Unlock()

	msg, err := b.session.ChannelMessageSendEmbed(channelID, b.violationEmbed(v, 1))
	if err != nil || msg == nil {
		b.logger.Warn("log channel notice failed", zap.String("guild_id", v.GuildID), zap.Error(err))
		return
	}
	b.noticeMu.Lock()
	b.notices[key] = &noticeAggregate{channelID: channelID, messageID: msg.ID, count: 1, lastAt: time.Now()}
	b.noticeMu.Unlock()
}

func (b *Bot) violationEmbed(v moderation.Violation, count int) *discordgo.MessageEmbed {
	content := v.Content
	if content == "" {
		content = "(empty)"
	}
	title := "Auto-mod: " + string(v.RuleType)
	if count > 1 {
		title = fmt.Sprintf("%s (x%d)", title, count)
	}
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     b.actionColor(v.ActionTaken),
		Timestamp: v.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: "<@" + v.UserID + ">", Inline: true},
			{Name: "Rule", Value: string(v.RuleType), Inline: true},
			{Name: "Action", Value: v.ActionTaken, Inline: true},
			{Name: "Content", Value: truncate(content, 1024), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "warden auto-mod"},
	}
}

func (b *Bot) actionColor(action string) int {
	colors := b.cfg.Notifications.EmbedColors
	switch action {
	case "kick", "timeout":
		return colors.Warning
	case "delete":
		return colors.Action
	default:
		return colors.Info
	}
}

func (b *Bot) startDailySummary() {
	if !b.cfg.Summary.Enabled {
		return
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(b.cfg.Summary.Schedule, b.sendDailySummary); err != nil {
		b.logger.Warn("daily summary disabled", zap.String("schedule", b.cfg.Summary.Schedule), zap.Error(err))
		return
	}
	scheduler.Start()
	b.scheduler = scheduler
}

func (b *Bot) sendDailySummary() {
	if b.session == nil || b.session.State == nil {
		return
	}
	ctx := context.Background()
	since := time.Now().Add(-24 * time.Hour)
	for _, guild := range b.session.State.Guilds {
		if guild == nil {
			continue
		}
		settings := b.guildSettings(ctx, guild.ID)
		if settings.LogChannel == "" {
			continue
		}
		report, err := b.analytics.Report(ctx, guild.ID, since)
		if err != nil {
			b.logger.Warn("daily summary report failed", zap.String("guild_id", guild.ID), zap.Error(err))
			continue
		}
		if report.Total == 0 {
			continue
		}
		if _, err := b.session.ChannelMessageSendEmbed(settings.LogChannel, b.summaryEmbed("Auto-mod daily summary", report)); err != nil {
			b.logger.Warn("daily summary send failed", zap.String("guild_id", guild.ID), zap.Error(err))
		}
	}
}

func (b *Bot) summaryEmbed(title string, report analytics.Report) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Violations", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "Users", Value: fmt.Sprintf("%d", report.Users), Inline: true},
	}
	if top, n := report.TopRule(); n > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Top rule", Value: fmt.Sprintf("%s (%d)", top, n), Inline: true})
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "By rule", Value: formatReport(report), Inline: false})
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     b.cfg.Notifications.EmbedColors.Info,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields:    fields,
	}
}

func formatReport(report analytics.Report) string {
	parts := make([]string, 0, len(moderation.RuleOrder))
	for _, ruleType := range moderation.RuleOrder {
		parts = append(parts, fmt.Sprintf("%s: %d", ruleType, report.ByRule[ruleType]))
	}
	return strings.Join(parts, " | ")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}
