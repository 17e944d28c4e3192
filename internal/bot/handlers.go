package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/internal/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	out := make(commandOptions, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

func (o commandOptions) intValue(name string) (int, bool) {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue()), true
	}
	return 0, false
}

func (o commandOptions) stringValue(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	if data.Name != "automod" {
		return
	}
	b.handleAutomodCommand(context.Background(), session, interaction, data.Options)
}

func (b *Bot) handleAutomodCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	colors := b.cfg.Notifications.EmbedColors
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "This command only works inside a server.", colors.Warning, nil), true)
		return
	}
	if interaction.Member == nil || interaction.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "Administrator permission is required.", colors.Warning, nil), true)
		return
	}
	if len(options) == 0 {
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "Choose a subcommand.", colors.Warning, nil), true)
		return
	}

	sub := options[0]
	args := optionMap(sub.Options)
	guildID := interaction.GuildID

	switch sub.Name {
	case "rules":
		b.handleRulesCommand(ctx, session, interaction, guildID)
	case "set":
		b.handleSetCommand(ctx, session, interaction, guildID, args)
	case "violations":
		limit, _ := args.intValue("limit")
		b.handleViolationsCommand(ctx, session, interaction, guildID, limit)
	case "report":
		hours, ok := args.intValue("hours")
		if !ok || hours <= 0 {
			hours = 24
		}
		b.handleReportCommand(ctx, session, interaction, guildID, hours)
	case "logchannel":
		channel := args["channel"]
		if channel == nil {
			b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "A channel is required.", colors.Warning, nil), true)
			return
		}
		b.handleLogChannelCommand(ctx, session, interaction, guildID, channel.ChannelValue(nil).ID)
	default:
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "Unknown subcommand.", colors.Warning, nil), true)
	}
}

func (b *Bot) handleRulesCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, guildID string) {
	colors := b.cfg.Notifications.EmbedColors
	rules, err := b.engine.GetRules(ctx, guildID)
	if err != nil {
		b.logger.Warn("list rules failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod rules", "Could not load rules.", colors.Warning, nil), true)
		return
	}
	byType := make(map[moderation.RuleType]*moderation.Rule, len(rules))
	for i := range rules {
		byType[rules[i].Type] = &rules[i]
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(moderation.RuleOrder))
	for _, ruleType := range moderation.RuleOrder {
		fields = append(fields, &discordgo.MessageEmbedField{Name: string(ruleType), Value: formatRule(byType[ruleType]), Inline: false})
	}
	premium := "no"
	if b.isPremium(ctx, guildID) {
		premium = "yes"
	}
	desc := "Premium: " + premium
	b.respondEmbed(session, interaction, commandEmbed("Auto-mod rules", desc, colors.Info, fields), true)
}

func (b *Bot) handleSetCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, guildID string, args commandOptions) {
	colors := b.cfg.Notifications.EmbedColors
	ruleType := args.stringValue("rule")
	enabled := false
	if opt, ok := args["enabled"]; ok {
		enabled = opt.BoolValue()
	}
	var threshold *int
	if value, ok := args.intValue("threshold"); ok {
		threshold = &value
	}
	raw, err := ruleConfig(ruleType, args.stringValue("words"))
	if err == nil {
		var rule moderation.Rule
		rule, err = b.engine.SetRule(ctx, guildID, ruleType, enabled, args.stringValue("action"), threshold, raw)
		if err == nil {
			field := &discordgo.MessageEmbedField{Name: string(rule.Type), Value: formatRule(&rule)}
			b.respondEmbed(session, interaction, commandEmbed("Auto-mod rule updated", "", colors.Action, []*discordgo.MessageEmbedField{field}), true)
			return
		}
	}

	message := "Could not save the rule."
	switch {
	case errors.Is(err, moderation.ErrUnknownRuleType):
		message = "Unknown rule type."
	case errors.Is(err, moderation.ErrUnknownAction):
		message = "Unknown action."
	case errors.Is(err, moderation.ErrInvalidConfig):
		message = "Invalid rule configuration."
	default:
		b.logger.Warn("set rule failed", zap.String("guild_id", guildID), zap.String("rule", ruleType), zap.Error(err))
	}
	b.respondEmbed(session, interaction, commandEmbed("Auto-mod rules", message, colors.Warning, nil), true)
}

// ruleConfig builds the stored config for a rule from the words option.
// Only bad_words carries a word list.
func ruleConfig(ruleType, words string) ([]byte, error) {
	if ruleType != string(moderation.RuleBadWords) {
		return nil, nil
	}
	return moderation.EncodeConfig(moderation.BadWordsConfig{Words: splitWords(words)})
}

func splitWords(value string) []string {
	var words []string
	for _, word := range strings.Split(value, ",") {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words
}

func (b *Bot) handleViolationsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, guildID string, limit int) {
	colors := b.cfg.Notifications.EmbedColors
	violations, err := b.engine.GetViolations(ctx, guildID, limit)
	if err != nil {
		b.logger.Warn("list violations failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod violations", "Could not load violations.", colors.Warning, nil), true)
		return
	}
	if len(violations) == 0 {
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod violations", "No violations recorded.", colors.Info, nil), true)
		return
	}
	lines := make([]string, 0, len(violations))
	for _, v := range violations {
		lines = append(lines, formatViolation(v))
	}
	b.respondEmbed(session, interaction, commandEmbed("Auto-mod violations", truncate(strings.Join(lines, "\n"), 4096), colors.Info, nil), true)
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, guildID string, hours int) {
	report, err := b.analytics.Report(ctx, guildID, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		b.logger.Warn("report failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod report", "Could not build the report.", b.cfg.Notifications.EmbedColors.Warning, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.summaryEmbed(fmt.Sprintf("Auto-mod report (last %dh)", hours), report), true)
}

func (b *Bot) handleLogChannelCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, guildID, channelID string) {
	colors := b.cfg.Notifications.EmbedColors
	settings := b.guildSettings(ctx, guildID)
	settings.LogChannel = channelID
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("log channel update failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "Could not save the log channel.", colors.Warning, nil), true)
		return
	}
	b.respondEmbed(session, interaction, commandEmbed("Auto-mod", "Violations will be logged to <#"+channelID+">.", colors.Action, nil), true)
}

func formatRule(rule *moderation.Rule) string {
	if rule == nil {
		return "not configured"
	}
	state := "disabled"
	if rule.Enabled {
		state = "enabled"
	}
	action := rule.Action
	if action == "" {
		action = "default"
	}
	parts := []string{state, "action: " + action}
	if rule.Threshold != nil {
		parts = append(parts, fmt.Sprintf("threshold: %d", *rule.Threshold))
	}
	if rule.Type == moderation.RuleBadWords {
		if cfg, ok := rule.BadWords(); ok {
			parts = append(parts, fmt.Sprintf("words: %d", len(cfg.Words)))
		} else {
			parts = append(parts, "words: invalid config")
		}
	}
	return strings.Join(parts, " | ")
}

func formatViolation(v moderation.Violation) string {
	return fmt.Sprintf("<t:%d:R> <@%s> %s -> %s", v.CreatedAt.Unix(), v.UserID, v.RuleType, v.ActionTaken)
}

func commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
