package bot

import (
	"warden/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

func automodCommand() *discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	dmAllowed := false

	ruleChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(moderation.RuleOrder))
	for _, ruleType := range moderation.RuleOrder {
		ruleChoices = append(ruleChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(ruleType), Value: string(ruleType)})
	}
	actionChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "delete", Value: "delete"},
		{Name: "warn", Value: "warn"},
		{Name: "timeout", Value: "timeout"},
		{Name: "kick", Value: "kick"},
	}

	return &discordgo.ApplicationCommand{
		Name:                     "automod",
		Description:              "Configure auto-moderation",
		DefaultMemberPermissions: &adminOnly,
		DMPermission:             &dmAllowed,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "rules",
				Description: "Show the configured rules",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Create or update a rule",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "rule",
						Description: "Rule type",
						Required:    true,
						Choices:     ruleChoices,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "enabled",
						Description: "Whether the rule is active",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "action",
						Description: "Action on violation",
						Choices:     actionChoices,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "threshold",
						Description: "Messages per 10s for spam, uppercase percent for caps",
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "words",
						Description: "Comma separated word list for bad_words",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "violations",
				Description: "Show recent violations",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "limit",
						Description: "Number of entries (max 100)",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "report",
				Description: "Summarise violations",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "hours",
						Description: "Look back this many hours (default 24)",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "logchannel",
				Description: "Set the moderation log channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         "channel",
						Description:  "Channel that receives violation notices",
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
				},
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{automodCommand()}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
