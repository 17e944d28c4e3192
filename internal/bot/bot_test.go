package bot

import (
	"strings"
	"testing"
	"time"

	"warden/internal/analytics"
	"warden/internal/config"
	"warden/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

func TestMemberHasAdmin(t *testing.T) {
	guild := &discordgo.Guild{
		ID: "g1",
		Roles: []*discordgo.Role{
			{ID: "g1", Permissions: discordgo.PermissionSendMessages},
			{ID: "mod", Permissions: discordgo.PermissionManageMessages},
			{ID: "admin", Permissions: discordgo.PermissionAdministrator},
		},
	}
	if memberHasAdmin(guild, &discordgo.Member{Roles: []string{"mod"}}) {
		t.Fatalf("manage messages is not administrator")
	}
	if !memberHasAdmin(guild, &discordgo.Member{Roles: []string{"mod", "admin"}}) {
		t.Fatalf("admin role should grant administrator")
	}
	if memberHasAdmin(guild, nil) {
		t.Fatalf("nil member is never admin")
	}

	guild.Roles[0].Permissions |= discordgo.PermissionAdministrator
	if !memberHasAdmin(guild, &discordgo.Member{}) {
		t.Fatalf("everyone role permissions should apply")
	}
}

func TestToMessage(t *testing.T) {
	msg := toMessage(&discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "hello",
		Author:    &discordgo.User{ID: "u1", Bot: true},
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn.example/a.png"},
			nil,
		},
	})
	if msg.ID != "m1" || msg.AuthorID != "u1" || !msg.AuthorBot || msg.GuildID != "g1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0] != "https://cdn.example/a.png" {
		t.Fatalf("unexpected attachments %v", msg.Attachments)
	}
}

func TestRuleConfig(t *testing.T) {
	raw, err := ruleConfig("bad_words", " foo, ,bar ,")
	if err != nil {
		t.Fatalf("rule config: %v", err)
	}
	cfg, err := moderation.DecodeConfig(moderation.RuleBadWords, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	words := cfg.(moderation.BadWordsConfig).Words
	if len(words) != 2 || words[0] != "foo" || words[1] != "bar" {
		t.Fatalf("unexpected words %v", words)
	}

	raw, err = ruleConfig("caps", "ignored")
	if err != nil || raw != nil {
		t.Fatalf("non bad_words rules carry no config, got %q %v", raw, err)
	}
}

func TestFormatRule(t *testing.T) {
	if got := formatRule(nil); got != "not configured" {
		t.Fatalf("unexpected %q", got)
	}
	threshold := 3
	got := formatRule(&moderation.Rule{Type: moderation.RuleSpam, Enabled: true, Action: "timeout", Threshold: &threshold})
	if got != "enabled | action: timeout | threshold: 3" {
		t.Fatalf("unexpected %q", got)
	}
	got = formatRule(&moderation.Rule{Type: moderation.RuleBadWords})
	if !strings.Contains(got, "invalid config") || !strings.Contains(got, "action: default") {
		t.Fatalf("unexpected %q", got)
	}
}

func TestFormatReport(t *testing.T) {
	report := analytics.Report{ByRule: map[moderation.RuleType]int{moderation.RuleCaps: 2, moderation.RuleSpam: 1}}
	if got := formatReport(report); got != "spam: 1 | bad_words: 0 | links: 0 | caps: 2" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestViolationEmbed(t *testing.T) {
	b := &Bot{cfg: config.DefaultConfig()}
	embed := b.violationEmbed(moderation.Violation{
		UserID:      "u1",
		RuleType:    moderation.RuleLinks,
		ActionTaken: "kick",
		Content:     strings.Repeat("x", 2000),
		CreatedAt:   time.Unix(0, 0),
	}, 3)
	if embed.Title != "Auto-mod: links (x3)" {
		t.Fatalf("unexpected title %q", embed.Title)
	}
	if embed.Color != b.cfg.Notifications.EmbedColors.Warning {
		t.Fatalf("kick should use the warning color")
	}
	if n := len([]rune(embed.Fields[3].Value)); n != 1024 {
		t.Fatalf("content should be truncated to 1024, got %d", n)
	}
}
