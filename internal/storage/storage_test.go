package storage

import (
	"context"
	"testing"
	"time"

	"warden/internal/moderation"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetGuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get default settings: %v", err)
	}
	if got.Premium() {
		t.Fatalf("unknown guild must not be premium")
	}

	if err := store.UpsertGuildSettings(ctx, GuildSettings{GuildID: "g1", PremiumTier: "premium", LogChannel: "c1"}); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}
	if err := store.UpsertGuildSettings(ctx, GuildSettings{GuildID: "g1", PremiumTier: "premium", LogChannel: "c2"}); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err = store.GetGuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.LogChannel != "c2" || !got.Premium() {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestUpsertRuleKeepsOneRowPerType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	threshold := 3
	rule := moderation.Rule{GuildID: "g1", Type: moderation.RuleBadWords, Enabled: true, Action: "delete", Config: moderation.BadWordsConfig{Words: []string{"foo"}}}
	if err := store.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("upsert rule: %v", err)
	}
	rule.Enabled = false
	rule.Threshold = &threshold
	rule.Config = moderation.BadWordsConfig{Words: []string{"foo", "bar"}}
	if err := store.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if err := store.UpsertRule(ctx, moderation.Rule{GuildID: "g1", Type: moderation.RuleSpam, Enabled: true}); err != nil {
		t.Fatalf("upsert spam rule: %v", err)
	}

	rules, err := store.ListRules(ctx, "g1")
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Type != moderation.RuleSpam || rules[1].Type != moderation.RuleBadWords {
		t.Fatalf("rules not in evaluation order: %v, %v", rules[0].Type, rules[1].Type)
	}
	if rules[0].Threshold != nil {
		t.Fatalf("spam rule should have no explicit threshold")
	}

	got, err := store.GetRule(ctx, "g1", moderation.RuleBadWords)
	if err != nil || got == nil {
		t.Fatalf("get rule: %v %v", got, err)
	}
	words, ok := got.BadWords()
	if got.Enabled || got.ThresholdOr(0) != 3 || !ok || len(words.Words) != 2 {
		t.Fatalf("unexpected rule %+v", got)
	}

	missing, err := store.GetRule(ctx, "g1", moderation.RuleCaps)
	if err != nil || missing != nil {
		t.Fatalf("expected no caps rule, got %v %v", missing, err)
	}
}

func TestMalformedStoredConfigDecodesToNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.db.Exec(`INSERT INTO automod_rules (guild_id, rule_type, enabled, action, config, updated_at) VALUES ('g1', 'bad_words', 1, 'delete', '{"words":"foo"}', 0)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rule, err := store.GetRule(ctx, "g1", moderation.RuleBadWords)
	if err != nil || rule == nil {
		t.Fatalf("get rule: %v %v", rule, err)
	}
	if _, ok := rule.BadWords(); ok {
		t.Fatalf("malformed config should not decode")
	}
}

func TestSpamCounterUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.GetSpamCounter(ctx, "g1", "u1"); err != nil || ok {
		t.Fatalf("expected no counter, got ok=%v err=%v", ok, err)
	}
	now := time.UnixMilli(1_700_000_000_000)
	if err := store.UpsertSpamCounter(ctx, moderation.SpamCounter{GuildID: "g1", UserID: "u1", MessageCount: 1, LastMessageAt: now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertSpamCounter(ctx, moderation.SpamCounter{GuildID: "g1", UserID: "u1", MessageCount: 4, LastMessageAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	counter, ok, err := store.GetSpamCounter(ctx, "g1", "u1")
	if err != nil || !ok {
		t.Fatalf("get counter: ok=%v err=%v", ok, err)
	}
	if counter.MessageCount != 4 || !counter.LastMessageAt.Equal(now.Add(time.Second)) {
		t.Fatalf("unexpected counter %+v", counter)
	}
}

func TestListRecentViolations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1_700_000_000_000)
	for i, rule := range []moderation.RuleType{moderation.RuleSpam, moderation.RuleCaps, moderation.RuleLinks} {
		v := moderation.Violation{GuildID: "g1", UserID: "u1", RuleType: rule, Content: "msg", ActionTaken: "warn", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.AppendViolation(ctx, v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.AppendViolation(ctx, moderation.Violation{GuildID: "g2", UserID: "u2", RuleType: moderation.RuleSpam, ActionTaken: "kick"}); err != nil {
		t.Fatalf("append other guild: %v", err)
	}

	got, err := store.ListRecentViolations(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(got))
	}
	if got[0].RuleType != moderation.RuleLinks || got[1].RuleType != moderation.RuleCaps {
		t.Fatalf("expected newest first, got %v then %v", got[0].RuleType, got[1].RuleType)
	}

	again, err := store.ListRecentViolations(ctx, "g1", 2)
	if err != nil || len(again) != 2 || again[0].ID != got[0].ID || again[1].ID != got[1].ID {
		t.Fatalf("repeated read not stable: %v %v", again, err)
	}

	empty, err := store.ListRecentViolations(ctx, "g2", 10)
	if err != nil || len(empty) != 1 || empty[0].Content != "" {
		t.Fatalf("expected one violation with empty content, got %v %v", empty, err)
	}
}

func TestRebindPostgres(t *testing.T) {
	store := &Store{dialect: DialectPostgres}
	if got := store.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
	sqlite := &Store{dialect: DialectSQLite}
	if got := sqlite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite query must be unchanged, got %q", got)
	}
}
