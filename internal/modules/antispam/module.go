package antispam

import (
	"context"
	"fmt"
	"time"

	"warden/internal/moderation"
)

const (
	// Window is the longest gap between two messages that still counts as
	// the same burst.
	Window           = 10 * time.Second
	DefaultThreshold = 5
)

// CounterStore persists one counter per (guild, user).
type CounterStore interface {
	GetSpamCounter(ctx context.Context, guildID, userID string) (moderation.SpamCounter, bool, error)
	UpsertSpamCounter(ctx context.Context, counter moderation.SpamCounter) error
}

type Module struct {
	store CounterStore
}

func New(store CounterStore) *Module {
	return &Module{store: store}
}

func (m *Module) Type() moderation.RuleType {
	return moderation.RuleSpam
}

// crosses fires on the message that brings the burst to the threshold and
// stays quiet for the rest of that burst. A threshold of zero or less fires
// on every message.
func crosses(count, threshold int) bool {
	return threshold <= 0 || count == threshold
}

// Detect updates the author's counter and reports a violation when the
// count reaches the rule threshold. The counter is written whether or not a
// rule exists. The read and the write are not atomic: two messages from the
// same user handled concurrently may both read the same count, and the
// later write wins.
func (m *Module) Detect(ctx context.Context, msg moderation.Message, rule *moderation.Rule, now time.Time) (moderation.Result, error) {
	counter, found, err := m.store.GetSpamCounter(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		return moderation.None(moderation.RuleSpam), fmt.Errorf("read spam counter: %w", err)
	}

	count := counter.MessageCount + 1
	if !found || now.Sub(counter.LastMessageAt) > Window {
		count = 1
	}

	err = m.store.UpsertSpamCounter(ctx, moderation.SpamCounter{
		GuildID:       msg.GuildID,
		UserID:        msg.AuthorID,
		MessageCount:  count,
		LastMessageAt: now,
	})
	if err != nil {
		return moderation.None(moderation.RuleSpam), fmt.Errorf("write spam counter: %w", err)
	}

	if !rule.Active() || !crosses(count, rule.ThresholdOr(DefaultThreshold)) {
		return moderation.None(moderation.RuleSpam), nil
	}
	return moderation.Result{
		Violated: true,
		Type:     moderation.RuleSpam,
		Action:   moderation.ResolveAction(rule.Action, moderation.ActionWarn),
		Details:  moderation.Details{MessageCount: count},
	}, nil
}
