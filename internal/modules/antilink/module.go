package antilink

import (
	"context"
	"time"

	"warden/internal/moderation"
	"warden/internal/utils"
)

// Module flags chat invites and any http(s) URL. There is no allow-list.
type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) Type() moderation.RuleType {
	return moderation.RuleLinks
}

func (m *Module) Detect(_ context.Context, msg moderation.Message, rule *moderation.Rule, _ time.Time) (moderation.Result, error) {
	if !rule.Active() || msg.Content == "" {
		return moderation.None(moderation.RuleLinks), nil
	}

	found := append(utils.ExtractInvites(msg.Content), utils.ExtractURLs(msg.Content)...)
	if len(found) == 0 {
		return moderation.None(moderation.RuleLinks), nil
	}

	seen := make(map[string]struct{}, len(found))
	urls := make([]string, 0, len(found))
	for _, raw := range found {
		normalized, _, err := utils.NormalizeURL(raw)
		if err != nil {
			normalized = raw
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		urls = append(urls, normalized)
	}

	return moderation.Result{
		Violated: true,
		Type:     moderation.RuleLinks,
		Action:   moderation.ResolveAction(rule.Action, moderation.ActionDelete),
		Details:  moderation.Details{URLs: urls},
	}, nil
}
