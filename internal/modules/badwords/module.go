package badwords

import (
	"context"
	"regexp"
	"strings"
	"time"

	"warden/internal/moderation"

	lru "github.com/hashicorp/golang-lru/v2"
)

const patternCacheSize = 4096

type Module struct {
	patterns *lru.Cache[string, *regexp.Regexp]
}

func New() *Module {
	patterns, _ := lru.New[string, *regexp.Regexp](patternCacheSize)
	return &Module{patterns: patterns}
}

func (m *Module) Type() moderation.RuleType {
	return moderation.RuleBadWords
}

// Detect matches every configured word as a whole word against the
// lowercased message. All matches are reported in one result.
func (m *Module) Detect(_ context.Context, msg moderation.Message, rule *moderation.Rule, _ time.Time) (moderation.Result, error) {
	if !rule.Active() {
		return moderation.None(moderation.RuleBadWords), nil
	}
	cfg, ok := rule.BadWords()
	if !ok || len(cfg.Words) == 0 {
		return moderation.None(moderation.RuleBadWords), nil
	}

	content := strings.ToLower(msg.Content)
	var matched []string
	for _, word := range cfg.Words {
		if m.pattern(word).MatchString(content) {
			matched = append(matched, word)
		}
	}
	if len(matched) == 0 {
		return moderation.None(moderation.RuleBadWords), nil
	}

	return moderation.Result{
		Violated: true,
		Type:     moderation.RuleBadWords,
		Action:   moderation.ResolveAction(rule.Action, moderation.ActionDelete),
		Details:  moderation.Details{Words: matched},
	}, nil
}

func (m *Module) pattern(word string) *regexp.Regexp {
	key := strings.ToLower(word)
	if re, ok := m.patterns.Get(key); ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(key) + `\b`)
	m.patterns.Add(key, re)
	return re
}
