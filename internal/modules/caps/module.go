package caps

import (
	"context"
	"time"
	"unicode/utf8"

	"warden/internal/moderation"
)

const (
	MinLength        = 10
	DefaultThreshold = 70
)

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) Type() moderation.RuleType {
	return moderation.RuleCaps
}

func (m *Module) Detect(_ context.Context, msg moderation.Message, rule *moderation.Rule, _ time.Time) (moderation.Result, error) {
	if !rule.Active() || utf8.RuneCountInString(msg.Content) < MinLength {
		return moderation.None(moderation.RuleCaps), nil
	}

	pct, ok := Percentage(msg.Content)
	if !ok || pct < float64(rule.ThresholdOr(DefaultThreshold)) {
		return moderation.None(moderation.RuleCaps), nil
	}

	return moderation.Result{
		Violated: true,
		Type:     moderation.RuleCaps,
		Action:   moderation.ResolveAction(rule.Action, moderation.ActionWarn),
		Details:  moderation.Details{CapsPercentage: pct},
	}, nil
}

// Percentage returns the share of uppercase among ASCII letters. ok is
// false when the text has no letters.
func Percentage(content string) (float64, bool) {
	upper, letters := 0, 0
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case c >= 'A' && c <= 'Z':
			upper++
			letters++
		case c >= 'a' && c <= 'z':
			letters++
		}
	}
	if letters == 0 {
		return 0, false
	}
	return float64(upper) / float64(letters) * 100, true
}
