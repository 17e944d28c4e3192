package moderation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownRuleType = errors.New("unknown rule type")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidConfig   = errors.New("invalid rule config")
)

type RuleType string

const (
	RuleSpam     RuleType = "spam"
	RuleBadWords RuleType = "bad_words"
	RuleLinks    RuleType = "links"
	RuleCaps     RuleType = "caps"
)

// RuleOrder is the evaluation and priority order of the detectors.
var RuleOrder = []RuleType{RuleSpam, RuleBadWords, RuleLinks, RuleCaps}

func ParseRuleType(value string) (RuleType, error) {
	switch RuleType(strings.ToLower(strings.TrimSpace(value))) {
	case RuleSpam:
		return RuleSpam, nil
	case RuleBadWords:
		return RuleBadWords, nil
	case RuleLinks:
		return RuleLinks, nil
	case RuleCaps:
		return RuleCaps, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRuleType, value)
	}
}

// Rule is the per-guild configuration of one detector.
type Rule struct {
	GuildID   string
	Type      RuleType
	Enabled   bool
	Action    string
	Threshold *int
	Config    RuleConfig
	UpdatedAt time.Time
}

// Active reports whether the rule exists and is switched on.
func (r *Rule) Active() bool {
	return r != nil && r.Enabled
}

// ThresholdOr returns the configured threshold, or fallback when the row
// carries none.
func (r *Rule) ThresholdOr(fallback int) int {
	if r == nil || r.Threshold == nil {
		return fallback
	}
	return *r.Threshold
}

// RuleConfig is the type specific part of a rule.
type RuleConfig interface {
	ruleType() RuleType
}

type BadWordsConfig struct {
	Words []string `json:"words"`
}

func (BadWordsConfig) ruleType() RuleType { return RuleBadWords }

// NoConfig is used by rules that carry nothing beyond threshold and action.
type NoConfig struct{}

func (NoConfig) ruleType() RuleType { return "" }

// BadWords returns the bad-word configuration, if the rule carries a
// well-formed one.
func (r *Rule) BadWords() (BadWordsConfig, bool) {
	if r == nil || r.Config == nil {
		return BadWordsConfig{}, false
	}
	cfg, ok := r.Config.(BadWordsConfig)
	return cfg, ok
}

// DecodeConfig parses the stored JSON config for the given rule type.
func DecodeConfig(ruleType RuleType, raw []byte) (RuleConfig, error) {
	trimmed := strings.TrimSpace(string(raw))
	if ruleType != RuleBadWords {
		if trimmed != "" && trimmed != "null" {
			var probe map[string]any
			if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
		}
		return NoConfig{}, nil
	}

	if trimmed == "" || trimmed == "null" {
		return BadWordsConfig{}, nil
	}
	var cfg BadWordsConfig
	if err := json.Unmarshal([]byte(trimmed), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	words := cfg.Words[:0]
	for _, word := range cfg.Words {
		word = strings.TrimSpace(word)
		if word != "" {
			words = append(words, word)
		}
	}
	cfg.Words = words
	return cfg, nil
}

// EncodeConfig is the inverse of DecodeConfig.
func EncodeConfig(cfg RuleConfig) ([]byte, error) {
	switch value := cfg.(type) {
	case BadWordsConfig:
		if value.Words == nil {
			value.Words = []string{}
		}
		return json.Marshal(value)
	default:
		return []byte("{}"), nil
	}
}
