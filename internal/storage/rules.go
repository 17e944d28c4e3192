package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"warden/internal/moderation"
)

func (s *Store) GetRule(ctx context.Context, guildID string, ruleType moderation.RuleType) (*moderation.Rule, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT guild_id, rule_type, enabled, action, threshold, config, updated_at
		FROM automod_rules
		WHERE guild_id = ? AND rule_type = ?
	`), guildID, string(ruleType))

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rule, nil
}

// ListRules returns the guild's rules in evaluation order.
func (s *Store) ListRules(ctx context.Context, guildID string) ([]moderation.Rule, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT guild_id, rule_type, enabled, action, threshold, config, updated_at
		FROM automod_rules
		WHERE guild_id = ?
	`), guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byType := make(map[moderation.RuleType]moderation.Rule)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		byType[rule.Type] = *rule
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rules := make([]moderation.Rule, 0, len(byType))
	for _, ruleType := range moderation.RuleOrder {
		if rule, ok := byType[ruleType]; ok {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

func (s *Store) UpsertRule(ctx context.Context, rule moderation.Rule) error {
	config, err := moderation.EncodeConfig(rule.Config)
	if err != nil {
		return err
	}
	var threshold any
	if rule.Threshold != nil {
		threshold = *rule.Threshold
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO automod_rules (guild_id, rule_type, enabled, action, threshold, config, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, rule_type) DO UPDATE SET
			enabled = excluded.enabled,
			action = excluded.action,
			threshold = excluded.threshold,
			config = excluded.config,
			updated_at = excluded.updated_at
	`), rule.GuildID, string(rule.Type), boolToInt(rule.Enabled), rule.Action, threshold, string(config), time.Now().UnixMilli())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*moderation.Rule, error) {
	var (
		rule      moderation.Rule
		ruleType  string
		enabled   int
		threshold sql.NullInt64
		config    string
		updated   int64
	)
	if err := row.Scan(&rule.GuildID, &ruleType, &enabled, &rule.Action, &threshold, &config, &updated); err != nil {
		return nil, err
	}
	rule.Type = moderation.RuleType(ruleType)
	rule.Enabled = enabled == 1
	if threshold.Valid {
		value := int(threshold.Int64)
		rule.Threshold = &value
	}
	// A row written behind our back with a malformed config leaves Config
	// nil, which detectors treat as disabled.
	if cfg, err := moderation.DecodeConfig(rule.Type, []byte(config)); err == nil {
		rule.Config = cfg
	}
	rule.UpdatedAt = time.UnixMilli(updated)
	return &rule, nil
}
