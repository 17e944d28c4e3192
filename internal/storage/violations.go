package storage

import (
	"context"
	"database/sql"
	"time"

	"warden/internal/moderation"
)

func (s *Store) AppendViolation(ctx context.Context, v moderation.Violation) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	var content any
	if v.Content != "" {
		content = v.Content
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO automod_violations (guild_id, user_id, rule_type, content, action_taken, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), v.GuildID, v.UserID, string(v.RuleType), content, v.ActionTaken, v.CreatedAt.UnixMilli())
	return err
}

// ListRecentViolations returns at most limit violations, newest first.
func (s *Store) ListRecentViolations(ctx context.Context, guildID string, limit int) ([]moderation.Violation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, guild_id, user_id, rule_type, content, action_taken, created_at
		FROM automod_violations
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), guildID, limit)
	if err != nil {
		return nil, err
	}
	return scanViolations(rows)
}

func (s *Store) ListViolationsSince(ctx context.Context, guildID string, since time.Time) ([]moderation.Violation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, guild_id, user_id, rule_type, content, action_taken, created_at
		FROM automod_violations
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`), guildID, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	return scanViolations(rows)
}

func scanViolations(rows *sql.Rows) ([]moderation.Violation, error) {
	defer rows.Close()

	var violations []moderation.Violation
	for rows.Next() {
		var v moderation.Violation
		var ruleType string
		var content sql.NullString
		var created int64
		if err := rows.Scan(&v.ID, &v.GuildID, &v.UserID, &ruleType, &content, &v.ActionTaken, &created); err != nil {
			return nil, err
		}
		v.RuleType = moderation.RuleType(ruleType)
		v.Content = content.String
		v.CreatedAt = time.UnixMilli(created)
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
