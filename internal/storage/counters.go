package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"warden/internal/moderation"
)

// GetSpamCounter returns the counter row for a user, ok is false when the
// user has no tracked message in the guild yet.
func (s *Store) GetSpamCounter(ctx context.Context, guildID, userID string) (moderation.SpamCounter, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT message_count, last_message_at
		FROM spam_counters
		WHERE guild_id = ? AND user_id = ?
	`), guildID, userID)

	counter := moderation.SpamCounter{GuildID: guildID, UserID: userID}
	var last int64
	if err := row.Scan(&counter.MessageCount, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return moderation.SpamCounter{GuildID: guildID, UserID: userID}, false, nil
		}
		return moderation.SpamCounter{}, false, err
	}
	counter.LastMessageAt = time.UnixMilli(last)
	return counter, true, nil
}

func (s *Store) UpsertSpamCounter(ctx context.Context, counter moderation.SpamCounter) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO spam_counters (guild_id, user_id, message_count, last_message_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			message_count = excluded.message_count,
			last_message_at = excluded.last_message_at
	`), counter.GuildID, counter.UserID, counter.MessageCount, counter.LastMessageAt.UnixMilli())
	return err
}
