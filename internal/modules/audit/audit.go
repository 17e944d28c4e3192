package audit

import (
	"context"
	"time"

	"warden/internal/moderation"

	"go.uber.org/zap"
)

// Store is the append side of the violation log.
type Store interface {
	AppendViolation(ctx context.Context, v moderation.Violation) error
}

// Logger appends violations and mirrors them to the operational log and an
// optional notifier. Appending is best-effort.
type Logger struct {
	store  Store
	logger *zap.Logger
	notify func(context.Context, moderation.Violation)
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, moderation.Violation)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, guildID, userID string, ruleType moderation.RuleType, content string, action moderation.Action) {
	entry := moderation.Violation{
		GuildID:     guildID,
		UserID:      userID,
		RuleType:    ruleType,
		Content:     content,
		ActionTaken: action.String(),
		CreatedAt:   time.Now(),
	}
	fields := []zap.Field{
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("rule", string(ruleType)),
		zap.String("action", entry.ActionTaken),
	}
	if l.store != nil {
		if err := l.store.AppendViolation(ctx, entry); err != nil {
			l.logger.Warn("violation append failed", append(fields, zap.Error(err))...)
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("violation", fields...)
}
