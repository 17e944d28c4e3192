package automod

import (
	"context"
	"fmt"
	"time"

	"warden/internal/moderation"
	"warden/internal/modules/audit"

	"go.uber.org/zap"
)

const TimeoutDuration = 5 * time.Minute

// Moderator is the subset of the chat platform client the dispatcher acts
// through.
type Moderator interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendMessage(ctx context.Context, channelID, content string) (string, error)
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
}

type Dispatcher struct {
	moderator Moderator
	audit     *audit.Logger
	logger    *zap.Logger
	clock     Clock
	noticeTTL time.Duration
}

// NewDispatcher builds a dispatcher. Delete notices remove themselves after
// noticeTTL; zero keeps them.
func NewDispatcher(moderator Moderator, auditLogger *audit.Logger, logger *zap.Logger, noticeTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		moderator: moderator,
		audit:     auditLogger,
		logger:    logger,
		clock:     realClock{},
		noticeTTL: noticeTTL,
	}
}

func (d *Dispatcher) WithClock(clock Clock) {
	d.clock = clock
}

// Apply executes the action for a selected violation and records it. Action
// failures are logged and never returned.
func (d *Dispatcher) Apply(ctx context.Context, msg moderation.Message, result moderation.Result) {
	action := result.Action
	if err := d.execute(ctx, msg, result.Type, action); err != nil {
		actionFailureCount.WithLabelValues(action.String()).Inc()
		d.logger.Warn("automod action failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.AuthorID),
			zap.String("rule", string(result.Type)),
			zap.String("action", action.String()),
			zap.Error(err),
		)
	}
	violationCount.WithLabelValues(string(result.Type), action.String()).Inc()
	d.audit.Log(ctx, msg.GuildID, msg.AuthorID, result.Type, msg.Content, action)
}

func (d *Dispatcher) execute(ctx context.Context, msg moderation.Message, ruleType moderation.RuleType, action moderation.Action) error {
	reason := "Auto-mod: " + string(ruleType)
	mention := "<@" + msg.AuthorID + ">"

	switch action {
	case moderation.ActionDelete:
		if err := d.moderator.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return d.ephemeralNotice(ctx, msg.ChannelID, fmt.Sprintf("%s, your message was removed (auto-mod: %s).", mention, ruleType))
	case moderation.ActionTimeout:
		until := d.clock.Now().Add(TimeoutDuration)
		if err := d.moderator.TimeoutMember(ctx, msg.GuildID, msg.AuthorID, until, reason); err != nil {
			return fmt.Errorf("timeout member: %w", err)
		}
		if err := d.moderator.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return d.notice(ctx, msg.ChannelID, fmt.Sprintf("%s has been timed out for %d minutes (auto-mod: %s).", mention, int(TimeoutDuration.Minutes()), ruleType))
	case moderation.ActionKick:
		if err := d.moderator.KickMember(ctx, msg.GuildID, msg.AuthorID, reason); err != nil {
			return fmt.Errorf("kick member: %w", err)
		}
		return d.notice(ctx, msg.ChannelID, fmt.Sprintf("%s has been kicked (auto-mod: %s).", mention, ruleType))
	default:
		return d.notice(ctx, msg.ChannelID, fmt.Sprintf("%s, warning: your message broke the %s rule.", mention, ruleType))
	}
}

func (d *Dispatcher) notice(ctx context.Context, channelID, content string) error {
	if _, err := d.moderator.SendMessage(ctx, channelID, content); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

func (d *Dispatcher) ephemeralNotice(ctx context.Context, channelID, content string) error {
	id, err := d.moderator.SendMessage(ctx, channelID, content)
	if err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	if d.noticeTTL <= 0 || id == "" {
		return nil
	}
	time.AfterFunc(d.noticeTTL, func() {
		_ = d.moderator.DeleteMessage(context.Background(), channelID, id)
	})
	return nil
}
