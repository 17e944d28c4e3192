package audit

import (
	"context"
	"errors"
	"testing"

	"warden/internal/moderation"
	"warden/internal/storage"

	"go.uber.org/zap"
)

func TestLoggerAppendsAndNotifies(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := NewLogger(store, zap.NewNop())
	var notified []moderation.Violation
	logger.SetNotifier(func(_ context.Context, v moderation.Violation) {
		notified = append(notified, v)
	})

	ctx := context.Background()
	logger.Log(ctx, "g1", "u1", moderation.RuleCaps, "LOUD MESSAGE", moderation.ActionTimeout)

	got, err := store.ListRecentViolations(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ActionTaken != "timeout" || got[0].Content != "LOUD MESSAGE" || got[0].RuleType != moderation.RuleCaps {
		t.Fatalf("unexpected violations %+v", got)
	}
	if len(notified) != 1 || notified[0].UserID != "u1" {
		t.Fatalf("notifier not called: %+v", notified)
	}
}

type brokenStore struct{}

func (brokenStore) AppendViolation(context.Context, moderation.Violation) error {
	return errors.New("disk full")
}

func TestLoggerSwallowsStoreErrors(t *testing.T) {
	logger := NewLogger(brokenStore{}, zap.NewNop())
	called := false
	logger.SetNotifier(func(context.Context, moderation.Violation) { called = true })
	logger.Log(context.Background(), "g1", "u1", moderation.RuleSpam, "", moderation.ActionWarn)
	if !called {
		t.Fatalf("notifier should still run when the append fails")
	}
}
