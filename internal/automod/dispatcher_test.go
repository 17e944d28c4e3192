package automod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"warden/internal/moderation"
	"warden/internal/modules/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

type call struct {
	op      string
	channel string
	target  string
	content string
	until   time.Time
}

type fakeModerator struct {
	mu     sync.Mutex
	calls  []call
	failOn string
	nextID int
}

func (m *fakeModerator) record(c call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	if m.failOn == c.op {
		return errors.New("missing permissions")
	}
	return nil
}

func (m *fakeModerator) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return m.record(call{op: "delete", channel: channelID, target: messageID})
}

func (m *fakeModerator) SendMessage(_ context.Context, channelID, content string) (string, error) {
	if err := m.record(call{op: "send", channel: channelID, content: content}); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("notice-%d", m.nextID), nil
}

func (m *fakeModerator) TimeoutMember(_ context.Context, guildID, userID string, until time.Time, reason string) error {
	return m.record(call{op: "timeout", channel: guildID, target: userID, content: reason, until: until})
}

func (m *fakeModerator) KickMember(_ context.Context, guildID, userID, reason string) error {
	return m.record(call{op: "kick", channel: guildID, target: userID, content: reason})
}

func (m *fakeModerator) ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.op)
	}
	return out
}

type memoryViolations struct {
	mu      sync.Mutex
	entries []moderation.Violation
}

func (s *memoryViolations) AppendViolation(_ context.Context, v moderation.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, v)
	return nil
}

func (s *memoryViolations) all() []moderation.Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]moderation.Violation(nil), s.entries...)
}

func newTestDispatcher(mod *fakeModerator, log *memoryViolations) *Dispatcher {
	d := NewDispatcher(mod, audit.NewLogger(log, zap.NewNop()), zap.NewNop(), 0)
	d.WithClock(fakeClock{now: time.Unix(1_700_000_000, 0)})
	return d
}

var sampleMessage = moderation.Message{
	ID:        "m1",
	ChannelID: "c1",
	GuildID:   "g1",
	AuthorID:  "u1",
	Content:   "bad content",
}

func TestDispatchDeleteRemovesAndNotifies(t *testing.T) {
	mod := &fakeModerator{}
	log := &memoryViolations{}
	newTestDispatcher(mod, log).Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleBadWords, Action: moderation.ActionDelete,
	})

	assert.Equal(t, []string{"delete", "send"}, mod.ops())
	assert.Equal(t, "m1", mod.calls[0].target)
	assert.Contains(t, mod.calls[1].content, "bad_words")

	entries := log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "delete", entries[0].ActionTaken)
	assert.Equal(t, "bad content", entries[0].Content)
}

func TestDispatchWarnLeavesMessage(t *testing.T) {
	mod := &fakeModerator{}
	log := &memoryViolations{}
	newTestDispatcher(mod, log).Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleCaps, Action: moderation.ActionWarn,
	})

	assert.Equal(t, []string{"send"}, mod.ops())
	assert.Contains(t, mod.calls[0].content, "<@u1>")
	assert.Contains(t, mod.calls[0].content, "caps")
	require.Len(t, log.all(), 1)
}

func TestDispatchTimeoutIsFiveMinutes(t *testing.T) {
	mod := &fakeModerator{}
	log := &memoryViolations{}
	newTestDispatcher(mod, log).Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleSpam, Action: moderation.ActionTimeout,
	})

	assert.Equal(t, []string{"timeout", "delete", "send"}, mod.ops())
	timeout := mod.calls[0]
	assert.Equal(t, "u1", timeout.target)
	assert.Equal(t, "Auto-mod: spam", timeout.content)
	assert.Equal(t, time.Unix(1_700_000_000, 0).Add(5*time.Minute), timeout.until)
	assert.Equal(t, "timeout", log.all()[0].ActionTaken)
}

func TestDispatchKick(t *testing.T) {
	mod := &fakeModerator{}
	log := &memoryViolations{}
	newTestDispatcher(mod, log).Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleLinks, Action: moderation.ActionKick,
	})

	assert.Equal(t, []string{"kick", "send"}, mod.ops())
	assert.Equal(t, "Auto-mod: links", mod.calls[0].content)
	assert.Equal(t, "kick", log.all()[0].ActionTaken)
}

func TestDispatchFailureStillLogsViolation(t *testing.T) {
	mod := &fakeModerator{failOn: "kick"}
	log := &memoryViolations{}
	newTestDispatcher(mod, log).Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleSpam, Action: moderation.ActionKick,
	})

	// The failing step aborts the notice.
	assert.Equal(t, []string{"kick"}, mod.ops())
	entries := log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "kick", entries[0].ActionTaken)
}

func TestUnknownActionFallsBackToWarn(t *testing.T) {
	mod := &fakeModerator{}
	log := &memoryViolations{}
	action := moderation.ResolveAction("ban", moderation.ActionDelete)
	newTestDispatcher(mod, log).Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleCaps, Action: action,
	})

	assert.Equal(t, []string{"send"}, mod.ops())
	assert.True(t, strings.Contains(mod.calls[0].content, "warning"))
	assert.Equal(t, "warn", log.all()[0].ActionTaken)
}

func TestDeleteNoticeExpires(t *testing.T) {
	mod := &fakeModerator{}
	d := NewDispatcher(mod, audit.NewLogger(&memoryViolations{}, zap.NewNop()), zap.NewNop(), 10*time.Millisecond)
	d.Apply(context.Background(), sampleMessage, moderation.Result{
		Violated: true, Type: moderation.RuleLinks, Action: moderation.ActionDelete,
	})

	require.Eventually(t, func() bool {
		return len(mod.ops()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"delete", "send", "delete"}, mod.ops())
	mod.mu.Lock()
	defer mod.mu.Unlock()
	assert.Equal(t, "notice-1", mod.calls[2].target)
}
