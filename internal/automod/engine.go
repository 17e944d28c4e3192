package automod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warden/internal/moderation"
	"warden/internal/modules/antilink"
	"warden/internal/modules/antispam"
	"warden/internal/modules/badwords"
	"warden/internal/modules/caps"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultViolationLimit = 25
	MaxViolationLimit     = 100
)

// Detector evaluates one category of violation. A nil rule means the guild
// has no row for the detector's type.
type Detector interface {
	Type() moderation.RuleType
	Detect(ctx context.Context, msg moderation.Message, rule *moderation.Rule, now time.Time) (moderation.Result, error)
}

type RuleStore interface {
	GetRule(ctx context.Context, guildID string, ruleType moderation.RuleType) (*moderation.Rule, error)
	ListRules(ctx context.Context, guildID string) ([]moderation.Rule, error)
	UpsertRule(ctx context.Context, rule moderation.Rule) error
}

type ViolationStore interface {
	ListRecentViolations(ctx context.Context, guildID string, limit int) ([]moderation.Violation, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Options struct {
	RuleCacheSize int
	RuleCacheTTL  time.Duration
}

type Engine struct {
	rules      RuleStore
	violations ViolationStore
	detectors  []Detector
	dispatcher *Dispatcher
	cache      *ruleCache
	logger     *zap.Logger
	clock      Clock
}

// DefaultDetectors returns the four detectors in priority order.
func DefaultDetectors(counters antispam.CounterStore) []Detector {
	return []Detector{
		antispam.New(counters),
		badwords.New(),
		antilink.New(),
		caps.New(),
	}
}

// New builds an engine. Detectors are ranked by moderation.RuleOrder
// regardless of the order they are passed in.
func New(rules RuleStore, violations ViolationStore, detectors []Detector, dispatcher *Dispatcher, opts Options, logger *zap.Logger) *Engine {
	return &Engine{
		rules:      rules,
		violations: violations,
		detectors:  rank(detectors),
		dispatcher: dispatcher,
		cache:      newRuleCache(opts.RuleCacheSize, opts.RuleCacheTTL),
		logger:     logger,
		clock:      realClock{},
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
	if e.dispatcher != nil {
		e.dispatcher.WithClock(clock)
	}
}

func rank(detectors []Detector) []Detector {
	ordered := make([]Detector, 0, len(detectors))
	for _, ruleType := range moderation.RuleOrder {
		for _, detector := range detectors {
			if detector.Type() == ruleType {
				ordered = append(ordered, detector)
			}
		}
	}
	return ordered
}

// CheckMessage runs every detector against msg and dispatches at most one
// action. It never returns an error and never panics.
func (e *Engine) CheckMessage(ctx context.Context, msg moderation.Message, isPremium bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("automod check panicked", zap.String("guild_id", msg.GuildID), zap.Any("panic", r))
		}
	}()

	if !isPremium || msg.AuthorBot || msg.GuildID == "" || msg.AuthorAdmin {
		return
	}

	start := e.clock.Now()
	results := e.evaluate(ctx, msg, start)
	messagesChecked.Inc()

	if result, ok := Select(results); ok && e.dispatcher != nil {
		e.dispatcher.Apply(ctx, msg, result)
	}
	checkDuration.Observe(e.clock.Now().Sub(start).Seconds())
}

// evaluate runs the detectors concurrently. Results keep detector order.
func (e *Engine) evaluate(ctx context.Context, msg moderation.Message, now time.Time) []moderation.Result {
	results := make([]moderation.Result, len(e.detectors))
	var group errgroup.Group
	for i, detector := range e.detectors {
		i, detector := i, detector
		group.Go(func() error {
			results[i] = e.run(ctx, detector, msg, now)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (e *Engine) run(ctx context.Context, detector Detector, msg moderation.Message, now time.Time) (result moderation.Result) {
	ruleType := detector.Type()
	result = moderation.None(ruleType)
	defer func() {
		if r := recover(); r != nil {
			detectorErrorCount.WithLabelValues(string(ruleType)).Inc()
			e.logger.Error("detector panicked", zap.String("rule", string(ruleType)), zap.Any("panic", r))
			result = moderation.None(ruleType)
		}
	}()

	rule, err := e.rule(ctx, msg.GuildID, ruleType)
	if err == nil {
		result, err = detector.Detect(ctx, msg, rule, now)
	}
	if err != nil {
		detectorErrorCount.WithLabelValues(string(ruleType)).Inc()
		e.logger.Warn("detector failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("rule", string(ruleType)),
			zap.Error(err),
		)
		return moderation.None(ruleType)
	}
	result.Type = ruleType
	return result
}

func (e *Engine) rule(ctx context.Context, guildID string, ruleType moderation.RuleType) (*moderation.Rule, error) {
	if rule, ok := e.cache.get(guildID, ruleType); ok {
		return rule, nil
	}
	rule, err := e.rules.GetRule(ctx, guildID, ruleType)
	if err != nil {
		return nil, fmt.Errorf("load %s rule: %w", ruleType, err)
	}
	e.cache.put(guildID, ruleType, rule)
	return rule, nil
}

// Select returns the first violated result. Callers pass results in
// priority order.
func Select(results []moderation.Result) (moderation.Result, bool) {
	for _, result := range results {
		if result.Violated {
			return result, true
		}
	}
	return moderation.Result{}, false
}

func (e *Engine) GetRules(ctx context.Context, guildID string) ([]moderation.Rule, error) {
	return e.rules.ListRules(ctx, guildID)
}

// SetRule validates and upserts one rule. An empty action keeps the
// detector default. rawConfig may be empty.
func (e *Engine) SetRule(ctx context.Context, guildID, ruleType string, enabled bool, action string, threshold *int, rawConfig []byte) (moderation.Rule, error) {
	parsedType, err := moderation.ParseRuleType(ruleType)
	if err != nil {
		return moderation.Rule{}, err
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if action != "" {
		if _, ok := moderation.ParseAction(action); !ok {
			return moderation.Rule{}, fmt.Errorf("%w: %q", moderation.ErrUnknownAction, action)
		}
	}
	config, err := moderation.DecodeConfig(parsedType, rawConfig)
	if err != nil {
		return moderation.Rule{}, err
	}

	rule := moderation.Rule{
		GuildID:   guildID,
		Type:      parsedType,
		Enabled:   enabled,
		Action:    action,
		Threshold: threshold,
		Config:    config,
		UpdatedAt: e.clock.Now(),
	}
	if err := e.rules.UpsertRule(ctx, rule); err != nil {
		return moderation.Rule{}, fmt.Errorf("upsert %s rule: %w", parsedType, err)
	}
	e.cache.purge(guildID, parsedType)
	e.logger.Info("automod rule updated",
		zap.String("guild_id", guildID),
		zap.String("rule", string(parsedType)),
		zap.Bool("enabled", enabled),
		zap.String("action", action),
	)
	return rule, nil
}

// GetViolations returns the most recent violations first. A limit of zero or
// less means DefaultViolationLimit; larger limits are capped.
func (e *Engine) GetViolations(ctx context.Context, guildID string, limit int) ([]moderation.Violation, error) {
	if limit <= 0 {
		limit = DefaultViolationLimit
	}
	if limit > MaxViolationLimit {
		limit = MaxViolationLimit
	}
	return e.violations.ListRecentViolations(ctx, guildID, limit)
}
