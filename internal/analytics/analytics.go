package analytics

import (
	"context"
	"time"

	"warden/internal/moderation"
)

type ViolationSource interface {
	ListViolationsSince(ctx context.Context, guildID string, since time.Time) ([]moderation.Violation, error)
}

type Service struct {
	store ViolationSource
}

func New(store ViolationSource) *Service {
	return &Service{store: store}
}

type Report struct {
	Total    int
	ByRule   map[moderation.RuleType]int
	ByAction map[string]int
	Users    int
}

// TopRule returns the most frequent rule type, ties broken by priority.
func (r Report) TopRule() (moderation.RuleType, int) {
	var (
		top   moderation.RuleType
		count int
	)
	for _, ruleType := range moderation.RuleOrder {
		if n := r.ByRule[ruleType]; n > count {
			top, count = ruleType, n
		}
	}
	return top, count
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	violations, err := s.store.ListViolationsSince(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ByRule:   make(map[moderation.RuleType]int),
		ByAction: make(map[string]int),
	}
	users := make(map[string]struct{})
	for _, v := range violations {
		report.Total++
		report.ByRule[v.RuleType]++
		report.ByAction[v.ActionTaken]++
		users[v.UserID] = struct{}{}
	}
	report.Users = len(users)
	return report, nil
}
