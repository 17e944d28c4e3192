package automod

import (
	"time"

	"warden/internal/moderation"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ruleCache remembers rule lookups, including misses, for a short TTL.
// Writes through Engine.SetRule purge the entry.
type ruleCache struct {
	entries *expirable.LRU[string, *moderation.Rule]
}

func newRuleCache(size int, ttl time.Duration) *ruleCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &ruleCache{entries: expirable.NewLRU[string, *moderation.Rule](size, nil, ttl)}
}

func ruleKey(guildID string, ruleType moderation.RuleType) string {
	return guildID + "/" + string(ruleType)
}

func (c *ruleCache) get(guildID string, ruleType moderation.RuleType) (*moderation.Rule, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(ruleKey(guildID, ruleType))
}

func (c *ruleCache) put(guildID string, ruleType moderation.RuleType, rule *moderation.Rule) {
	if c == nil {
		return
	}
	c.entries.Add(ruleKey(guildID, ruleType), rule)
}

func (c *ruleCache) purge(guildID string, ruleType moderation.RuleType) {
	if c == nil {
		return
	}
	c.entries.Remove(ruleKey(guildID, ruleType))
}
