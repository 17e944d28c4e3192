package storage

import (
	"context"
	"strconv"
	"time"

	"warden/internal/moderation"

	"github.com/redis/go-redis/v9"
)

var redisSpamPrefix = "spam/"

// Counters for users who stopped talking are left to expire; an absent key
// resets to 1 exactly like a stale one.
const redisSpamTTL = time.Hour

// RedisCounterStore keeps spam counters in Redis hashes instead of SQL rows.
// It has the same read-then-write semantics as the SQL store.
type RedisCounterStore struct {
	Client *redis.Client
}

func NewRedisCounterStore(ctx context.Context, redisURL string) (*RedisCounterStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCounterStore{Client: client}, nil
}

func (s *RedisCounterStore) Close() {
	if s.Client != nil {
		_ = s.Client.Close()
	}
}

func redisSpamKey(guildID, userID string) string {
	return redisSpamPrefix + guildID + "/" + userID
}

func (s *RedisCounterStore) GetSpamCounter(ctx context.Context, guildID, userID string) (moderation.SpamCounter, bool, error) {
	counter := moderation.SpamCounter{GuildID: guildID, UserID: userID}
	fields, err := s.Client.HGetAll(ctx, redisSpamKey(guildID, userID)).Result()
	if err != nil {
		return moderation.SpamCounter{}, false, err
	}
	if len(fields) == 0 {
		return counter, false, nil
	}
	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return counter, false, nil
	}
	last, err := strconv.ParseInt(fields["last"], 10, 64)
	if err != nil {
		return counter, false, nil
	}
	counter.MessageCount = count
	counter.LastMessageAt = time.UnixMilli(last)
	return counter, true, nil
}

func (s *RedisCounterStore) UpsertSpamCounter(ctx context.Context, counter moderation.SpamCounter) error {
	key := redisSpamKey(counter.GuildID, counter.UserID)
	multi := s.Client.TxPipeline()
	multi.HSet(ctx, key, "count", counter.MessageCount, "last", counter.LastMessageAt.UnixMilli())
	multi.Expire(ctx, key, redisSpamTTL)
	_, err := multi.Exec(ctx)
	return err
}
