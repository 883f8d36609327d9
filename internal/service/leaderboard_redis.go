package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardEntriesKey = "leaderboard:entries"
	leaderboardRankKey    = "leaderboard:rank"
)

// RedisLeaderboardService keeps entries as JSON in a hash keyed by user id
// and ranks them in a sorted set.
type RedisLeaderboardService struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisLeaderboardService(addr, password string, db int, logger *slog.Logger) *RedisLeaderboardService {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisLeaderboardService{rdb: rdb, logger: logger}
}

func (rs *RedisLeaderboardService) Ping(ctx context.Context) error {
	return rs.rdb.Ping(ctx).Err()
}

func (rs *RedisLeaderboardService) Close() error {
	return rs.rdb.Close()
}

// rankScore orders by percentage first and by raw score on ties.
func rankScore(entry LeaderboardEntry) float64 {
	return entry.Percentage*1e6 + float64(entry.Score)
}

func (rs *RedisLeaderboardService) AddEntry(ctx context.Context, entry LeaderboardEntry) bool {
	field := strconv.FormatInt(entry.UserID, 10)
	improved := false

	err := rs.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, leaderboardEntriesKey, field).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var current LeaderboardEntry
			if err := json.Unmarshal(raw, &current); err != nil {
				return err
			}
			if !isBetter(entry, current) {
				return nil
			}
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, leaderboardEntriesKey, field, data)
			pipe.ZAdd(ctx, leaderboardRankKey, redis.Z{Score: rankScore(entry), Member: field})
			return nil
		})
		if err != nil {
			return err
		}
		improved = true
		return nil
	}, leaderboardEntriesKey)
	if err != nil {
		rs.logger.Error("error saving leaderboard entry", "user_id", entry.UserID, "err", err)
		return false
	}

	return improved
}

func (rs *RedisLeaderboardService) GetTop(ctx context.Context, limit int) []LeaderboardEntry {
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}

	ids, err := rs.rdb.ZRevRange(ctx, leaderboardRankKey, 0, stop).Result()
	if err != nil {
		rs.logger.Error("error loading leaderboard ranks", "err", err)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	values, err := rs.rdb.HMGet(ctx, leaderboardEntriesKey, ids...).Result()
	if err != nil {
		rs.logger.Error("error loading leaderboard entries", "err", err)
		return nil
	}

	entries := make([]LeaderboardEntry, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var entry LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			rs.logger.Warn("skipping malformed leaderboard entry", "err", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

func (rs *RedisLeaderboardService) GetUserPosition(ctx context.Context, userID int64) (int, *LeaderboardEntry) {
	field := strconv.FormatInt(userID, 10)

	rank, err := rs.rdb.ZRevRank(ctx, leaderboardRankKey, field).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rs.logger.Error("error loading leaderboard rank", "user_id", userID, "err", err)
		}
		return -1, nil
	}

	raw, err := rs.rdb.HGet(ctx, leaderboardEntriesKey, field).Bytes()
	if err != nil {
		rs.logger.Error("error loading leaderboard entry", "user_id", userID, "err", err)
		return -1, nil
	}

	var entry LeaderboardEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return -1, nil
	}

	return int(rank) + 1, &entry
}
