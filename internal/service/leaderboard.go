package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const leaderboardDateLayout = "02.01.2006 15:04"

type LeaderboardEntry struct {
	UserID      int64   `json:"user_id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Score       int     `json:"score"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	Date        string  `json:"date"`
}

// LeaderboardService keeps the best quiz result of every user.
type LeaderboardService interface {
	// AddEntry stores the entry if it beats the user's previous best and
	// reports whether it did.
	AddEntry(ctx context.Context, entry LeaderboardEntry) bool
	GetTop(ctx context.Context, limit int) []LeaderboardEntry
	GetUserPosition(ctx context.Context, userID int64) (int, *LeaderboardEntry)
}

type LeaderboardOptions struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewLeaderboardService picks Redis when an address is configured and
// falls back to memory otherwise.
func NewLeaderboardService(opts LeaderboardOptions, logger *slog.Logger) LeaderboardService {
	if opts.RedisAddr != "" {
		return NewRedisLeaderboardService(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, logger)
	}

	// results are lost on restart
	return NewMemoryLeaderboardService()
}

// NewEntry fills percentage and date for a finished attempt.
func NewEntry(userID int64, username, displayName string, score, total int) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		Score:       score,
		Total:       total,
		Percentage:  Percentage(score, total),
		Date:        time.Now().Format(leaderboardDateLayout),
	}
}

func isBetter(candidate, current LeaderboardEntry) bool {
	if candidate.Percentage != current.Percentage {
		return candidate.Percentage > current.Percentage
	}
	return candidate.Score > current.Score
}

func sortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return isBetter(entries[i], entries[j])
	})
}

type MemoryLeaderboardService struct {
	mu      sync.RWMutex
	entries []LeaderboardEntry
}

// NewMemoryLeaderboardService keeps results in process memory.
func NewMemoryLeaderboardService() *MemoryLeaderboardService {
	return &MemoryLeaderboardService{
		entries: make([]LeaderboardEntry, 0),
	}
}

func (ms *MemoryLeaderboardService) AddEntry(_ context.Context, entry LeaderboardEntry) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i, existing := range ms.entries {
		if existing.UserID == entry.UserID {
			if isBetter(entry, existing) {
				ms.entries[i] = entry
				return true
			}
			return false
		}
	}

	ms.entries = append(ms.entries, entry)
	return true
}

func (ms *MemoryLeaderboardService) GetTop(_ context.Context, limit int) []LeaderboardEntry {
	ms.mu.RLock()
	sorted := make([]LeaderboardEntry, len(ms.entries))
	copy(sorted, ms.entries)
	ms.mu.RUnlock()

	sortEntries(sorted)

	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}

	return sorted[:limit]
}

func (ms *MemoryLeaderboardService) GetUserPosition(ctx context.Context, userID int64) (int, *LeaderboardEntry) {
	for i, entry := range ms.GetTop(ctx, 0) {
		if entry.UserID == userID {
			return i + 1, &entry
		}
	}
	return -1, nil
}
