package service

import (
	"math/rand"
	"sync"
	"time"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func shuffle(n int, swap func(i, j int)) {
	rngMu.Lock()
	defer rngMu.Unlock()

	// Fisher-Yates
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		swap(i, j)
	}
}

// SampleQuestionIDs returns a uniform sample without replacement of
// min(limit, len(ids)) ids. The input slice is not modified.
func SampleQuestionIDs(ids []int64, limit int) []int64 {
	shuffled := make([]int64, len(ids))
	copy(shuffled, ids)

	shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if limit <= 0 || limit > len(shuffled) {
		limit = len(shuffled)
	}

	return shuffled[:limit]
}

// ShuffleOptions returns a random permutation of options. Correctness
// stays on each option value, so positions carry no meaning.
func ShuffleOptions(options []AnswerOption) []AnswerOption {
	shuffled := make([]AnswerOption, len(options))
	copy(shuffled, options)

	shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}

// PresentOptions shuffles options and caps them at limit, keeping the
// correct option among the ones shown.
func PresentOptions(options []AnswerOption, limit int) []AnswerOption {
	shuffled := ShuffleOptions(options)
	if limit <= 0 || len(shuffled) <= limit {
		return shuffled
	}

	for i := limit; i < len(shuffled); i++ {
		if shuffled[i].IsCorrect {
			rngMu.Lock()
			j := rng.Intn(limit)
			rngMu.Unlock()
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			break
		}
	}

	return shuffled[:limit]
}
