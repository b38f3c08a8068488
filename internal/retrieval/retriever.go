package retrieval

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"aptitude-service/internal/models"
)

const (
	longChunkChars = 500
	longChunkBonus = 0.1
)

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// LockedRand is a Shuffler safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func NewTimeSeededRand() *LockedRand {
	return NewLockedRand(time.Now().UnixNano())
}

func (l *LockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rnd.Shuffle(n, swap)
}

func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

type ScoredChunk struct {
	Chunk models.Chunk
	Score float64
}

// Retriever ranks chunks by literal keyword occurrence.
// With a nil Shuffler results are fully deterministic.
type Retriever struct {
	shuffler Shuffler
}

func NewRetriever(shuffler Shuffler) *Retriever {
	return &Retriever{shuffler: shuffler}
}

// Score counts non-overlapping case-insensitive occurrences of query in text
// and adds a small bonus for long chunks.
func Score(query, text string) float64 {
	score := 0.0
	if q := strings.ToLower(query); q != "" {
		score = float64(strings.Count(strings.ToLower(text), q))
	}
	if utf8.RuneCountInString(text) > longChunkChars {
		score += longChunkBonus
	}
	return score
}

func (r *Retriever) Rank(query string, chunks []models.Chunk) []ScoredChunk {
	scored := make([]ScoredChunk, len(chunks))
	for i, ch := range chunks {
		scored[i] = ScoredChunk{Chunk: ch, Score: Score(query, ch.Text)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Retrieve returns at most topK chunks for query. When shuffling is enabled
// and there are more candidates than topK, the result is a random sample of
// the best max(topK, n/2) candidates. A non-positive topK returns nothing.
func (r *Retriever) Retrieve(query string, chunks []models.Chunk, topK int) []models.Chunk {
	if topK <= 0 {
		return []models.Chunk{}
	}
	scored := r.Rank(query, chunks)

	if r.shuffler != nil && len(scored) > topK {
		pool := len(scored) / 2
		if pool < topK {
			pool = topK
		}
		scored = scored[:pool]
		r.shuffler.Shuffle(len(scored), func(i, j int) {
			scored[i], scored[j] = scored[j], scored[i]
		})
	}

	if len(scored) > topK {
		scored = scored[:topK]
	}
	out := make([]models.Chunk, len(scored))
	for i, s := range scored {
		out[i] = s.Chunk
	}
	return out
}
