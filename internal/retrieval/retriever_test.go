package retrieval

import (
	"fmt"
	"strings"
	"testing"

	"aptitude-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{ID: fmt.Sprintf("c%d", i+1), Text: t, ChunkIndex: i}
	}
	return chunks
}

func TestScore(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		text     string
		expected float64
	}{
		{"case insensitive", "Fox", "the fox and the FOX", 2},
		{"literal not pattern", "a.b", "axb a.b a.b", 2},
		{"regex metacharacters", "(x)", "(x) (x) (y)", 2},
		{"no match", "cat", "the dog", 0},
		{"empty query", "", "anything", 0},
		{"long bonus", "zzz", strings.Repeat("a", 501), 0.1},
		{"exactly 500 has no bonus", "zzz", strings.Repeat("a", 500), 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Score(tc.query, tc.text), 1e-9)
		})
	}
}

func TestRetrieveFoxScenario(t *testing.T) {
	chunks := []models.Chunk{{ID: "c1", Text: "The quick brown fox jumps. It is very fast."}}
	r := NewRetriever(NewLockedRand(1))

	got := r.Retrieve("fox", chunks, 1)

	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestRetrieveDeterministicOrdersByScore(t *testing.T) {
	chunks := makeChunks("logic", "logic logic logic", "nothing here", "logic logic")
	r := NewRetriever(nil)

	got := r.Retrieve("logic", chunks, 3)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"c2", "c4", "c1"}, ids(got))
	assert.Equal(t, got, r.Retrieve("logic", chunks, 3))
}

func TestRetrieveStableForTies(t *testing.T) {
	chunks := makeChunks("a", "b", "c", "d")
	r := NewRetriever(nil)
	assert.Equal(t, []string{"c1", "c2"}, ids(r.Retrieve("zzz", chunks, 2)))
}

func TestRetrieveNeverExceedsTopKAndOnlyReturnsInputs(t *testing.T) {
	var texts []string
	for i := 0; i < 20; i++ {
		texts = append(texts, strings.Repeat("pattern ", i))
	}
	chunks := makeChunks(texts...)
	known := map[string]bool{}
	for _, c := range chunks {
		known[c.ID] = true
	}

	r := NewRetriever(NewLockedRand(42))
	for _, k := range []int{0, -1} {
		assert.Empty(t, r.Retrieve("pattern", chunks, k), "k=%d", k)
		assert.Empty(t, NewRetriever(nil).Retrieve("pattern", chunks, k), "k=%d", k)
	}
	for k := 1; k <= 25; k++ {
		got := r.Retrieve("pattern", chunks, k)
		expected := k
		if expected > len(chunks) {
			expected = len(chunks)
		}
		assert.Len(t, got, expected)
		seen := map[string]bool{}
		for _, c := range got {
			assert.True(t, known[c.ID])
			assert.False(t, seen[c.ID], "duplicate %s", c.ID)
			seen[c.ID] = true
		}
	}
}

func TestRetrieveRandomizedSamplesTopHalf(t *testing.T) {
	// c20 has the highest score, c1 the lowest.
	var texts []string
	for i := 1; i <= 20; i++ {
		texts = append(texts, strings.Repeat("key ", i))
	}
	chunks := makeChunks(texts...)
	r := NewRetriever(NewLockedRand(7))

	for run := 0; run < 50; run++ {
		for _, c := range r.Retrieve("key", chunks, 4) {
			var n int
			fmt.Sscanf(c.ID, "c%d", &n)
			assert.Greater(t, n, 10, "chunk %s is outside the top half", c.ID)
		}
	}
}

func TestRetrieveSameSeedSameResult(t *testing.T) {
	chunks := makeChunks("x", "x x", "x x x", "x x x x", "x x x x x", "x x x x x x")
	a := NewRetriever(NewLockedRand(99)).Retrieve("x", chunks, 2)
	b := NewRetriever(NewLockedRand(99)).Retrieve("x", chunks, 2)
	assert.Equal(t, ids(a), ids(b))
}

func TestRetrieveEmptyCandidates(t *testing.T) {
	r := NewRetriever(NewLockedRand(1))
	assert.Empty(t, r.Retrieve("anything", nil, 4))
}

func ids(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}
