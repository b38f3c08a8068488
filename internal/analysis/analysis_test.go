package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"aptitude-service/internal/llm"
	"aptitude-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const richText = "Logical reasoning relies on a premise and a conclusion. For example, a syllogism " +
	"is defined as an argument with two premises. Solve the equation 2 + 3 = 5 using a simple method."

func TestAnalyzeChunkHeuristic(t *testing.T) {
	a := NewHeuristicAnalyzer().AnalyzeChunk(models.Chunk{ID: "c1", Text: richText}, 0)

	topicNames := make([]string, 0, len(a.Topics))
	for _, tm := range a.Topics {
		topicNames = append(topicNames, tm.Topic)
	}
	assert.Contains(t, topicNames, "logic")
	assert.Contains(t, topicNames, "problem_solving")
	assert.Contains(t, a.Concepts, "premise")
	assert.Contains(t, a.Concepts, "equation")
	assert.Contains(t, a.QuestionTypes, "logical")
	assert.Contains(t, a.QuestionTypes, "quantitative")
	assert.Equal(t, models.DifficultyEasy, a.Difficulty)
	assert.True(t, a.Structure.HasExamples)
	assert.True(t, a.Structure.HasDefinitions)
	assert.True(t, a.Structure.HasNumbers)
	assert.True(t, a.Structure.HasFormulas)
	assert.LessOrEqual(t, len(a.Keywords), 10)
}

func TestAssessDifficulty(t *testing.T) {
	testCases := []struct {
		text     string
		expected string
	}{
		{"nothing special here", models.DifficultyMedium},
		{"an advanced and complex topic", models.DifficultyHard},
		{"a basic and simple idea", models.DifficultyEasy},
		{"a typical standard case", models.DifficultyMedium},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, assessDifficulty(tc.text))
		})
	}
}

func TestExtractKeywordsSkipsStopWordsAndShortWords(t *testing.T) {
	got := extractKeywords("this pattern, pattern and the sequence were cat", 10)
	assert.Equal(t, []string{"pattern", "sequence"}, got)
}

func TestHeuristicReportAndRecommendations(t *testing.T) {
	var chunks []models.Chunk
	for i := 0; i < 7; i++ {
		chunks = append(chunks, models.Chunk{ID: fmt.Sprintf("c%d", i+1), Text: richText})
	}
	chunks = append(chunks, models.Chunk{ID: "c8", Text: "plain words only"})

	report := NewHeuristicAnalyzer().Analyze(chunks)

	assert.Equal(t, 8, report.TotalChunks)
	assert.Equal(t, 8, report.AnalyzedChunks)
	assert.Equal(t, MethodHeuristic, report.Method)
	require.NotEmpty(t, report.Topics)
	assert.Equal(t, 7, report.Topics[0].Count)
	assert.LessOrEqual(t, len(report.Topics[0].SampleChunkIDs), 5)
	assert.Contains(t, report.TopicNames(), "logic")

	var focus bool
	for _, r := range report.Recommendations {
		if r.Type == "topic_focus" && r.Target == "logic" {
			focus = true
			assert.Equal(t, "high", r.Priority)
		}
	}
	assert.True(t, focus)
	assert.Equal(t, 7, report.DifficultyDistribution.Easy)
	assert.Equal(t, 1, report.DifficultyDistribution.Medium)
}

func TestScoreChunk(t *testing.T) {
	a := models.ChunkAnalysis{
		Topics:        []models.TopicMatch{{Topic: "logic"}, {Topic: "spatial"}},
		Concepts:      []string{"premise"},
		QuestionTypes: []string{"logical", "verbal"},
		Structure:     models.ContentStructure{HasExamples: true, HasDefinitions: true, HasNumbers: true},
	}
	assert.InDelta(t, 2*2+1+2*1.5+1+1+0.5, ScoreChunk(a), 1e-9)
	assert.Equal(t, 0.0, ScoreChunk(models.ChunkAnalysis{}))
}

func TestSelectChunksOrdersByScore(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "plain", Text: "plain words only"},
		{ID: "rich", Text: richText},
		{ID: "medium", Text: "a pattern in the sequence"},
	}
	report := NewHeuristicAnalyzer().Analyze(chunks)

	got := SelectChunks(chunks, report, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "rich", got[0].ID)
	assert.Equal(t, "medium", got[1].ID)
	assert.Len(t, SelectChunks(chunks, report, 10), 3)
	assert.Empty(t, SelectChunks(chunks, report, 0))
}

func TestRelevantChunks(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "c1", Text: "The quick brown fox jumps."},
		{ID: "c2", Text: "A syllogism has a premise."},
		{ID: "c3", Text: "Nothing to see."},
	}
	report := NewHeuristicAnalyzer().Analyze(chunks)

	assert.Equal(t, []string{"c1"}, chunkIDs(RelevantChunks("Fox", chunks, report)))
	assert.Equal(t, []string{"c2"}, chunkIDs(RelevantChunks("premises", chunks, report)))
	assert.Equal(t, []string{"c1", "c2", "c3"}, chunkIDs(RelevantChunks("zebra", chunks, report)))
}

func TestModelAnalyzerParsesAndFallsBack(t *testing.T) {
	var calls int32
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, llm.AnalysisTemperature, opts.Temperature)
		switch {
		case strings.Contains(prompt, "first chunk"):
			return "Sure! ```json\n{\"topics\":[\"Logic\",\"logic\"],\"concepts\":[\"premise\"],\"questionTypes\":[\"logical\"],\"difficulty\":\"hard\",\"keywords\":[\"premise\"]}\n```", nil
		case strings.Contains(prompt, "second chunk"):
			return "no json at all", nil
		case strings.Contains(prompt, "third chunk"):
			return `{"topics":[],"difficulty":"impossible"}`, nil
		default:
			return "", errors.New("upstream down")
		}
	})

	chunks := []models.Chunk{
		{ID: "c1", Text: "The first chunk covers a premise."},
		{ID: "c2", Text: "The second chunk is a basic pattern."},
		{ID: "c3", Text: "The third chunk."},
		{ID: "c4", Text: "The fourth chunk."},
	}
	analyzer := NewModelAnalyzer(gen, nil, 3, 2)
	report := analyzer.Analyze(context.Background(), chunks)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 4, report.TotalChunks)
	assert.Equal(t, 3, report.AnalyzedChunks)
	assert.Equal(t, MethodModel, report.Method)
	require.Len(t, report.Chunks, 3)

	first := report.Chunks[0]
	assert.True(t, first.AnalyzedByModel)
	require.Len(t, first.Topics, 1)
	assert.Equal(t, "logic", first.Topics[0].Topic)
	assert.Equal(t, models.DifficultyHard, first.Difficulty)

	assert.False(t, report.Chunks[1].AnalyzedByModel)
	assert.Equal(t, models.DifficultyEasy, report.Chunks[1].Difficulty)
	assert.False(t, report.Chunks[2].AnalyzedByModel)
}

func chunkIDs(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}
