package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"aptitude-service/internal/analysis"
	"aptitude-service/internal/event"
	"aptitude-service/internal/llm"
	"aptitude-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisJSON = `{"topics":["logic","Logic"],"concepts":["syllogism"],"questionTypes":["logical"],
"difficulty":"hard","keywords":["premise"],"summary":"deductive reasoning"}`

func bookChunks() []models.Chunk {
	texts := []string{
		"A syllogism is a form of deductive reasoning. For example, all men are mortal and Socrates is a man.",
		"The train travels 120 km in 2 hours. Calculate the average speed and compare the ratio of distances.",
		"Weather was pleasant that afternoon and nobody said anything.",
		"Analogy questions test vocabulary: a synonym of rapid is quick, an antonym is slow.",
	}
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{ID: fmt.Sprintf("chunk-%d", i+1), Text: text, ChunkIndex: i}
	}
	return chunks
}

// routingGenerator answers analysis prompts and question prompts differently.
func routingGenerator(questionErr error, analysisCalls *int64) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		if strings.HasPrefix(prompt, "Analyze this text") {
			if analysisCalls != nil {
				atomic.AddInt64(analysisCalls, 1)
			}
			return analysisJSON, nil
		}
		if questionErr != nil {
			return "", questionErr
		}
		return validQuestionJSON, nil
	})
}

func TestRandomQuestions(t *testing.T) {
	svc, _, events := newTestService(t, okGenerator(nil), bookChunks())

	res, err := svc.RandomQuestions(context.Background(), RandomQuestionsParams{NumQuestions: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, models.DifficultyMedium, res.Difficulty)
	assert.Equal(t, models.AptitudeTypes, res.QuestionTypes)
	assert.Equal(t, models.TestTypeAptitude, res.TestType)

	ids := map[string]bool{}
	for i, q := range res.Questions {
		assert.True(t, strings.HasPrefix(q.ID, "aptitude-"))
		assert.True(t, strings.HasSuffix(q.ID, fmt.Sprintf("-%d", i)))
		assert.NotEmpty(t, q.SourceChunk)
		assert.NotEmpty(t, q.Topic)
		ids[q.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, []string{event.EventTypeQuestionsGenerated}, events.Keys())
}

func TestRandomQuestionsNoChunks(t *testing.T) {
	svc, _, _ := newTestService(t, okGenerator(nil), nil)

	_, err := svc.RandomQuestions(context.Background(), RandomQuestionsParams{})

	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestPickTopic(t *testing.T) {
	svc, _, _ := newTestService(t, okGenerator(nil), nil)

	assert.Equal(t, "reasoning", svc.pickTopic("this that with a an it"))
	assert.Equal(t, "reasoning", svc.pickTopic(""))
	assert.Equal(t, "syllogism", svc.pickTopic("which their syllogism about"))

	for i := 0; i < 20; i++ {
		topic := svc.pickTopic("Apples and oranges grow there")
		assert.Contains(t, []string{"apples", "oranges"}, topic)
	}
}

func TestIntelligentTest(t *testing.T) {
	svc, st, _ := newTestService(t, routingGenerator(nil, nil), bookChunks())

	res, err := svc.IntelligentTest(context.Background(), ChunkTestParams{NumQuestions: 2, Difficulty: "easy"})

	require.NoError(t, err)
	assert.Equal(t, models.TestTypeIntelligentAptitude, res.TestType)
	require.Len(t, res.Questions, 2)
	for _, q := range res.Questions {
		assert.False(t, q.Fallback)
		assert.NotEmpty(t, q.SourceChunk)
		assert.Equal(t, []string{q.SourceChunk}, q.Sources)
		assert.True(t, strings.HasPrefix(q.ID, res.TestID+"-q"))
	}
	assert.NotEqual(t, "chunk-3", res.Questions[0].SourceChunk)
	assert.Equal(t, analysis.MethodHeuristic, res.Metadata.AnalysisMethod)
	assert.False(t, res.Metadata.ModelAnalyzed)
	assert.Equal(t, 0, res.Metadata.FallbackQuestions)

	stored, err := st.Get(context.Background(), res.TestID)
	require.NoError(t, err)
	assert.Equal(t, models.TestTypeIntelligentAptitude, stored.TestType)
	require.NotNil(t, stored.Metadata)
	assert.Equal(t, len(bookChunks()), stored.Metadata.TotalChunks)
}

func TestIntelligentTestPadsWithFallbacks(t *testing.T) {
	svc, _, _ := newTestService(t, routingGenerator(errors.New("quota"), nil), bookChunks())

	res, err := svc.IntelligentTest(context.Background(), ChunkTestParams{NumQuestions: 3})

	require.NoError(t, err)
	require.Len(t, res.Questions, 3)
	for _, q := range res.Questions {
		assert.True(t, q.Fallback)
		assert.Len(t, q.Options, 4)
	}
	assert.Equal(t, 3, res.Metadata.FallbackQuestions)
}

func TestModelTestUsesModelAnalysis(t *testing.T) {
	var analysisCalls int64
	svc, _, events := newTestService(t, routingGenerator(nil, &analysisCalls), bookChunks())

	res, err := svc.ModelTest(context.Background(), ChunkTestParams{NumQuestions: 1})

	require.NoError(t, err)
	assert.Equal(t, models.TestTypeAIAptitude, res.TestType)
	assert.Equal(t, int64(len(bookChunks())), atomic.LoadInt64(&analysisCalls))
	assert.True(t, res.Metadata.ModelAnalyzed)
	assert.Equal(t, len(bookChunks()), res.ContentAnalysis.ModelAnalyzed)
	assert.Equal(t, []string{event.EventTypeAnalysisCompleted, event.EventTypeTestCreated}, events.Keys())
}

func TestChunkTestsNeedChunks(t *testing.T) {
	svc, _, _ := newTestService(t, okGenerator(nil), nil)
	ctx := context.Background()

	_, err := svc.IntelligentTest(ctx, ChunkTestParams{})
	assert.ErrorIs(t, err, ErrNoChunks)
	_, err = svc.ModelTest(ctx, ChunkTestParams{})
	assert.ErrorIs(t, err, ErrNoChunks)
	_, err = svc.ContentAnalysis(ctx)
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestContentAnalysisFallsBackPerChunk(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "train travels") {
			return "not json at all", nil
		}
		return analysisJSON, nil
	})
	svc, _, _ := newTestService(t, gen, bookChunks())

	report, err := svc.ContentAnalysis(context.Background())

	require.NoError(t, err)
	assert.Equal(t, analysis.MethodModel, report.Method)
	assert.Equal(t, len(bookChunks()), report.TotalChunks)
	byModel := 0
	for _, a := range report.Chunks {
		if a.AnalyzedByModel {
			byModel++
		}
	}
	assert.Equal(t, len(bookChunks())-1, byModel)
}

func TestAsk(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		return "echo: " + prompt, nil
	})
	svc, _, _ := newTestService(t, gen, nil)

	out, err := svc.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)

	_, err = svc.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestAskWithoutGenerator(t *testing.T) {
	svc := NewTestService(Deps{Store: nil})

	_, err := svc.Ask(context.Background(), "hello")

	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestSummarize(t *testing.T) {
	r := &models.ContentReport{
		Topics:   []models.TopicCount{{Topic: "logic"}},
		Concepts: []string{"a", "b"},
		Method:   analysis.MethodHeuristic,
	}
	sum := Summarize(r)
	assert.Equal(t, 1, sum.Topics)
	assert.Equal(t, 2, sum.Concepts)
	assert.NotNil(t, sum.Recommendations)
}
