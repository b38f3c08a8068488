package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aptitude-service/internal/llm"
	"aptitude-service/internal/models"
	"aptitude-service/internal/retrieval"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticGenerator(text string, err error) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		return text, err
	})
}

func foxCorpus() *Corpus {
	return NewCorpus([]models.Chunk{{ID: "c1", Text: "The quick brown fox jumps. It is very fast."}})
}

func assertWellFormed(t *testing.T, q models.Question) {
	t.Helper()
	assert.NotEmpty(t, q.Question)
	assert.Len(t, q.Options, 4)
	assert.GreaterOrEqual(t, q.Answer, 0)
	assert.LessOrEqual(t, q.Answer, 3)
	assert.NotEmpty(t, q.Explanation)
	assert.True(t, models.IsValidDifficulty(q.Difficulty))
	assert.True(t, models.IsValidQuestionType(q.QuestionType))
}

func TestParseQuestion(t *testing.T) {
	v := validator.New()
	testCases := []struct {
		name    string
		raw     string
		answer  int
		wantErr bool
	}{
		{"plain", `{"question":"Q?","options":["a","b","c","d"],"answer":2,"explanation":"e"}`, 2, false},
		{"fenced with prose", "Here you go:\n```json\n{\"question\":\"Q?\",\"options\":[\"a\",\"b\",\"c\",\"d\"],\"answer\":1,\"explanation\":\"e\"}\n```", 1, false},
		{"float answer", `{"question":"Q?","options":["a","b","c","d"],"answer":3.0,"explanation":"e"}`, 3, false},
		{"string answer", `{"question":"Q?","options":["a","b","c","d"],"answer":"0","explanation":"e"}`, 0, false},
		{"letter answer", `{"question":"Q?","options":["a","b","c","d"],"answer":"C","explanation":"e"}`, 2, false},
		{"answer out of range", `{"question":"Q?","options":["a","b","c","d"],"answer":4,"explanation":"e"}`, 0, true},
		{"missing answer", `{"question":"Q?","options":["a","b","c","d"],"explanation":"e"}`, 0, true},
		{"three options", `{"question":"Q?","options":["a","b","c"],"answer":0,"explanation":"e"}`, 0, true},
		{"blank option", `{"question":"Q?","options":["a","","c","d"],"answer":0,"explanation":"e"}`, 0, true},
		{"missing question", `{"options":["a","b","c","d"],"answer":0,"explanation":"e"}`, 0, true},
		{"options wrong type", `{"question":"Q?","options":"abcd","answer":0,"explanation":"e"}`, 0, true},
		{"not json", `I cannot help with that.`, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := ParseQuestion(tc.raw, v)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, q.Answer)
			assert.Equal(t, tc.answer, *q.Answer)
		})
	}
}

func TestGenerateQuestionFoxScenario(t *testing.T) {
	var prompt string
	gen := llm.GeneratorFunc(func(ctx context.Context, p string, opts llm.Options) (string, error) {
		prompt = p
		assert.Equal(t, 0.7, opts.Temperature)
		return `{"question":"How is the fox described?","options":["Slow","Fast","Sleepy","Lazy"],"answer":1,` +
			`"explanation":"The text says it is very fast.","difficulty":"medium","questionType":"verbal",` +
			`"reasoningType":"verbal","sources":["Context1"]}`, nil
	})
	o := NewOrchestrator(gen, retrieval.NewRetriever(retrieval.NewLockedRand(1)))

	q := o.GenerateQuestion(context.Background(), foxCorpus(), "fox", "medium", "verbal")

	assertWellFormed(t, q)
	assert.False(t, q.Fallback)
	assert.Equal(t, 1, q.Answer)
	assert.Equal(t, []string{"c1"}, q.Sources)
	require.Len(t, q.Context, 1)
	assert.Equal(t, "c1", q.Context[0].ID)
	assert.Contains(t, prompt, "Context1:\nThe quick brown fox jumps. It is very fast.")
	assert.Contains(t, prompt, `Topic: "fox"`)
	assert.Contains(t, prompt, "IMPORTANT INSTRUCTIONS")
}

func TestGenerateQuestionUpstreamFailureFallsBack(t *testing.T) {
	o := NewOrchestrator(staticGenerator("", errors.New("connection refused")), retrieval.NewRetriever(nil))

	q := o.GenerateQuestion(context.Background(), foxCorpus(), "fox", "hard", "logical")

	assertWellFormed(t, q)
	assert.True(t, q.Fallback)
	assert.Equal(t, 0, q.Answer)
	assert.Equal(t, []string{"Option A", "Option B", "Option C", "Option D"}, q.Options)
	assert.Equal(t, "hard", q.Difficulty)
	assert.Equal(t, "logical", q.QuestionType)
	assert.Contains(t, q.Sources, "c1")
	assert.Contains(t, q.Question, "fox")
	assert.Contains(t, q.Explanation, "could not be reached")
}

func TestGenerateQuestionUnparseableFallsBack(t *testing.T) {
	o := NewOrchestrator(staticGenerator(`{"question": "half`, nil), retrieval.NewRetriever(nil))

	q := o.GenerateQuestion(context.Background(), foxCorpus(), "fox", "easy", "verbal")

	assertWellFormed(t, q)
	assert.True(t, q.Fallback)
	assert.Contains(t, q.Explanation, "could not be parsed")
}

func TestGenerateQuestionSchemaViolationFallsBack(t *testing.T) {
	o := NewOrchestrator(staticGenerator(`{"question":"Q","options":["a","b"],"answer":7,"explanation":"e"}`, nil), retrieval.NewRetriever(nil))

	q := o.GenerateQuestion(context.Background(), foxCorpus(), "fox", "medium", "mixed")

	assertWellFormed(t, q)
	assert.True(t, q.Fallback)
}

func TestGenerateQuestionNoContent(t *testing.T) {
	called := false
	gen := llm.GeneratorFunc(func(ctx context.Context, p string, opts llm.Options) (string, error) {
		called = true
		return "", nil
	})
	o := NewOrchestrator(gen, retrieval.NewRetriever(nil))

	q := o.GenerateQuestion(context.Background(), NewCorpus(nil), "fox", "bogus", "bogus")

	assert.False(t, called)
	assertWellFormed(t, q)
	assert.True(t, q.Fallback)
	assert.Equal(t, "medium", q.Difficulty)
	assert.Equal(t, "mixed", q.QuestionType)
	assert.Empty(t, q.Sources)
	assert.True(t, strings.HasPrefix(q.Question, "Based on general mixed reasoning principles"))
}

func TestGenerateQuestionCoercesInvalidEnums(t *testing.T) {
	o := NewOrchestrator(staticGenerator(`{"question":"Q","options":["a","b","c","d"],"answer":0,"explanation":"e",`+
		`"difficulty":"extreme","questionType":"poetry","reasoningType":"??","sources":["Context9","bogus"]}`, nil), retrieval.NewRetriever(nil))

	q := o.GenerateQuestion(context.Background(), foxCorpus(), "fox", "easy", "quantitative")

	assert.False(t, q.Fallback)
	assert.Equal(t, "easy", q.Difficulty)
	assert.Equal(t, "quantitative", q.QuestionType)
	assert.Equal(t, "quantitative", q.ReasoningType)
	assert.Equal(t, []string{"c1"}, q.Sources)
}

func TestGenerateQuestionTemperatureByDifficulty(t *testing.T) {
	for difficulty, expected := range map[string]float64{"easy": 0.5, "medium": 0.7, "hard": 0.8} {
		t.Run(difficulty, func(t *testing.T) {
			var got float64
			gen := llm.GeneratorFunc(func(ctx context.Context, p string, opts llm.Options) (string, error) {
				got = opts.Temperature
				return "", errors.New("stop")
			})
			NewOrchestrator(gen, retrieval.NewRetriever(nil)).GenerateQuestion(context.Background(), foxCorpus(), "fox", difficulty, "mixed")
			assert.Equal(t, expected, got)
		})
	}
}

func TestResolveSources(t *testing.T) {
	contexts := []models.Chunk{{ID: "chunk-7"}, {ID: "chunk-2"}}
	testCases := []struct {
		name     string
		sources  []string
		expected []string
	}{
		{"labels", []string{"Context2", "Context1"}, []string{"chunk-2", "chunk-7"}},
		{"ids", []string{"chunk-2"}, []string{"chunk-2"}},
		{"duplicates", []string{"Context1", "chunk-7"}, []string{"chunk-7"}},
		{"unknown only", []string{"Context5"}, []string{"chunk-7", "chunk-2"}},
		{"empty", nil, []string{"chunk-7", "chunk-2"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, resolveSources(tc.sources, contexts))
		})
	}
}

func TestContextRefsTruncate(t *testing.T) {
	refs := contextRefs([]models.Chunk{{ID: "c1", Text: strings.Repeat("x", 900)}})
	require.Len(t, refs, 1)
	assert.Len(t, refs[0].Text, 400)
}

func TestGenerateFromChunk(t *testing.T) {
	chunk := models.Chunk{ID: "chunk-3", Text: "A syllogism has two premises and a conclusion."}
	gen := staticGenerator(`{"question":"Which follows?","options":["a","b","c","d"],"answer":3,"explanation":"e","questionType":"logical"}`, nil)
	o := NewOrchestrator(gen, retrieval.NewRetriever(nil))

	q, ok := o.GenerateFromChunk(context.Background(), chunk, nil, "hard")

	require.True(t, ok)
	assert.Equal(t, "chunk-3", q.SourceChunk)
	assert.Equal(t, []string{"chunk-3"}, q.Sources)
	assert.Equal(t, "logical", q.QuestionType)
	assert.Equal(t, "hard", q.Difficulty)

	_, ok = NewOrchestrator(staticGenerator("nope", nil), retrieval.NewRetriever(nil)).GenerateFromChunk(context.Background(), chunk, nil, "hard")
	assert.False(t, ok)
}

func TestBuildChunkPromptTruncatesExcerpt(t *testing.T) {
	chunk := models.Chunk{ID: "c1", Text: strings.Repeat("a", 700) + "TAIL"}
	prompt := BuildChunkPrompt(chunk, nil, "easy")
	assert.NotContains(t, prompt, "TAIL")
	assert.Contains(t, prompt, `"sources": ["c1"]`)
}
