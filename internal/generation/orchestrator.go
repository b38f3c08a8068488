package generation

import (
	"context"
	"fmt"
	"unicode/utf8"

	"aptitude-service/internal/analysis"
	"aptitude-service/internal/llm"
	"aptitude-service/internal/logger"
	"aptitude-service/internal/metrics"
	"aptitude-service/internal/models"
	"aptitude-service/internal/retrieval"

	"github.com/go-playground/validator/v10"
)

const (
	contextTopK       = 4
	contextRefChars   = 400
	fallbackOptionSet = "ABCD"
)

// Fallback reasons recorded in the explanation of a placeholder question.
const (
	ReasonUpstream    = "upstream"
	ReasonUnparseable = "unparseable"
	ReasonNoContent   = "no_content"
)

// Corpus is a loaded chunk set together with its precomputed heuristic report.
type Corpus struct {
	Chunks []models.Chunk
	Report *models.ContentReport
}

func NewCorpus(chunks []models.Chunk) *Corpus {
	return &Corpus{
		Chunks: chunks,
		Report: analysis.NewHeuristicAnalyzer().Analyze(chunks),
	}
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Chunks)
}

// Orchestrator turns a topic into a question via retrieval and one model call.
type Orchestrator struct {
	gen       llm.Generator
	retriever *retrieval.Retriever
	validate  *validator.Validate
}

func NewOrchestrator(gen llm.Generator, retriever *retrieval.Retriever) *Orchestrator {
	return &Orchestrator{
		gen:       gen,
		retriever: retriever,
		validate:  validator.New(),
	}
}

// GenerateQuestion always returns a well-formed question. Upstream errors and
// invalid payloads produce a fallback question instead of an error.
func (o *Orchestrator) GenerateQuestion(ctx context.Context, corpus *Corpus, topic, difficulty, questionType string) models.Question {
	difficulty = normalizeDifficulty(difficulty)
	questionType = normalizeQuestionType(questionType)

	var chunks []models.Chunk
	var report *models.ContentReport
	if corpus != nil {
		chunks, report = corpus.Chunks, corpus.Report
	}

	relevant := analysis.RelevantChunks(topic, chunks, report)
	if len(relevant) == 0 {
		logger.Warn("no reference content for topic %q", topic)
		return o.record(FallbackQuestion(topic, difficulty, questionType, ReasonNoContent, nil))
	}

	contexts := o.retriever.Retrieve(topic, relevant, contextTopK)
	prompt := BuildPrompt(topic, questionType, difficulty, contexts, report)

	raw, err := o.gen.Generate(ctx, prompt, llm.Options{Temperature: llm.TemperatureFor(difficulty)})
	if err != nil {
		logger.Error("question generation failed for topic %q: %v", topic, err)
		return o.record(FallbackQuestion(topic, difficulty, questionType, ReasonUpstream, contexts))
	}

	parsed, err := ParseQuestion(raw, o.validate)
	if err != nil {
		logger.Warn("unusable model output for topic %q: %v", topic, err)
		return o.record(FallbackQuestion(topic, difficulty, questionType, ReasonUnparseable, contexts))
	}

	q := models.Question{
		Question:      parsed.Question,
		Options:       parsed.Options,
		Answer:        *parsed.Answer,
		Explanation:   parsed.Explanation,
		Difficulty:    difficulty,
		QuestionType:  questionType,
		ReasoningType: parsed.ReasoningType,
		Sources:       resolveSources(parsed.Sources, contexts),
		Context:       contextRefs(contexts),
	}
	if models.IsValidDifficulty(parsed.Difficulty) {
		q.Difficulty = parsed.Difficulty
	}
	if models.IsValidQuestionType(parsed.QuestionType) {
		q.QuestionType = parsed.QuestionType
	}
	if !models.IsValidQuestionType(q.ReasoningType) || q.ReasoningType == models.TypeMixed {
		q.ReasoningType = q.QuestionType
	}
	return o.record(q)
}

// GenerateFromChunk asks for a question grounded in one chunk. It reports
// false when the model call or its payload fails so callers can try another chunk.
func (o *Orchestrator) GenerateFromChunk(ctx context.Context, chunk models.Chunk, report *models.ContentReport, difficulty string) (models.Question, bool) {
	difficulty = normalizeDifficulty(difficulty)

	raw, err := o.gen.Generate(ctx, BuildChunkPrompt(chunk, report, difficulty), llm.Options{Temperature: llm.TemperatureFor(difficulty)})
	if err != nil {
		logger.Error("chunk question generation failed for %s: %v", chunk.ID, err)
		return models.Question{}, false
	}
	parsed, err := ParseQuestion(raw, o.validate)
	if err != nil {
		logger.Warn("unusable model output for %s: %v", chunk.ID, err)
		return models.Question{}, false
	}

	q := models.Question{
		Question:      parsed.Question,
		Options:       parsed.Options,
		Answer:        *parsed.Answer,
		Explanation:   parsed.Explanation,
		Difficulty:    difficulty,
		QuestionType:  models.TypeAnalytical,
		ReasoningType: parsed.ReasoningType,
		Sources:       []string{chunk.ID},
		Context:       contextRefs([]models.Chunk{chunk}),
		SourceChunk:   chunk.ID,
	}
	if models.IsValidDifficulty(parsed.Difficulty) {
		q.Difficulty = parsed.Difficulty
	}
	if models.IsValidQuestionType(parsed.QuestionType) && parsed.QuestionType != models.TypeMixed {
		q.QuestionType = parsed.QuestionType
	}
	if !models.IsValidQuestionType(q.ReasoningType) || q.ReasoningType == models.TypeMixed {
		q.ReasoningType = q.QuestionType
	}
	return o.record(q), true
}

func (o *Orchestrator) record(q models.Question) models.Question {
	metrics.QuestionsGenerated.WithLabelValues(q.QuestionType, metrics.BoolLabel(q.Fallback)).Inc()
	return q
}

// FallbackQuestion builds the deterministic placeholder used when generation fails.
func FallbackQuestion(topic, difficulty, questionType, reason string, contexts []models.Chunk) models.Question {
	difficulty = normalizeDifficulty(difficulty)
	questionType = normalizeQuestionType(questionType)

	options := make([]string, len(fallbackOptionSet))
	for i, letter := range fallbackOptionSet {
		options[i] = "Option " + string(letter)
	}

	q := models.Question{
		Options:       options,
		Answer:        0,
		Difficulty:    difficulty,
		QuestionType:  questionType,
		ReasoningType: questionType,
		Sources:       chunkIDs(contexts),
		Context:       contextRefs(contexts),
		Fallback:      true,
	}

	switch reason {
	case ReasonNoContent:
		q.Question = fmt.Sprintf("Based on general %s reasoning principles, which of the following best demonstrates understanding of %s?", questionType, topic)
		q.Explanation = "This is a fallback question. Please ensure the reference material contains relevant content for the requested topic."
	case ReasonUnparseable:
		q.Question = fmt.Sprintf("Based on the context provided, which of the following best demonstrates %s?", topic)
		q.Explanation = "This is a fallback aptitude question. The question generator returned a response that could not be parsed."
	default:
		q.Question = fmt.Sprintf("Based on the context provided, which of the following best demonstrates %s?", topic)
		q.Explanation = "This is a fallback aptitude question. The question generator could not be reached; please check the AI service configuration."
	}
	return q
}

// resolveSources maps ContextN labels or literal chunk ids back to retrieved
// chunk ids. Unknown entries are dropped; an empty result uses all retrieved ids.
func resolveSources(sources []string, contexts []models.Chunk) []string {
	byLabel := make(map[string]string, len(contexts)*2)
	for i, c := range contexts {
		byLabel[ContextLabel(i)] = c.ID
		byLabel[c.ID] = c.ID
	}

	seen := map[string]bool{}
	var out []string
	for _, s := range sources {
		id, ok := byLabel[s]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return chunkIDs(contexts)
	}
	return out
}

func contextRefs(contexts []models.Chunk) []models.ChunkRef {
	if len(contexts) == 0 {
		return nil
	}
	refs := make([]models.ChunkRef, len(contexts))
	for i, c := range contexts {
		text := c.Text
		if utf8.RuneCountInString(text) > contextRefChars {
			text = string([]rune(text)[:contextRefChars])
		}
		refs[i] = models.ChunkRef{ID: c.ID, Text: text}
	}
	return refs
}

func chunkIDs(chunks []models.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func normalizeDifficulty(d string) string {
	if models.IsValidDifficulty(d) {
		return d
	}
	return models.DifficultyMedium
}

func normalizeQuestionType(t string) string {
	if models.IsValidQuestionType(t) {
		return t
	}
	return models.TypeMixed
}
