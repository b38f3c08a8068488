package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"aptitude-service/internal/config"
	"aptitude-service/internal/llm"
	"aptitude-service/internal/logger"
	"aptitude-service/internal/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultModelChunks = config.ModelAnalysisChunks
	modelExcerptChars  = 800
	modelMaxTokens     = 1024
	modelTopP          = 0.9
)

var errNoJSON = errors.New("no JSON object in model output")

// ModelAnalyzer asks the generative model to tag each chunk and falls back to
// the heuristic analysis for any chunk whose call or payload fails.
type ModelAnalyzer struct {
	gen         llm.Generator
	heuristic   *HeuristicAnalyzer
	validate    *validator.Validate
	maxChunks   int
	concurrency int
}

func NewModelAnalyzer(gen llm.Generator, heuristic *HeuristicAnalyzer, maxChunks, concurrency int) *ModelAnalyzer {
	if maxChunks <= 0 {
		maxChunks = DefaultModelChunks
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if heuristic == nil {
		heuristic = NewHeuristicAnalyzer()
	}
	return &ModelAnalyzer{
		gen:         gen,
		heuristic:   heuristic,
		validate:    validator.New(),
		maxChunks:   maxChunks,
		concurrency: concurrency,
	}
}

type modelChunkResult struct {
	Topics        []string `json:"topics" validate:"dive,required"`
	Concepts      []string `json:"concepts"`
	QuestionTypes []string `json:"questionTypes"`
	Difficulty    string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Keywords      []string `json:"keywords"`
	Summary       string   `json:"summary"`
}

// Analyze never fails: per-chunk errors degrade to the heuristic result.
func (m *ModelAnalyzer) Analyze(ctx context.Context, chunks []models.Chunk) *models.ContentReport {
	subset := chunks
	if len(subset) > m.maxChunks {
		subset = subset[:m.maxChunks]
	}

	analyses := make([]models.ChunkAnalysis, len(subset))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, ch := range subset {
		i, ch := i, ch
		g.Go(func() error {
			a, err := m.analyzeChunk(gctx, ch, i)
			if err != nil {
				logger.Warn("model analysis failed for %s, using heuristic: %v", ch.ID, err)
				a = m.heuristic.AnalyzeChunk(ch, i)
			}
			analyses[i] = a
			return nil
		})
	}
	_ = g.Wait()

	return buildReport(len(chunks), analyses, MethodModel, modelThresholds)
}

func (m *ModelAnalyzer) analyzeChunk(ctx context.Context, chunk models.Chunk, index int) (models.ChunkAnalysis, error) {
	raw, err := m.gen.Generate(ctx, analysisPrompt(chunk.Text), llm.Options{
		Temperature: llm.AnalysisTemperature,
		MaxTokens:   modelMaxTokens,
		TopP:        modelTopP,
	})
	if err != nil {
		return models.ChunkAnalysis{}, err
	}

	obj, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return models.ChunkAnalysis{}, errNoJSON
	}
	var res modelChunkResult
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return models.ChunkAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if err := m.validate.Struct(res); err != nil {
		return models.ChunkAnalysis{}, fmt.Errorf("invalid analysis: %w", err)
	}

	text := strings.ToLower(chunk.Text)
	a := models.ChunkAnalysis{
		ChunkID:         chunk.ID,
		ChunkIndex:      index,
		Concepts:        normalizeList(res.Concepts),
		QuestionTypes:   normalizeList(res.QuestionTypes),
		Difficulty:      res.Difficulty,
		Keywords:        normalizeList(res.Keywords),
		Structure:       analyzeStructure(text),
		TextLength:      utf8.RuneCountInString(text),
		WordCount:       len(strings.Fields(text)),
		AnalyzedByModel: true,
	}
	if a.Difficulty == "" {
		a.Difficulty = models.DifficultyMedium
	}
	for _, t := range normalizeList(res.Topics) {
		a.Topics = append(a.Topics, models.TopicMatch{Topic: t, Matches: 1, Confidence: 1})
	}
	return a, nil
}

func normalizeList(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func analysisPrompt(text string) string {
	excerpt := text
	if utf8.RuneCountInString(excerpt) > modelExcerptChars {
		excerpt = string([]rune(excerpt)[:modelExcerptChars])
	}
	return fmt.Sprintf(`Analyze this text for aptitude test content. Identify:
1. Main topics (mathematics, logic, verbal, analytical, etc.)
2. Key concepts and terms
3. Question types this content could support (verbal, quantitative, logical, analytical)
4. Difficulty level (easy, medium, hard)
5. Keywords for search

Text: "%s"

Return JSON format:
{
  "topics": ["topic1", "topic2"],
  "concepts": ["concept1", "concept2"],
  "questionTypes": ["type1", "type2"],
  "difficulty": "easy|medium|hard",
  "keywords": ["keyword1", "keyword2"],
  "summary": "brief summary of content"
}`, excerpt)
}
