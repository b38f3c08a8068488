package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"aptitude-service/internal/analysis"
	"aptitude-service/internal/event"
	"aptitude-service/internal/generation"
	"aptitude-service/internal/llm"
	"aptitude-service/internal/logger"
	"aptitude-service/internal/metrics"
	"aptitude-service/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRandomTopic   = "reasoning"
	minTopicWordLength   = 5
	chunkTestFallbackTop = "aptitude reasoning"
)

var topicStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "they": true,
	"have": true, "been": true, "were": true, "said": true, "each": true,
	"which": true, "their": true, "time": true, "will": true, "about": true,
	"would": true, "there": true, "could": true, "other": true,
}

type RandomQuestionsParams struct {
	NumQuestions  int
	Difficulty    string
	QuestionTypes []string
}

type RandomQuestionsResult struct {
	Questions      []models.Question `json:"questions"`
	TotalQuestions int               `json:"totalQuestions"`
	Difficulty     string            `json:"difficulty"`
	QuestionTypes  []string          `json:"questionTypes"`
	TestType       string            `json:"testType"`
	GeneratedAt    time.Time         `json:"generatedAt"`
}

type randomPick struct {
	chunk models.Chunk
	topic string
	qtype string
}

// RandomQuestions seeds each question with a word drawn from a random chunk.
// Nothing is stored.
func (s *TestService) RandomQuestions(ctx context.Context, p RandomQuestionsParams) (*RandomQuestionsResult, error) {
	corpus := s.Corpus()
	if corpus.Len() == 0 {
		return nil, ErrNoChunks
	}
	n, err := questionCount(p.NumQuestions)
	if err != nil {
		return nil, err
	}
	difficulty := defaultDifficulty(p.Difficulty)
	types := compact(p.QuestionTypes)
	if len(types) == 0 {
		types = append([]string(nil), models.AptitudeTypes...)
	}

	// Draw sequentially so a seeded picker gives a reproducible plan.
	picks := make([]randomPick, n)
	for i := range picks {
		ch := corpus.Chunks[s.picker.Intn(len(corpus.Chunks))]
		picks[i] = randomPick{
			chunk: ch,
			topic: s.pickTopic(ch.Text),
			qtype: types[s.picker.Intn(len(types))],
		}
	}

	stamp := s.now().UnixMilli()
	questions := make([]models.Question, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pk := range picks {
		i, pk := i, pk
		g.Go(func() error {
			q := s.orch.GenerateQuestion(gctx, corpus, pk.topic, difficulty, pk.qtype)
			q.ID = fmt.Sprintf("aptitude-%d-%d", stamp, i)
			q.Topic = pk.topic
			q.SourceChunk = pk.chunk.ID
			questions[i] = q
			return nil
		})
	}
	_ = g.Wait()

	s.publish(ctx, event.EventTypeQuestionsGenerated, event.NewQuestionsGeneratedEvent(n, difficulty, types))

	return &RandomQuestionsResult{
		Questions:      questions,
		TotalQuestions: len(questions),
		Difficulty:     difficulty,
		QuestionTypes:  types,
		TestType:       models.TestTypeAptitude,
		GeneratedAt:    s.now().UTC(),
	}, nil
}

// pickTopic returns a random word longer than four characters that is not a
// stop word, or "reasoning" when the text has none.
func (s *TestService) pickTopic(text string) string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(w) >= minTopicWordLength && !topicStopWords[w] {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return defaultRandomTopic
	}
	return words[s.picker.Intn(len(words))]
}

type ChunkTestParams struct {
	NumQuestions int
	Difficulty   string
}

type AnalysisSummary struct {
	Topics          int                     `json:"topics"`
	Concepts        int                     `json:"concepts"`
	QuestionTypes   int                     `json:"questionTypes"`
	ModelAnalyzed   int                     `json:"modelAnalyzed"`
	Method          string                  `json:"method"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

type ChunkTestResult struct {
	TestID          string              `json:"testId"`
	Questions       []models.Question   `json:"questions"`
	TotalQuestions  int                 `json:"totalQuestions"`
	Difficulty      string              `json:"difficulty"`
	TestType        string              `json:"testType"`
	ContentAnalysis AnalysisSummary     `json:"contentAnalysis"`
	Metadata        models.TestMetadata `json:"metadata"`
}

// IntelligentTest builds a stored test from the chunks the heuristic analysis
// rates highest.
func (s *TestService) IntelligentTest(ctx context.Context, p ChunkTestParams) (*ChunkTestResult, error) {
	corpus := s.Corpus()
	if corpus.Len() == 0 {
		return nil, ErrNoChunks
	}
	return s.chunkTest(ctx, corpus.Chunks, corpus.Report, p, models.TestTypeIntelligentAptitude)
}

// ModelTest is IntelligentTest with the analysis delegated to the model.
func (s *TestService) ModelTest(ctx context.Context, p ChunkTestParams) (*ChunkTestResult, error) {
	corpus := s.Corpus()
	if corpus.Len() == 0 {
		return nil, ErrNoChunks
	}
	report := s.modelAnalyzer.Analyze(ctx, corpus.Chunks)
	s.announceAnalysis(ctx, report)
	return s.chunkTest(ctx, corpus.Chunks, report, p, models.TestTypeAIAptitude)
}

func (s *TestService) chunkTest(ctx context.Context, chunks []models.Chunk, report *models.ContentReport, p ChunkTestParams, testType string) (*ChunkTestResult, error) {
	n, err := questionCount(p.NumQuestions)
	if err != nil {
		return nil, err
	}
	difficulty := defaultDifficulty(p.Difficulty)

	candidates := analysis.SelectChunks(chunks, report, 2*n)
	questions := s.generateFromCandidates(ctx, candidates, report, difficulty, n)

	fallbacks := 0
	for len(questions) < n {
		q := generation.FallbackQuestion(fallbackTopic(report), difficulty, models.TypeAnalytical, generation.ReasonUpstream, nil)
		questions = append(questions, q)
		fallbacks++
	}

	testID := uuid.NewString()
	for i := range questions {
		questions[i].ID = fmt.Sprintf("%s-q%d", testID, i+1)
	}

	meta := models.TestMetadata{
		TotalChunks:       len(chunks),
		AnalyzedTopics:    len(report.Topics),
		GeneratedAt:       s.now().UTC(),
		Difficulty:        difficulty,
		AnalysisMethod:    report.Method,
		ModelAnalyzed:     report.Method == analysis.MethodModel,
		FallbackQuestions: fallbacks,
	}
	test := &models.Test{
		ID:            testID,
		Topics:        report.TopicNames(),
		QuestionTypes: questionTypesOf(questions),
		Difficulty:    difficulty,
		TestType:      testType,
		Questions:     questions,
		Responses:     map[string][]models.Response{},
		CreatedAt:     s.now(),
		Metadata:      &meta,
	}
	if err := s.store.Save(ctx, test); err != nil {
		return nil, fmt.Errorf("error saving test: %w", err)
	}

	metrics.TestsCreated.WithLabelValues(testType).Inc()
	s.publish(ctx, event.EventTypeTestCreated,
		event.NewTestCreatedEvent(testID, testType, test.Topics, difficulty, len(questions), fallbacks))
	logger.Info("Created %s test %s with %d questions (%d fallback)", testType, testID, len(questions), fallbacks)

	return &ChunkTestResult{
		TestID:          testID,
		Questions:       questions,
		TotalQuestions:  len(questions),
		Difficulty:      difficulty,
		TestType:        testType,
		ContentAnalysis: Summarize(report),
		Metadata:        meta,
	}, nil
}

// generateFromCandidates walks the candidates in rank order, asking for one
// question per chunk, until want questions exist or candidates run out. Each
// wave only requests as many questions as are still missing.
func (s *TestService) generateFromCandidates(ctx context.Context, candidates []models.Chunk, report *models.ContentReport, difficulty string, want int) []models.Question {
	var out []models.Question
	next := 0
	for len(out) < want && next < len(candidates) {
		missing := want - len(out)
		end := next + missing
		if end > len(candidates) {
			end = len(candidates)
		}
		wave := candidates[next:end]
		next = end

		results := make([]*models.Question, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, ch := range wave {
			i, ch := i, ch
			g.Go(func() error {
				if q, ok := s.orch.GenerateFromChunk(gctx, ch, report, difficulty); ok {
					results[i] = &q
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, q := range results {
			if q != nil && len(out) < want {
				out = append(out, *q)
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return out
}

// ContentAnalysis runs the model-backed analysis over the loaded chunks.
func (s *TestService) ContentAnalysis(ctx context.Context) (*models.ContentReport, error) {
	corpus := s.Corpus()
	if corpus.Len() == 0 {
		return nil, ErrNoChunks
	}
	report := s.modelAnalyzer.Analyze(ctx, corpus.Chunks)
	s.announceAnalysis(ctx, report)
	return report, nil
}

// Ask forwards a free-form prompt to the model.
func (s *TestService) Ask(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	return s.gen.Generate(ctx, prompt, llm.Options{})
}

func (s *TestService) announceAnalysis(ctx context.Context, r *models.ContentReport) {
	s.publish(ctx, event.EventTypeAnalysisCompleted,
		event.NewAnalysisCompletedEvent(r.Method, r.TotalChunks, r.AnalyzedChunks, len(r.Topics)))
}

// Summarize condenses a report into the counts returned with a generated test.
func Summarize(r *models.ContentReport) AnalysisSummary {
	sum := AnalysisSummary{
		Topics:          len(r.Topics),
		Concepts:        len(r.Concepts),
		QuestionTypes:   len(r.QuestionTypes),
		Method:          r.Method,
		Recommendations: r.Recommendations,
	}
	for _, a := range r.Chunks {
		if a.AnalyzedByModel {
			sum.ModelAnalyzed++
		}
	}
	if sum.Recommendations == nil {
		sum.Recommendations = []models.Recommendation{}
	}
	return sum
}

func fallbackTopic(r *models.ContentReport) string {
	if r != nil && len(r.Topics) > 0 {
		return r.Topics[0].Topic
	}
	return chunkTestFallbackTop
}

func questionTypesOf(qs []models.Question) []string {
	seen := map[string]bool{}
	var out []string
	for _, q := range qs {
		if !seen[q.QuestionType] {
			seen[q.QuestionType] = true
			out = append(out, q.QuestionType)
		}
	}
	return out
}
