package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"aptitude-service/internal/analysis"
	"aptitude-service/internal/config"
	"aptitude-service/internal/event"
	"aptitude-service/internal/generation"
	"aptitude-service/internal/llm"
	"aptitude-service/internal/logger"
	"aptitude-service/internal/metrics"
	"aptitude-service/internal/models"
	"aptitude-service/internal/retrieval"
	"aptitude-service/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = config.MaxQuestionsPerRequest
	AnonymousUser       = "anon"

	defaultConcurrency = 4
	maxUserIDLength    = 128
)

// Picker draws uniform random indexes. *retrieval.LockedRand satisfies it.
type Picker interface {
	Intn(n int) int
}

type Deps struct {
	Store         store.TestStore
	Generator     llm.Generator
	Orchestrator  *generation.Orchestrator
	ModelAnalyzer *analysis.ModelAnalyzer
	Events        event.Publisher
	Picker        Picker
	Concurrency   int
}

// TestService owns the loaded chunk corpus and implements the test use cases.
type TestService struct {
	store         store.TestStore
	gen           llm.Generator
	orch          *generation.Orchestrator
	modelAnalyzer *analysis.ModelAnalyzer
	events        event.Publisher
	picker        Picker
	concurrency   int
	now           func() time.Time

	mu     sync.RWMutex
	corpus *generation.Corpus
}

func NewTestService(d Deps) *TestService {
	if d.Concurrency <= 0 {
		d.Concurrency = defaultConcurrency
	}
	if d.Generator == nil {
		d.Generator = llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
			return "", llm.ErrNotConfigured
		})
	}
	if d.Picker == nil {
		d.Picker = retrieval.NewTimeSeededRand()
	}
	if d.Orchestrator == nil {
		d.Orchestrator = generation.NewOrchestrator(d.Generator, retrieval.NewRetriever(retrieval.NewTimeSeededRand()))
	}
	if d.ModelAnalyzer == nil {
		d.ModelAnalyzer = analysis.NewModelAnalyzer(d.Generator, nil, analysis.DefaultModelChunks, d.Concurrency)
	}
	return &TestService{
		store:         d.Store,
		gen:           d.Generator,
		orch:          d.Orchestrator,
		modelAnalyzer: d.ModelAnalyzer,
		events:        d.Events,
		picker:        d.Picker,
		concurrency:   d.Concurrency,
		now:           time.Now,
		corpus:        generation.NewCorpus(nil),
	}
}

// SetChunks replaces the reference corpus and precomputes its heuristic report.
func (s *TestService) SetChunks(chunks []models.Chunk) {
	c := generation.NewCorpus(chunks)
	s.mu.Lock()
	s.corpus = c
	s.mu.Unlock()
	metrics.ChunksLoaded.Set(float64(len(chunks)))
}

func (s *TestService) Corpus() *generation.Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

func (s *TestService) ChunkCount() int {
	return s.Corpus().Len()
}

func (s *TestService) StoreBackend() string {
	return s.store.Backend()
}

type CreateTestParams struct {
	Topics        []string
	NumQuestions  int
	Difficulty    string
	QuestionTypes []string
}

type CreateTestResult struct {
	TestID        string   `json:"testId"`
	NumQuestions  int      `json:"numQuestions"`
	QuestionTypes []string `json:"questionTypes"`
	TestType      string   `json:"testType"`
}

// CreateTest generates numQuestions questions, assigning topics and question
// types round-robin, and stores them as a new test.
func (s *TestService) CreateTest(ctx context.Context, p CreateTestParams) (*CreateTestResult, error) {
	topics := compact(p.Topics)
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	n, err := questionCount(p.NumQuestions)
	if err != nil {
		return nil, err
	}
	difficulty := defaultDifficulty(p.Difficulty)
	types := compact(p.QuestionTypes)
	if len(types) == 0 {
		types = []string{models.TypeMixed}
	}

	corpus := s.Corpus()
	testID := uuid.NewString()
	questions := make([]models.Question, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 0; i < n; i++ {
		i := i
		topic := topics[i%len(topics)]
		qtype := types[i%len(types)]
		g.Go(func() error {
			q := s.orch.GenerateQuestion(gctx, corpus, topic, difficulty, qtype)
			q.ID = fmt.Sprintf("%s-q%d", testID, i+1)
			q.Topic = topic
			questions[i] = q
			return nil
		})
	}
	_ = g.Wait()

	test := &models.Test{
		ID:            testID,
		Topics:        topics,
		QuestionTypes: types,
		Difficulty:    difficulty,
		TestType:      models.TestTypeAptitude,
		Questions:     questions,
		Responses:     map[string][]models.Response{},
		CreatedAt:     s.now(),
	}
	if err := s.store.Save(ctx, test); err != nil {
		return nil, fmt.Errorf("error saving test: %w", err)
	}

	metrics.TestsCreated.WithLabelValues(test.TestType).Inc()
	s.publish(ctx, event.EventTypeTestCreated,
		event.NewTestCreatedEvent(test.ID, test.TestType, topics, difficulty, n, countFallbacks(questions)))
	logger.Info("Created test %s with %d questions", test.ID, n)

	return &CreateTestResult{
		TestID:        testID,
		NumQuestions:  n,
		QuestionTypes: types,
		TestType:      test.TestType,
	}, nil
}

type QuestionView struct {
	QuestionIndex int                   `json:"questionIndex"`
	Question      models.PublicQuestion `json:"question"`
}

// GetQuestion returns question idx of a test without its answer.
func (s *TestService) GetQuestion(ctx context.Context, testID string, idx int) (*QuestionView, error) {
	test, err := s.store.Get(ctx, testID)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(test.Questions) {
		return nil, ErrInvalidIndex
	}
	return &QuestionView{
		QuestionIndex: idx,
		Question:      test.Questions[idx].Public(),
	}, nil
}

type SubmitAnswerParams struct {
	UserID        string
	QuestionIndex *int
	SelectedIndex *int
}

type AnswerResult struct {
	Correct     int    `json:"correct"`
	Explanation string `json:"explanation"`
}

// SubmitAnswer grades one answer and appends it to the user's responses.
func (s *TestService) SubmitAnswer(ctx context.Context, testID string, p SubmitAnswerParams) (*AnswerResult, error) {
	test, err := s.store.Get(ctx, testID)
	if err != nil {
		return nil, err
	}

	userID := strings.TrimSpace(p.UserID)
	if userID == "" {
		userID = AnonymousUser
	}
	if !ValidUserID(userID) {
		return nil, ErrInvalidUserID
	}
	if p.QuestionIndex == nil {
		return nil, ErrQuestionIndexRequired
	}
	idx := *p.QuestionIndex
	if idx < 0 || idx >= len(test.Questions) {
		return nil, ErrQuestionNotFound
	}
	q := test.Questions[idx]

	selected := -1
	if p.SelectedIndex != nil {
		selected = *p.SelectedIndex
	}
	correct := 0
	if selected == q.Answer {
		correct = 1
	}

	resp := models.Response{
		QuestionID:    q.ID,
		QuestionIndex: idx,
		SelectedIndex: selected,
		Correct:       correct,
		Timestamp:     s.now(),
	}
	if err := s.store.AppendResponse(ctx, testID, userID, resp); err != nil {
		return nil, fmt.Errorf("error recording response: %w", err)
	}

	metrics.AnswersSubmitted.WithLabelValues(metrics.BoolLabel(correct == 1)).Inc()
	s.publish(ctx, event.EventTypeAnswerSubmitted,
		event.NewAnswerSubmittedEvent(testID, userID, q.ID, idx, correct == 1))

	return &AnswerResult{Correct: correct, Explanation: q.Explanation}, nil
}

// Results summarises the answers userID has submitted for a test.
func (s *TestService) Results(ctx context.Context, testID, userID string) (*models.UserResult, error) {
	test, err := s.store.Get(ctx, testID)
	if err != nil {
		return nil, err
	}
	if userID = strings.TrimSpace(userID); userID == "" {
		userID = AnonymousUser
	}

	responses := test.Responses[userID]
	res := &models.UserResult{
		TestID:         testID,
		UserID:         userID,
		TotalQuestions: len(test.Questions),
		Responses:      responses,
	}
	if res.Responses == nil {
		res.Responses = []models.Response{}
	}

	// Only the latest answer per question counts.
	latest := map[int]int{}
	for _, r := range responses {
		latest[r.QuestionIndex] = r.Correct
	}
	res.Answered = len(latest)
	for _, c := range latest {
		res.Correct += c
	}
	if res.TotalQuestions > 0 {
		res.Score = float64(res.Correct) / float64(res.TotalQuestions) * 100
	}
	return res, nil
}

// ValidUserID rejects ids that cannot be used as a document field name.
func ValidUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength {
		return false
	}
	if strings.HasPrefix(id, "$") {
		return false
	}
	return !strings.ContainsAny(id, ".\x00")
}

func (s *TestService) publish(ctx context.Context, routingKey string, e any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, e); err != nil {
		logger.Warn("failed to publish %s: %v", routingKey, err)
	}
}

func questionCount(n int) (int, error) {
	if n <= 0 {
		return DefaultNumQuestions, nil
	}
	if n > MaxNumQuestions {
		return 0, fmt.Errorf("%w (%d)", ErrTooManyQuestions, MaxNumQuestions)
	}
	return n, nil
}

func defaultDifficulty(d string) string {
	if models.IsValidDifficulty(d) {
		return d
	}
	return models.DifficultyMedium
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func countFallbacks(qs []models.Question) int {
	n := 0
	for _, q := range qs {
		if q.Fallback {
			n++
		}
	}
	return n
}

// IsNotFound reports whether err means the test does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrTestNotFound)
}
