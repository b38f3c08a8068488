package event

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTestCreated        = "aptitude.test.created"
	EventTypeAnswerSubmitted    = "aptitude.answer.submitted"
	EventTypeQuestionsGenerated = "aptitude.questions.generated"
	EventTypeAnalysisCompleted  = "aptitude.analysis.completed"
)

const (
	eventVersion = "1.0"
	eventSource  = "aptitude-service"
)

type BaseEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

func newBase(eventType string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Timestamp: time.Now().Unix(),
		Version:   eventVersion,
	}
}

type TestCreatedEvent struct {
	BaseEvent
	TestID        string   `json:"testId"`
	TestType      string   `json:"testType"`
	Topics        []string `json:"topics"`
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"questionCount"`
	FallbackCount int      `json:"fallbackCount"`
}

type AnswerSubmittedEvent struct {
	BaseEvent
	TestID        string `json:"testId"`
	UserID        string `json:"userId"`
	QuestionID    string `json:"questionId"`
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
}

type QuestionsGeneratedEvent struct {
	BaseEvent
	Count         int      `json:"count"`
	Difficulty    string   `json:"difficulty"`
	QuestionTypes []string `json:"questionTypes"`
}

type AnalysisCompletedEvent struct {
	BaseEvent
	Method         string `json:"method"`
	TotalChunks    int    `json:"totalChunks"`
	AnalyzedChunks int    `json:"analyzedChunks"`
	TopicCount     int    `json:"topicCount"`
}

func NewTestCreatedEvent(testID, testType string, topics []string, difficulty string, questions, fallbacks int) *TestCreatedEvent {
	return &TestCreatedEvent{
		BaseEvent:     newBase(EventTypeTestCreated),
		TestID:        testID,
		TestType:      testType,
		Topics:        topics,
		Difficulty:    difficulty,
		QuestionCount: questions,
		FallbackCount: fallbacks,
	}
}

func NewAnswerSubmittedEvent(testID, userID, questionID string, index int, correct bool) *AnswerSubmittedEvent {
	return &AnswerSubmittedEvent{
		BaseEvent:     newBase(EventTypeAnswerSubmitted),
		TestID:        testID,
		UserID:        userID,
		QuestionID:    questionID,
		QuestionIndex: index,
		Correct:       correct,
	}
}

func NewQuestionsGeneratedEvent(count int, difficulty string, types []string) *QuestionsGeneratedEvent {
	return &QuestionsGeneratedEvent{
		BaseEvent:     newBase(EventTypeQuestionsGenerated),
		Count:         count,
		Difficulty:    difficulty,
		QuestionTypes: types,
	}
}

func NewAnalysisCompletedEvent(method string, total, analyzed, topics int) *AnalysisCompletedEvent {
	return &AnalysisCompletedEvent{
		BaseEvent:      newBase(EventTypeAnalysisCompleted),
		Method:         method,
		TotalChunks:    total,
		AnalyzedChunks: analyzed,
		TopicCount:     topics,
	}
}
