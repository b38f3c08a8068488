package models

import (
	"slices"
	"time"
)

const (
	TestTypeAptitude            = "aptitude"
	TestTypeIntelligentAptitude = "intelligent_aptitude"
	TestTypeAIAptitude          = "google_ai_aptitude"
)

type Test struct {
	ID            string                `json:"id" bson:"_id"`
	Topics        []string              `json:"topics" bson:"topics"`
	QuestionTypes []string              `json:"questionTypes" bson:"question_types"`
	Difficulty    string                `json:"difficulty" bson:"difficulty"`
	TestType      string                `json:"testType" bson:"test_type"`
	Questions     []Question            `json:"questions" bson:"questions"`
	Responses     map[string][]Response `json:"responses" bson:"responses"`
	CreatedAt     time.Time             `json:"createdAt" bson:"created_at"`
	Metadata      *TestMetadata         `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// TestMetadata describes how a content-analysed test was assembled.
type TestMetadata struct {
	TotalChunks       int       `json:"totalChunks" bson:"total_chunks"`
	AnalyzedTopics    int       `json:"analyzedTopics" bson:"analyzed_topics"`
	GeneratedAt       time.Time `json:"generatedAt" bson:"generated_at"`
	Difficulty        string    `json:"difficulty" bson:"difficulty"`
	AnalysisMethod    string    `json:"analysisMethod" bson:"analysis_method"`
	ModelAnalyzed     bool      `json:"modelAnalyzed" bson:"model_analyzed"`
	FallbackQuestions int       `json:"fallbackQuestions" bson:"fallback_questions"`
}

type Response struct {
	QuestionID    string    `json:"questionId" bson:"question_id"`
	QuestionIndex int       `json:"questionIndex" bson:"question_index"`
	SelectedIndex int       `json:"selectedIndex" bson:"selected_index"`
	Correct       int       `json:"correct" bson:"correct"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// TestUpdate carries the fields to merge into a stored test. Nil fields are left untouched.
type TestUpdate struct {
	Topics        []string
	QuestionTypes []string
	Difficulty    *string
	TestType      *string
	Questions     []Question
	Responses     map[string][]Response
}

// Clone returns a deep copy so callers never share slices or maps with a store.
func (t *Test) Clone() *Test {
	if t == nil {
		return nil
	}
	c := *t
	c.Topics = slices.Clone(t.Topics)
	c.QuestionTypes = slices.Clone(t.QuestionTypes)
	if t.Questions != nil {
		c.Questions = make([]Question, len(t.Questions))
		for i, q := range t.Questions {
			c.Questions[i] = q.Clone()
		}
	}
	c.Responses = cloneResponses(t.Responses)
	if t.Metadata != nil {
		m := *t.Metadata
		c.Metadata = &m
	}
	return &c
}

// Apply shallow-merges the non-nil fields of u into t.
func (t *Test) Apply(u TestUpdate) {
	if u.Topics != nil {
		t.Topics = slices.Clone(u.Topics)
	}
	if u.QuestionTypes != nil {
		t.QuestionTypes = slices.Clone(u.QuestionTypes)
	}
	if u.Difficulty != nil {
		t.Difficulty = *u.Difficulty
	}
	if u.TestType != nil {
		t.TestType = *u.TestType
	}
	if u.Questions != nil {
		t.Questions = make([]Question, len(u.Questions))
		for i, q := range u.Questions {
			t.Questions[i] = q.Clone()
		}
	}
	if u.Responses != nil {
		t.Responses = cloneResponses(u.Responses)
	}
}

func cloneResponses(in map[string][]Response) map[string][]Response {
	if in == nil {
		return nil
	}
	out := make(map[string][]Response, len(in))
	for user, list := range in {
		out[user] = slices.Clone(list)
	}
	return out
}

// UserResult summarises one user's answers on a test.
type UserResult struct {
	TestID         string     `json:"testId"`
	UserID         string     `json:"userId"`
	TotalQuestions int        `json:"totalQuestions"`
	Answered       int        `json:"answered"`
	Correct        int        `json:"correct"`
	Score          float64    `json:"score"`
	Responses      []Response `json:"responses"`
}
