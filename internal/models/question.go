package models

import "slices"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	TypeVerbal       = "verbal"
	TypeQuantitative = "quantitative"
	TypeLogical      = "logical"
	TypeAnalytical   = "analytical"
	TypeMixed        = "mixed"
)

// AptitudeTypes are the concrete question types drawn by the random endpoint.
var AptitudeTypes = []string{TypeVerbal, TypeQuantitative, TypeLogical, TypeAnalytical}

var validDifficulties = map[string]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

var validQuestionTypes = map[string]bool{
	TypeVerbal:       true,
	TypeQuantitative: true,
	TypeLogical:      true,
	TypeAnalytical:   true,
	TypeMixed:        true,
}

func IsValidDifficulty(d string) bool {
	return validDifficulties[d]
}

func IsValidQuestionType(t string) bool {
	return validQuestionTypes[t]
}

type Question struct {
	ID            string     `json:"id" bson:"id"`
	Topic         string     `json:"topic,omitempty" bson:"topic,omitempty"`
	Question      string     `json:"question" bson:"question"`
	Options       []string   `json:"options" bson:"options"`
	Answer        int        `json:"answer" bson:"answer"`
	Explanation   string     `json:"explanation" bson:"explanation"`
	Difficulty    string     `json:"difficulty" bson:"difficulty"`
	QuestionType  string     `json:"questionType" bson:"question_type"`
	ReasoningType string     `json:"reasoningType,omitempty" bson:"reasoning_type,omitempty"`
	Sources       []string   `json:"sources" bson:"sources"`
	Context       []ChunkRef `json:"context,omitempty" bson:"context,omitempty"`
	SourceChunk   string     `json:"sourceChunk,omitempty" bson:"source_chunk,omitempty"`
	Fallback      bool       `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

// PublicQuestion is a question as shown before it is answered. The answer,
// explanation and source passages are withheld.
type PublicQuestion struct {
	ID            string   `json:"id"`
	Topic         string   `json:"topic,omitempty"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Difficulty    string   `json:"difficulty"`
	QuestionType  string   `json:"questionType"`
	ReasoningType string   `json:"reasoningType,omitempty"`
	Sources       []string `json:"sources"`
	Fallback      bool     `json:"fallback,omitempty"`
}

func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:            q.ID,
		Topic:         q.Topic,
		Question:      q.Question,
		Options:       slices.Clone(q.Options),
		Difficulty:    q.Difficulty,
		QuestionType:  q.QuestionType,
		ReasoningType: q.ReasoningType,
		Sources:       slices.Clone(q.Sources),
		Fallback:      q.Fallback,
	}
}

func (q Question) Clone() Question {
	c := q
	c.Options = slices.Clone(q.Options)
	c.Sources = slices.Clone(q.Sources)
	c.Context = slices.Clone(q.Context)
	return c
}
