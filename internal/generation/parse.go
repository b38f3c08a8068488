package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"aptitude-service/internal/llm"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNoJSON        = errors.New("no JSON object found in model output")
	ErrInvalidAnswer = errors.New("answer is not an option index")
)

type rawQuestion struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	Answer        json.RawMessage `json:"answer"`
	Explanation   string          `json:"explanation"`
	Difficulty    string          `json:"difficulty"`
	QuestionType  string          `json:"questionType"`
	ReasoningType string          `json:"reasoningType"`
	Sources       []string        `json:"sources"`
}

// GeneratedQuestion is a model payload that passed validation.
type GeneratedQuestion struct {
	Question      string   `validate:"required"`
	Options       []string `validate:"len=4,dive,required"`
	Answer        *int     `validate:"required,min=0,max=3"`
	Explanation   string   `validate:"required"`
	Difficulty    string
	QuestionType  string
	ReasoningType string
	Sources       []string
}

// ParseQuestion extracts, decodes and validates the first JSON object in raw.
func ParseQuestion(raw string, validate *validator.Validate) (*GeneratedQuestion, error) {
	obj, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return nil, ErrNoJSON
	}

	var rq rawQuestion
	if err := json.Unmarshal([]byte(obj), &rq); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}

	q := &GeneratedQuestion{
		Question:      strings.TrimSpace(rq.Question),
		Options:       trimAll(rq.Options),
		Explanation:   strings.TrimSpace(rq.Explanation),
		Difficulty:    strings.ToLower(strings.TrimSpace(rq.Difficulty)),
		QuestionType:  strings.ToLower(strings.TrimSpace(rq.QuestionType)),
		ReasoningType: strings.ToLower(strings.TrimSpace(rq.ReasoningType)),
		Sources:       rq.Sources,
	}
	if len(rq.Answer) > 0 && string(rq.Answer) != "null" {
		idx, err := parseAnswer(rq.Answer)
		if err != nil {
			return nil, err
		}
		q.Answer = &idx
	}

	if err := validate.Struct(q); err != nil {
		return nil, fmt.Errorf("invalid question: %w", err)
	}
	return q, nil
}

// parseAnswer accepts an integral number, a numeric string or an option letter A-D.
func parseAnswer(msg json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAnswer, f)
		}
		return int(f), nil
	}

	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAnswer, string(msg))
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if len(s) == 1 {
		c := strings.ToUpper(s)[0]
		if c >= 'A' && c <= 'D' {
			return int(c - 'A'), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
