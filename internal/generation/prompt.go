package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"aptitude-service/internal/models"
)

var aptitudeTypeDescriptions = map[string]string{
	models.TypeVerbal:       "verbal reasoning, reading comprehension, vocabulary, analogies, sentence completion",
	models.TypeQuantitative: "mathematical reasoning, numerical analysis, data interpretation, arithmetic, algebra",
	models.TypeLogical:      "logical reasoning, pattern recognition, sequence completion, syllogisms, deductive reasoning",
	models.TypeAnalytical:   "critical thinking, problem-solving, analytical reasoning, decision making, evaluation",
	models.TypeMixed:        "any combination of verbal, quantitative, logical, or analytical reasoning",
}

const (
	summaryTopics   = 10
	summaryConcepts = 10
	chunkExcerpt    = 600
)

const instructionSuffix = `

IMPORTANT INSTRUCTIONS:
- Generate ONLY valid JSON output
- Ensure the question tests reasoning ability, not memorization
- Make options plausible but clearly distinguishable
- Provide detailed explanation for the correct answer
- Focus on aptitude testing principles

Return ONLY the JSON object, no additional text.`

func typeDescription(questionType string) string {
	if d, ok := aptitudeTypeDescriptions[questionType]; ok {
		return d
	}
	return aptitudeTypeDescriptions[models.TypeMixed]
}

// ContextLabel is the name under which the i-th retrieved chunk appears in a prompt.
func ContextLabel(i int) string {
	return fmt.Sprintf("Context%d", i+1)
}

func formatContexts(contexts []models.Chunk) string {
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = fmt.Sprintf("%s:\n%s\n", ContextLabel(i), c.Text)
	}
	return strings.Join(parts, "\n")
}

func contentSummary(report *models.ContentReport) string {
	if report == nil {
		return ""
	}
	topics := report.TopicNames()
	if len(topics) > summaryTopics {
		topics = topics[:summaryTopics]
	}
	concepts := report.Concepts
	if len(concepts) > summaryConcepts {
		concepts = concepts[:summaryConcepts]
	}
	types := make([]string, 0, len(report.QuestionTypes))
	for _, qt := range report.QuestionTypes {
		types = append(types, qt.Type)
	}
	return fmt.Sprintf(`CONTENT ANALYSIS SUMMARY:
- Topics found: %s
- Key concepts: %s
- Question types supported: %s
`, strings.Join(topics, ", "), strings.Join(concepts, ", "), strings.Join(types, ", "))
}

// BuildPrompt assembles the retrieval-augmented prompt for one question.
func BuildPrompt(topic, questionType, difficulty string, contexts []models.Chunk, report *models.ContentReport) string {
	var sb strings.Builder
	sb.WriteString("You are an expert aptitude test writer. Using the CONTEXT below (reference material), create ONE high-quality multiple-choice aptitude question.\n\n")
	if summary := contentSummary(report); summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, `QUESTION REQUIREMENTS:
- Topic: %q
- Type: %s (%s)
- Difficulty: %s
- Must test reasoning ability, not just memorization
- Should require analytical thinking
- Options should be plausible but only one correct answer

QUESTION FORMATS BY TYPE:
- Verbal: Reading comprehension, analogies, vocabulary in context, sentence completion
- Quantitative: Word problems, data interpretation, mathematical reasoning, numerical patterns
- Logical: Pattern recognition, sequence completion, syllogisms, logical deductions
- Analytical: Critical analysis, problem-solving, evaluation of arguments, decision making

Return JSON only in this exact format:
{
 "question":"<clear, well-formatted aptitude question>",
 "options":["Option A","Option B","Option C","Option D"],
 "answer":<index 0-3>,
 "explanation":"Detailed explanation of why the answer is correct and why others are wrong",
 "difficulty":"%s",
 "questionType":"%s",
 "reasoningType":"verbal|quantitative|logical|analytical",
 "sources":["Context1","Context2"]
}

CONTEXT:
%s`, topic, questionType, typeDescription(questionType), difficulty, difficulty, questionType, formatContexts(contexts))
	sb.WriteString(instructionSuffix)
	return sb.String()
}

// BuildChunkPrompt asks for a question grounded in a single selected chunk.
func BuildChunkPrompt(chunk models.Chunk, report *models.ContentReport, difficulty string) string {
	excerpt := chunk.Text
	if utf8.RuneCountInString(excerpt) > chunkExcerpt {
		excerpt = string([]rune(excerpt)[:chunkExcerpt])
	}

	var sb strings.Builder
	sb.WriteString("You are an expert aptitude test writer. Create a high-quality aptitude question based on the provided content.\n\n")
	if summary := contentSummary(report); summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, `REFERENCE CONTENT:
%q

REQUIREMENTS:
- Difficulty: %s
- Test reasoning ability, not memorization
- Create a question that requires analytical thinking
- Make options plausible but clearly distinguishable
- Provide detailed explanation

Return ONLY valid JSON in this exact format:
{
  "question": "Clear, well-formatted aptitude question",
  "options": ["Option A", "Option B", "Option C", "Option D"],
  "answer": 0,
  "explanation": "Detailed explanation of why the answer is correct and why others are wrong",
  "difficulty": "%s",
  "questionType": "verbal|quantitative|logical|analytical",
  "reasoningType": "verbal|quantitative|logical|analytical",
  "sources": [%q]
}`, excerpt, difficulty, difficulty, chunk.ID)
	sb.WriteString(instructionSuffix)
	return sb.String()
}
