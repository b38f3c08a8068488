package analysis

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"aptitude-service/internal/models"
)

type patternGroup struct {
	name     string
	patterns []string
}

var topicPatterns = []patternGroup{
	{"mathematics", []string{"mathematics", "math", "algebra", "geometry", "calculus", "statistics", "probability", "arithmetic"}},
	{"science", []string{"science", "physics", "chemistry", "biology", "experiment", "hypothesis", "theory", "research"}},
	{"logic", []string{"logic", "reasoning", "deduction", "induction", "syllogism", "premise", "conclusion", "argument"}},
	{"language", []string{"language", "grammar", "vocabulary", "syntax", "semantics", "linguistics", "communication"}},
	{"psychology", []string{"psychology", "behavior", "cognitive", "mental", "intelligence", "perception", "memory"}},
	{"problem_solving", []string{"problem", "solution", "solve", "approach", "method", "strategy", "technique"}},
	{"critical_thinking", []string{"critical", "analysis", "evaluation", "assessment", "judgment", "reasoning"}},
	{"data_analysis", []string{"data", "analysis", "statistics", "interpretation", "chart", "graph", "trend"}},
	{"spatial", []string{"spatial", "visual", "pattern", "shape", "geometry", "orientation", "direction"}},
	{"numerical", []string{"number", "calculation", "computation", "formula", "equation", "numeric"}},
}

var questionTypeIndicators = []patternGroup{
	{"verbal", []string{"read", "comprehend", "understand", "interpret", "analyze text", "passage"}},
	{"quantitative", []string{"calculate", "compute", "solve", "equation", "formula", "number"}},
	{"logical", []string{"reason", "deduce", "infer", "conclude", "premise", "logic"}},
	{"analytical", []string{"analyze", "evaluate", "compare", "contrast", "assess", "critique"}},
	{"spatial", []string{"visual", "pattern", "shape", "orientation", "spatial", "geometric"}},
	{"numerical", []string{"sequence", "series", "pattern", "trend", "progression", "number"}},
}

var difficultyIndicators = []patternGroup{
	{models.DifficultyEasy, []string{"basic", "simple", "fundamental", "introductory", "basic concept"}},
	{models.DifficultyMedium, []string{"intermediate", "moderate", "standard", "typical", "common"}},
	{models.DifficultyHard, []string{"advanced", "complex", "sophisticated", "intricate", "challenging", "expert"}},
}

var conceptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:equation|formula|theorem|proof|calculation|computation)\b`),
	regexp.MustCompile(`\b(?:premise|conclusion|inference|deduction|induction|syllogism)\b`),
	regexp.MustCompile(`\b(?:strategy|method|approach|technique|algorithm|process)\b`),
	regexp.MustCompile(`\b(?:analysis|evaluation|assessment|interpretation|comparison)\b`),
	regexp.MustCompile(`\b(?:pattern|sequence|series|progression|trend|relationship)\b`),
}

var keywordStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "this": true, "that": true, "these": true, "those": true,
}

var (
	numberRe      = regexp.MustCompile(`\d+`)
	formulaRe     = regexp.MustCompile(`[=+\-*/]`)
	bulletRe      = regexp.MustCompile(`[•\-*]\s`)
	numberedRe    = regexp.MustCompile(`\d+\.\s`)
	exampleRe     = regexp.MustCompile(`(?i)example|for instance|such as`)
	definitionRe  = regexp.MustCompile(`(?i)is defined as|means|refers to`)
	sentenceEndRe = regexp.MustCompile(`[.!?]+`)
	nonWordRe     = regexp.MustCompile(`[^\w]`)
)

const maxChunkKeywords = 10

// HeuristicAnalyzer scores chunks with fixed keyword lists. It is deterministic
// and makes no external calls.
type HeuristicAnalyzer struct{}

func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

func (h *HeuristicAnalyzer) Analyze(chunks []models.Chunk) *models.ContentReport {
	analyses := make([]models.ChunkAnalysis, len(chunks))
	for i, ch := range chunks {
		analyses[i] = h.AnalyzeChunk(ch, i)
	}
	return buildReport(len(chunks), analyses, MethodHeuristic, heuristicThresholds)
}

func (h *HeuristicAnalyzer) AnalyzeChunk(chunk models.Chunk, index int) models.ChunkAnalysis {
	text := strings.ToLower(chunk.Text)
	return models.ChunkAnalysis{
		ChunkID:       chunk.ID,
		ChunkIndex:    index,
		Topics:        extractTopics(text),
		Concepts:      extractConcepts(text),
		QuestionTypes: identifyQuestionTypes(text),
		Difficulty:    assessDifficulty(text),
		Keywords:      extractKeywords(text, maxChunkKeywords),
		Structure:     analyzeStructure(text),
		TextLength:    utf8.RuneCountInString(text),
		WordCount:     len(strings.Fields(text)),
	}
}

func extractTopics(text string) []models.TopicMatch {
	var found []models.TopicMatch
	for _, group := range topicPatterns {
		matches := 0
		for _, p := range group.patterns {
			if strings.Contains(text, p) {
				matches++
			}
		}
		if matches > 0 {
			found = append(found, models.TopicMatch{
				Topic:      group.name,
				Matches:    matches,
				Confidence: float64(matches) / float64(len(group.patterns)),
			})
		}
	}
	return found
}

func extractConcepts(text string) []string {
	seen := map[string]bool{}
	var concepts []string
	for _, re := range conceptPatterns {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				concepts = append(concepts, m)
			}
		}
	}
	return concepts
}

func identifyQuestionTypes(text string) []string {
	var types []string
	for _, group := range questionTypeIndicators {
		for _, indicator := range group.patterns {
			if strings.Contains(text, indicator) {
				types = append(types, group.name)
				break
			}
		}
	}
	return types
}

// assessDifficulty picks the level with the most indicator hits, medium when none hit.
func assessDifficulty(text string) string {
	best, bestScore := models.DifficultyMedium, 0
	for _, group := range difficultyIndicators {
		score := 0
		for _, indicator := range group.patterns {
			score += strings.Count(text, indicator)
		}
		if score > bestScore {
			best, bestScore = group.name, score
		}
	}
	return best
}

func extractKeywords(text string, limit int) []string {
	counts := keywordCounts(text)
	sortKeywordCounts(counts)
	if len(counts) > limit {
		counts = counts[:limit]
	}
	out := make([]string, len(counts))
	for i, kc := range counts {
		out[i] = kc.Keyword
	}
	return out
}

// keywordCounts returns word frequencies in first-seen order.
func keywordCounts(text string) []models.KeywordCount {
	index := map[string]int{}
	var counts []models.KeywordCount
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) <= 3 || keywordStopWords[word] {
			continue
		}
		word = nonWordRe.ReplaceAllString(word, "")
		if word == "" {
			continue
		}
		if i, ok := index[word]; ok {
			counts[i].Frequency++
			continue
		}
		index[word] = len(counts)
		counts = append(counts, models.KeywordCount{Keyword: word, Frequency: 1})
	}
	return counts
}

func sortKeywordCounts(counts []models.KeywordCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Frequency > counts[j].Frequency
	})
}

func analyzeStructure(text string) models.ContentStructure {
	sentences := 0
	for _, s := range sentenceEndRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	return models.ContentStructure{
		HasNumbers:        numberRe.MatchString(text),
		HasFormulas:       formulaRe.MatchString(text),
		HasLists:          bulletRe.MatchString(text) || numberedRe.MatchString(text),
		HasQuestions:      strings.Contains(text, "?"),
		HasExamples:       exampleRe.MatchString(text),
		HasDefinitions:    definitionRe.MatchString(text),
		SentenceCount:     sentences,
		AvgSentenceLength: float64(utf8.RuneCountInString(text)) / float64(sentences),
	}
}

func now() time.Time {
	return time.Now().UTC()
}
