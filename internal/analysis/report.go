package analysis

import (
	"fmt"
	"sort"
	"strings"

	"aptitude-service/internal/models"
)

const (
	MethodHeuristic = "heuristic"
	MethodModel     = "model"

	maxReportKeywords = 20
	maxSampleChunks   = 5
	fallbackRelevant  = 10
)

type thresholds struct {
	topicChunks int
	typeChunks  int
}

var (
	heuristicThresholds = thresholds{topicChunks: 5, typeChunks: 3}
	modelThresholds     = thresholds{topicChunks: 3, typeChunks: 2}
)

type topicAgg struct {
	count      int
	matches    int
	confidence float64
	samples    []string
}

func buildReport(total int, analyses []models.ChunkAnalysis, method string, th thresholds) *models.ContentReport {
	var topicOrder, conceptOrder, typeOrder []string
	topics := map[string]*topicAgg{}
	concepts := map[string]int{}
	types := map[string]int{}
	keywordIdx := map[string]int{}
	var keywords []models.KeywordCount
	var dist models.DifficultyCounts

	for _, a := range analyses {
		for _, t := range a.Topics {
			agg, ok := topics[t.Topic]
			if !ok {
				agg = &topicAgg{}
				topics[t.Topic] = agg
				topicOrder = append(topicOrder, t.Topic)
			}
			agg.count++
			agg.matches += t.Matches
			agg.confidence += t.Confidence
			if len(agg.samples) < maxSampleChunks {
				agg.samples = append(agg.samples, a.ChunkID)
			}
		}
		for _, c := range a.Concepts {
			if _, ok := concepts[c]; !ok {
				conceptOrder = append(conceptOrder, c)
			}
			concepts[c]++
		}
		for _, qt := range a.QuestionTypes {
			if _, ok := types[qt]; !ok {
				typeOrder = append(typeOrder, qt)
			}
			types[qt]++
		}
		switch a.Difficulty {
		case models.DifficultyEasy:
			dist.Easy++
		case models.DifficultyHard:
			dist.Hard++
		default:
			dist.Medium++
		}
		for _, kw := range a.Keywords {
			if i, ok := keywordIdx[kw]; ok {
				keywords[i].Frequency++
				continue
			}
			keywordIdx[kw] = len(keywords)
			keywords = append(keywords, models.KeywordCount{Keyword: kw, Frequency: 1})
		}
	}

	report := &models.ContentReport{
		TotalChunks:            total,
		AnalyzedChunks:         len(analyses),
		DifficultyDistribution: dist,
		AnalyzedAt:             now(),
		Method:                 method,
		Chunks:                 analyses,
	}

	for _, name := range topicOrder {
		agg := topics[name]
		report.Topics = append(report.Topics, models.TopicCount{
			Topic:          name,
			Count:          agg.count,
			TotalMatches:   agg.matches,
			AvgConfidence:  agg.confidence / float64(agg.count),
			SampleChunkIDs: agg.samples,
		})
	}
	sort.SliceStable(report.Topics, func(i, j int) bool {
		return report.Topics[i].Count > report.Topics[j].Count
	})

	sort.SliceStable(conceptOrder, func(i, j int) bool {
		return concepts[conceptOrder[i]] > concepts[conceptOrder[j]]
	})
	report.Concepts = conceptOrder

	for _, name := range typeOrder {
		report.QuestionTypes = append(report.QuestionTypes, models.TypeCount{Type: name, Count: types[name]})
	}
	sort.SliceStable(report.QuestionTypes, func(i, j int) bool {
		return report.QuestionTypes[i].Count > report.QuestionTypes[j].Count
	})

	sortKeywordCounts(keywords)
	if len(keywords) > maxReportKeywords {
		keywords = keywords[:maxReportKeywords]
	}
	report.Keywords = keywords
	report.Recommendations = recommend(report, th)
	return report
}

func recommend(report *models.ContentReport, th thresholds) []models.Recommendation {
	recs := []models.Recommendation{}
	for _, t := range report.Topics {
		if t.Count > th.topicChunks {
			recs = append(recs, models.Recommendation{
				Type:     "topic_focus",
				Priority: "high",
				Target:   t.Topic,
				Message:  fmt.Sprintf("High content density for %s. Generate multiple question types.", t.Topic),
			})
		}
	}
	for _, qt := range report.QuestionTypes {
		if qt.Count > th.typeChunks {
			recs = append(recs, models.Recommendation{
				Type:     "question_type",
				Priority: "medium",
				Target:   qt.Type,
				Message:  fmt.Sprintf("Strong content support for %s questions.", qt.Type),
			})
		}
	}
	return recs
}

// ScoreChunk rates how much question material a chunk holds.
func ScoreChunk(a models.ChunkAnalysis) float64 {
	score := float64(len(a.Topics))*2 + float64(len(a.Concepts)) + float64(len(a.QuestionTypes))*1.5
	if a.Structure.HasExamples {
		score++
	}
	if a.Structure.HasDefinitions {
		score++
	}
	if a.Structure.HasNumbers {
		score += 0.5
	}
	return score
}

// SelectChunks returns the n highest scoring chunks. Chunks the report did
// not analyze score zero; ties keep input order.
func SelectChunks(chunks []models.Chunk, report *models.ContentReport, n int) []models.Chunk {
	byID := map[string]models.ChunkAnalysis{}
	if report != nil {
		for _, a := range report.Chunks {
			byID[a.ChunkID] = a
		}
	}

	type scored struct {
		chunk models.Chunk
		score float64
	}
	list := make([]scored, len(chunks))
	for i, ch := range chunks {
		s := 0.0
		if a, ok := byID[ch.ID]; ok {
			s = ScoreChunk(a)
		}
		list[i] = scored{chunk: ch, score: s}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})

	if n > len(list) {
		n = len(list)
	}
	if n < 0 {
		n = 0
	}
	out := make([]models.Chunk, n)
	for i := 0; i < n; i++ {
		out[i] = list[i].chunk
	}
	return out
}

// RelevantChunks keeps chunks mentioning the topic or a report concept related
// to it. When nothing matches the first ten chunks are returned.
func RelevantChunks(topic string, chunks []models.Chunk, report *models.ContentReport) []models.Chunk {
	topicLower := strings.ToLower(strings.TrimSpace(topic))

	var related []string
	if report != nil && topicLower != "" {
		for _, c := range report.Concepts {
			cl := strings.ToLower(c)
			if strings.Contains(cl, topicLower) || strings.Contains(topicLower, cl) {
				related = append(related, cl)
			}
		}
	}

	var out []models.Chunk
	for _, ch := range chunks {
		text := strings.ToLower(ch.Text)
		if topicLower != "" && strings.Contains(text, topicLower) {
			out = append(out, ch)
			continue
		}
		for _, c := range related {
			if strings.Contains(text, c) {
				out = append(out, ch)
				break
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(chunks) > fallbackRelevant {
		return chunks[:fallbackRelevant]
	}
	return chunks
}
