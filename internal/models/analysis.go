package models

import "time"

type TopicMatch struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
	Matches    int     `json:"matches"`
}

type DifficultyCounts struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type ContentStructure struct {
	HasNumbers        bool    `json:"hasNumbers"`
	HasFormulas       bool    `json:"hasFormulas"`
	HasLists          bool    `json:"hasLists"`
	HasQuestions      bool    `json:"hasQuestions"`
	HasExamples       bool    `json:"hasExamples"`
	HasDefinitions    bool    `json:"hasDefinitions"`
	SentenceCount     int     `json:"sentenceCount"`
	AvgSentenceLength float64 `json:"avgSentenceLength"`
}

// ChunkAnalysis is the per-chunk result of content analysis.
type ChunkAnalysis struct {
	ChunkID         string           `json:"chunkId"`
	ChunkIndex      int              `json:"chunkIndex"`
	Topics          []TopicMatch     `json:"topics"`
	Concepts        []string         `json:"concepts"`
	QuestionTypes   []string         `json:"questionTypes"`
	Difficulty      string           `json:"difficulty"`
	Keywords        []string         `json:"keywords"`
	Structure       ContentStructure `json:"structure"`
	TextLength      int              `json:"textLength"`
	WordCount       int              `json:"wordCount"`
	AnalyzedByModel bool             `json:"analyzedByModel,omitempty"`
}

type TopicCount struct {
	Topic          string   `json:"topic"`
	Count          int      `json:"count"`
	TotalMatches   int      `json:"totalMatches"`
	AvgConfidence  float64  `json:"avgConfidence"`
	SampleChunkIDs []string `json:"sampleChunks"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type KeywordCount struct {
	Keyword   string `json:"keyword"`
	Frequency int    `json:"frequency"`
}

type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Target   string `json:"target"`
}

// ContentReport aggregates the analysis of a chunk set.
type ContentReport struct {
	TotalChunks            int              `json:"totalChunks"`
	AnalyzedChunks         int              `json:"analyzedChunks"`
	Topics                 []TopicCount     `json:"topics"`
	Concepts               []string         `json:"concepts"`
	QuestionTypes          []TypeCount      `json:"questionTypes"`
	DifficultyDistribution DifficultyCounts `json:"difficultyDistribution"`
	Keywords               []KeywordCount   `json:"keywords"`
	Recommendations        []Recommendation `json:"recommendations"`
	AnalyzedAt             time.Time        `json:"analyzedAt"`
	Method                 string           `json:"method"`

	Chunks []ChunkAnalysis `json:"-"`
}

// TopicNames returns the detected topic names in report order.
func (r *ContentReport) TopicNames() []string {
	names := make([]string, 0, len(r.Topics))
	for _, t := range r.Topics {
		names = append(names, t.Topic)
	}
	return names
}
