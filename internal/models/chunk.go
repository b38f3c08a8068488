package models

import "time"

type Chunk struct {
	ID          string    `json:"id" bson:"id"`
	Text        string    `json:"text" bson:"text"`
	ChunkIndex  int       `json:"chunkIndex" bson:"chunk_index"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	Source      string    `json:"source,omitempty" bson:"source,omitempty"`
	ChunkSize   int       `json:"chunkSize,omitempty" bson:"chunk_size,omitempty"`
	ProcessedAt time.Time `json:"processedAt,omitempty" bson:"processed_at,omitempty"`
}

// ChunkRef is the excerpt of a retrieved chunk attached to a generated question.
type ChunkRef struct {
	ID   string `json:"id" bson:"id"`
	Text string `json:"text" bson:"text"`
}
