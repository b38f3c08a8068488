package chunker

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"aptitude-service/internal/models"
)

const DefaultMaxChars = 1800

type Options struct {
	MaxChars int
	// Overlap is the number of trailing characters of whole sentences
	// repeated at the start of the next chunk. Zero disables overlap.
	Overlap int
}

type Chunker struct {
	opts Options
	now  func() time.Time
}

func New(opts Options) *Chunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxChars {
		opts.Overlap = 0
	}
	return &Chunker{opts: opts, now: time.Now}
}

// SplitSentences breaks text after '.', '?' or '!' when followed by whitespace.
// The punctuation stays with its sentence; blank sentences are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		end := i
		for i < len(text) {
			next, nsize := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				break
			}
			i += nsize
		}
		if i == end {
			continue
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = i
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Chunk groups sentences greedily into chunks of at most MaxChars characters.
// A sentence longer than MaxChars is emitted whole in its own chunk.
func (c *Chunker) Chunk(text string) []models.Chunk {
	var texts []string
	var cur []string
	curLen := 0

	flush := func() {
		if s := strings.TrimSpace(strings.Join(cur, " ")); s != "" {
			texts = append(texts, s)
		}
	}

	for _, s := range SplitSentences(text) {
		sLen := utf8.RuneCountInString(s)
		joined := sLen
		if curLen > 0 {
			joined = curLen + 1 + sLen
		}
		if joined <= c.opts.MaxChars || curLen == 0 {
			cur = append(cur, s)
			curLen = joined
			continue
		}

		flush()
		cur, curLen = c.carryOver(cur, sLen)
		if curLen > 0 {
			curLen += 1 + sLen
		} else {
			curLen = sLen
		}
		cur = append(cur, s)
	}
	flush()

	createdAt := c.now().UTC()
	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{
			ID:         fmt.Sprintf("chunk-%d", i+1),
			Text:       t,
			ChunkIndex: i,
			CreatedAt:  createdAt,
		}
	}
	return chunks
}

// carryOver returns the trailing sentences of prev that fit in the overlap
// budget and still leave room for a sentence of nextLen characters.
func (c *Chunker) carryOver(prev []string, nextLen int) ([]string, int) {
	if c.opts.Overlap == 0 {
		return nil, 0
	}
	var kept []string
	keptLen := 0
	for i := len(prev) - 1; i >= 0; i-- {
		l := utf8.RuneCountInString(prev[i])
		candidate := l
		if keptLen > 0 {
			candidate = keptLen + 1 + l
		}
		if candidate > c.opts.Overlap || candidate+1+nextLen > c.opts.MaxChars {
			break
		}
		kept = append([]string{prev[i]}, kept...)
		keptLen = candidate
	}
	return kept, keptLen
}

// Filter drops chunks shorter than minSize characters and caps the result at
// maxChunks. Ids and indexes of the surviving chunks are kept as produced.
func Filter(chunks []models.Chunk, minSize, maxChunks int) []models.Chunk {
	out := make([]models.Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if utf8.RuneCountInString(ch.Text) < minSize {
			continue
		}
		out = append(out, ch)
	}
	if maxChunks > 0 && len(out) > maxChunks {
		out = out[:maxChunks]
	}
	return out
}

// Annotate stamps every chunk with its source file, its size in characters
// and the processing time.
func Annotate(chunks []models.Chunk, source string, at time.Time) {
	for i := range chunks {
		chunks[i].Source = source
		chunks[i].ChunkSize = utf8.RuneCountInString(chunks[i].Text)
		chunks[i].ProcessedAt = at
	}
}

type Stats struct {
	Count       int     `json:"count"`
	TotalChars  int     `json:"totalChars"`
	AverageSize float64 `json:"averageSize"`
	Smallest    int     `json:"smallest"`
	Largest     int     `json:"largest"`
}

func ComputeStats(chunks []models.Chunk) Stats {
	st := Stats{Count: len(chunks)}
	for i, ch := range chunks {
		n := utf8.RuneCountInString(ch.Text)
		st.TotalChars += n
		if i == 0 || n < st.Smallest {
			st.Smallest = n
		}
		if n > st.Largest {
			st.Largest = n
		}
	}
	if st.Count > 0 {
		st.AverageSize = float64(st.TotalChars) / float64(st.Count)
	}
	return st
}
