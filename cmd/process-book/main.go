// Command process-book turns the reference PDF into the chunk file the
// service loads at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"aptitude-service/internal/chunker"
	"aptitude-service/internal/config"
	minioDB "aptitude-service/internal/database/minio"
	"aptitude-service/internal/extract"
	"aptitude-service/internal/repository"
)

func main() {
	cfg := config.Load()

	input := flag.String("in", cfg.Book.ReferenceBookPath, "reference book PDF")
	output := flag.String("out", cfg.Book.ChunksPath, "chunk JSON file to write")
	upload := flag.Bool("upload", false, "also upload the chunk file to MinIO")
	object := flag.String("object", "", "object name for -upload (defaults to the output file name)")
	flag.Parse()

	log.Printf("Reading %s", *input)
	text, err := extract.PDFText(*input)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}
	text = extract.Normalize(text)

	chunks := chunker.New(chunker.Options{
		MaxChars: cfg.Book.ChunkSize,
		Overlap:  cfg.Book.ChunkOverlap,
	}).Chunk(text)
	produced := len(chunks)
	chunks = chunker.Filter(chunks, cfg.Book.MinChunkSize, cfg.Book.MaxChunks)
	chunker.Annotate(chunks, filepath.Base(*input), time.Now().UTC())
	log.Printf("Kept %d of %d chunks (min size %d, cap %d)", len(chunks), produced, cfg.Book.MinChunkSize, cfg.Book.MaxChunks)

	data, err := repository.SaveFile(*output, chunks)
	if err != nil {
		log.Fatalf("Failed to save chunks: %v", err)
	}
	log.Printf("Wrote %s", *output)

	if *upload {
		client, err := minioDB.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO: %v", err)
		}
		name := *object
		if name == "" {
			name = filepath.Base(*output)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		info, err := repository.Publish(ctx, client, cfg.MinIO.ChunkBucket, name, data)
		cancel()
		if err != nil {
			log.Fatalf("Failed to upload chunks: %v", err)
		}
		log.Printf("Uploaded minio://%s/%s (%d bytes)", info.Bucket, info.Key, info.Size)
	}

	st := chunker.ComputeStats(chunks)
	fmt.Printf("Chunks: %d\n", st.Count)
	fmt.Printf("Average size: %.0f characters\n", st.AverageSize)
	fmt.Printf("Smallest: %d, largest: %d\n", st.Smallest, st.Largest)
}
