package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"aptitude-service/internal/models"

	"github.com/minio/minio-go/v7"
)

const minioScheme = "minio://"

// ObjectStore is the part of the MinIO client the repository needs.
type ObjectStore interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type ObjectUploader interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) (minio.UploadInfo, error)
}

// ChunkRepository loads the preprocessed chunk file, either from local disk
// or from an object store location written as minio://bucket/object.
type ChunkRepository struct {
	objects ObjectStore
}

func NewChunkRepository(objects ObjectStore) *ChunkRepository {
	return &ChunkRepository{objects: objects}
}

func (r *ChunkRepository) Load(ctx context.Context, location string) ([]models.Chunk, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if bucket, object, ok := ParseObjectLocation(location); ok {
		if r.objects == nil {
			return nil, fmt.Errorf("chunk source %s needs an object store", location)
		}
		rc, err = r.objects.Open(ctx, bucket, object)
	} else {
		rc, err = os.Open(location)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening chunks %s: %w", location, err)
	}
	defer rc.Close()

	chunks, err := DecodeChunks(rc)
	if err != nil {
		return nil, fmt.Errorf("error decoding chunks %s: %w", location, err)
	}
	log.Printf("Loaded %d chunks from %s", len(chunks), location)
	return chunks, nil
}

func DecodeChunks(r io.Reader) ([]models.Chunk, error) {
	var chunks []models.Chunk
	if err := json.NewDecoder(r).Decode(&chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// SaveFile writes chunks as indented JSON, creating parent directories.
func SaveFile(path string, chunks []models.Chunk) ([]byte, error) {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding chunks: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("error writing %s: %w", path, err)
	}
	return data, nil
}

// Publish uploads an encoded chunk file to bucket/object.
func Publish(ctx context.Context, up ObjectUploader, bucket, object string, data []byte) (minio.UploadInfo, error) {
	if err := up.EnsureBucket(ctx, bucket); err != nil {
		return minio.UploadInfo{}, err
	}
	return up.Upload(ctx, bucket, object, bytes.NewReader(data), int64(len(data)), "application/json")
}

// ParseObjectLocation splits minio://bucket/object. ok is false for plain paths.
func ParseObjectLocation(location string) (bucket, object string, ok bool) {
	if !strings.HasPrefix(location, minioScheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(location, minioScheme)
	bucket, object, found := strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
