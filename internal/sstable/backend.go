package sstable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Backend is the object-storage abstraction Store loads SST bytes through.
// It is the bottom of the collaborator stack named in spec.md §4.7; unlike
// Store, a Backend has no notion of blocks, handles, or caching — it is a
// plain object get/put.
type Backend interface {
	GetObject(ctx context.Context, id uint64) ([]byte, error)
	PutObject(ctx context.Context, id uint64, data []byte) error
}

// MemoryBackend is an in-process Backend, used by tests and by embedded
// deployments that keep SSTs resident in memory. It mirrors the teacher's
// MemoryStore (map-backed, mutex-protected, copies on read and write).
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[uint64][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[uint64][]byte)}
}

func (m *MemoryBackend) GetObject(_ context.Context, id uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("sstable: object %d: %w", id, ErrObjectNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) PutObject(_ context.Context, id uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[id] = stored
	return nil
}

// S3Backend stores SST objects in an S3-compatible bucket, the production
// backend for a deployed Hummock store.
type S3Backend struct {
	bucket string
	prefix string
	client *s3.S3
}

// NewS3Backend constructs an S3Backend over an existing AWS session, the
// pattern the pack's joeycumines-go-utilpkg module uses its aws-sdk-go
// dependency for (session-scoped service clients).
func NewS3Backend(sess *session.Session, bucket, prefix string) *S3Backend {
	return &S3Backend{bucket: bucket, prefix: prefix, client: s3.New(sess)}
}

func (b *S3Backend) objectKey(id uint64) string {
	return fmt.Sprintf("%s/%020d.sst", b.prefix, id)
}

func (b *S3Backend) GetObject(ctx context.Context, id uint64) ([]byte, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("sstable: s3 get %d: %w", id, err)
	}
	defer out.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("sstable: s3 read %d: %w", id, err)
	}
	return buf.Bytes(), nil
}

func (b *S3Backend) PutObject(ctx context.Context, id uint64, data []byte) error {
	uploader := s3manager.NewUploaderWithClient(b.client)
	_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("sstable: s3 put %d: %w", id, err)
	}
	return nil
}
