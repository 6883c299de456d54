package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/google/uuid"
)

// ArtifactStore is an in-memory artifact gateway. Grant URLs are fake but deterministic.
type ArtifactStore struct {
	mu       sync.Mutex
	Objects  map[string][]byte
	Types    map[string]string
	FailPut  error
	FailSign error
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

func (s *ArtifactStore) PresignGet(_ context.Context, key string, ttl time.Duration) (*models.Grant, error) {
	if s.FailSign != nil {
		return nil, s.FailSign
	}
	if key == "" {
		return nil, fmt.Errorf("empty object key: %w", models.ErrPreconditionFailed)
	}
	return &models.Grant{
		Key:       key,
		URL:       "https://store.test/" + key + "?method=GET",
		Method:    http.MethodGet,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}

func (s *ArtifactStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (*models.Grant, error) {
	if s.FailSign != nil {
		return nil, s.FailSign
	}
	return &models.Grant{
		Key:         key,
		URL:         "https://store.test/" + key + "?method=PUT&content-type=" + contentType,
		Method:      http.MethodPut,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(ttl).UTC(),
	}, nil
}

func (s *ArtifactStore) PutObject(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if s.FailPut != nil {
		return s.FailPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = data
	s.Types[key] = contentType
	return nil
}

func (s *ArtifactStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, errors.New("no such key"))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *ArtifactStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.Objects))
	for k := range s.Objects {
		keys = append(keys, k)
	}
	return keys
}

// Queue records enqueued jobs instead of scheduling them.
type Queue struct {
	mu       sync.Mutex
	Enqueued []uuid.UUID
	Fail     error
}

func (q *Queue) EnqueuePrepare(_ context.Context, job *models.Job) error {
	if q.Fail != nil {
		return q.Fail
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Enqueued = append(q.Enqueued, job.ExternalID)
	return nil
}

// StatusCache mirrors the monotonic behaviour of the Redis status cache.
type StatusCache struct {
	mu    sync.Mutex
	views map[uuid.UUID]*models.StatusView
	locks map[string]time.Time
}

func NewStatusCache() *StatusCache {
	return &StatusCache{
		views: make(map[uuid.UUID]*models.StatusView),
		locks: make(map[string]time.Time),
	}
}

func (c *StatusCache) SetStatus(_ context.Context, view *models.StatusView, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.views[view.JobID]; ok && cur.UpdatedAt.After(view.UpdatedAt) {
		return nil
	}
	cp := *view
	c.views[view.JobID] = &cp
	return nil
}

func (c *StatusCache) GetStatus(_ context.Context, externalID uuid.UUID) (*models.StatusView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[externalID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (c *StatusCache) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if until, ok := c.locks[key]; ok && time.Now().Before(until) {
		return false, nil
	}
	c.locks[key] = time.Now().Add(ttl)
	return true, nil
}
