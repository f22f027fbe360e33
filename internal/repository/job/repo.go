// Package job persists single-file and batch job records as JSON documents
// in the key-value store.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/boqmatch/internal/db"
	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// store is the consumer interface for job persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo implements job and batch persistence over the KV facade. Records
// expire after the configured TTL; expiry resets on every save, so an
// actively processing job never expires mid-flight.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a job repository. prefix namespaces all keys, ttl bounds
// record lifetime; a ttl of zero keeps records forever.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

func (r *Repo) put(ctx context.Context, key string, data []byte) error {
	if r.ttl <= 0 {
		return r.store.Set(ctx, key, data)
	}
	return r.store.SetWithTTL(ctx, key, data, r.ttl)
}

// SaveJob upserts a single-file job record.
func (r *Repo) SaveJob(ctx context.Context, j *domain.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", j.ID, err)
	}
	if err := r.put(ctx, r.jobKey(j.ID), data); err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

// GetJob loads a single-file job record by id.
func (r *Repo) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	data, err := r.store.Get(ctx, r.jobKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	var j domain.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", id, err)
	}
	return &j, nil
}

// DeleteJob removes a single-file job record.
func (r *Repo) DeleteJob(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.jobKey(id)); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// SaveBatch upserts a batch job record.
func (r *Repo) SaveBatch(ctx context.Context, b *domain.BatchJob) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch %s: %w", b.ID, err)
	}
	if err := r.put(ctx, r.batchKey(b.ID), data); err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	return nil
}

// GetBatch loads a batch job record by id.
func (r *Repo) GetBatch(ctx context.Context, id string) (*domain.BatchJob, error) {
	data, err := r.store.Get(ctx, r.batchKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}

	var b domain.BatchJob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", id, err)
	}
	return &b, nil
}

// Key patterns: boqmatch:job:{id}, boqmatch:batch:{id}

func (r *Repo) jobKey(id string) string {
	return r.prefix + "job:" + id
}

func (r *Repo) batchKey(id string) string {
	return r.prefix + "batch:" + id
}
