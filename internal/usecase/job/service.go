// Package job runs single-file matching jobs through a serial FIFO queue.
// One job is in flight at a time; submission is fire-and-forget and callers
// poll the persisted record for progress and results.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	"github.com/kailas-cloud/boqmatch/internal/logger"
)

// DefaultBacklog bounds how many submitted jobs may wait behind the one
// in flight.
const DefaultBacklog = 64

type queued struct {
	id    string
	file  domain.FileInput
	model string
}

// Service owns the job queue and the single worker draining it.
type Service struct {
	repo     Repository
	matchers map[string]domain.Matcher
	catalog  CatalogSource
	queue    chan queued
	logger   *zap.Logger
}

// New creates the job processor. matchers is keyed by model name; backlog
// of zero or less falls back to DefaultBacklog.
func New(
	repo Repository,
	matchers map[string]domain.Matcher,
	catalog CatalogSource,
	backlog int,
	log *zap.Logger,
) *Service {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		matchers: matchers,
		catalog:  catalog,
		queue:    make(chan queued, backlog),
		logger:   log,
	}
}

// Start launches the worker goroutine. It drains the queue serially until
// ctx is canceled; jobs left queued at shutdown stay pending in the store.
func (s *Service) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case q := <-s.queue:
				s.process(ctx, q)
			}
		}
	}()
}

// Submit validates the request, persists a pending job record, and
// enqueues it. Returns the job id immediately; processing outcome is
// observed through GetJob. A saturated backlog fails the submission.
func (s *Service) Submit(ctx context.Context, file domain.FileInput, model string) (string, error) {
	if _, ok := s.matchers[model]; !ok {
		return "", fmt.Errorf("%w: unknown model %q", domain.ErrValidation, model)
	}
	if len(file.Items) == 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyQuerySet)
	}

	now := time.Now().UTC()
	j := &domain.Job{
		ID:        uuid.NewString(),
		Status:    domain.StatusPending,
		FileName:  file.Name,
		ItemCount: len(file.Items),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SaveJob(ctx, j); err != nil {
		return "", fmt.Errorf("persist job: %w", err)
	}

	select {
	case s.queue <- queued{id: j.ID, file: file, model: model}:
		return j.ID, nil
	default:
		j.Status = domain.StatusFailed
		j.Error = domain.ErrQueueFull.Error()
		s.save(ctx, j)
		return "", domain.ErrQueueFull
	}
}

// GetJob returns the persisted job record.
func (s *Service) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.repo.GetJob(ctx, id)
}

// process runs one job to a terminal state. Errors never escape: a failed
// run is recorded on the job itself so the queue keeps draining.
func (s *Service) process(ctx context.Context, q queued) {
	log := logger.FromContext(ctx).With(zap.String("job_id", q.id), zap.String("model", q.model))

	j, err := s.repo.GetJob(ctx, q.id)
	if err != nil {
		log.Error("load queued job", zap.Error(err))
		return
	}

	j.Status = domain.StatusProcessing
	s.appendLog(j, fmt.Sprintf("started: model=%s items=%d file=%s", q.model, len(q.file.Items), q.file.Name))
	s.save(ctx, j)

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		s.fail(ctx, j, fmt.Errorf("load catalog: %w", err))
		return
	}

	results, err := s.matchers[q.model].MatchItems(ctx, q.file.Items, cat,
		func(percent int, message string) {
			j.Progress = percent
			s.appendLog(j, fmt.Sprintf("[%d%%] %s", percent, message))
			s.save(ctx, j)
		})
	if err != nil {
		s.fail(ctx, j, err)
		return
	}

	for i := range results {
		results[i].InputDescription = q.file.Items[i]
	}

	j.Status = domain.StatusCompleted
	j.Progress = 100
	j.Results = results
	s.appendLog(j, fmt.Sprintf("completed: avg confidence %.1f", domain.AvgConfidence(results)))
	s.save(ctx, j)
	log.Info("job completed", zap.Int("items", len(results)))
}

// fail marks the job terminally failed. Progress resets to zero: a failed
// run produced nothing, so partial percentages would mislead pollers.
func (s *Service) fail(ctx context.Context, j *domain.Job, err error) {
	j.Status = domain.StatusFailed
	j.Progress = 0
	j.Error = err.Error()
	s.appendLog(j, "failed: "+err.Error())
	s.save(ctx, j)
	s.logger.Warn("job failed", zap.String("job_id", j.ID), zap.Error(err))
}

func (s *Service) appendLog(j *domain.Job, line string) {
	j.Logs = append(j.Logs, line)
}

func (s *Service) save(ctx context.Context, j *domain.Job) {
	j.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveJob(ctx, j); err != nil {
		s.logger.Warn("persist job state", zap.String("job_id", j.ID), zap.Error(err))
	}
}
