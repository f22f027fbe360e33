// Package batch runs multi-file matching jobs. Files are processed
// sequentially against a catalog loaded once per batch; a single file
// failure is recorded on that file and the batch keeps going.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// Progress anchors in absolute percent. File i of n owns the window
// [fileWindowBase + i/n*fileWindowSpan, fileWindowBase + (i+1)/n*fileWindowSpan].
const (
	progressStarted   = 5
	fileWindowBase    = 15
	fileWindowSpan    = 70
	pausePollInterval = 200 * time.Millisecond
	subscriberBacklog = 16
)

// ProgressUpdate is one observed state change on a running batch.
type ProgressUpdate struct {
	BatchID string `json:"batch_id"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Request describes a batch submission.
type Request struct {
	Files       []domain.FileInput
	Model       string
	ClientName  string
	ProjectName string
}

// Service runs batches, each in its own goroutine. Pause and progress
// subscriptions are in-memory; the persisted record is the durable view.
type Service struct {
	repo     Repository
	matchers map[string]domain.Matcher
	checkers map[string]CredentialChecker
	catalog  CatalogSource
	logger   *zap.Logger

	mu     sync.Mutex
	paused map[string]bool
	subs   map[string]map[chan ProgressUpdate]struct{}
}

// New creates the batch processor. matchers and checkers are keyed by
// model name; the hybrid model pre-flights every checker it depends on,
// so checkers holds one entry per underlying provider plus "hybrid"
// mapped through both (see ProvidersFor).
func New(
	repo Repository,
	matchers map[string]domain.Matcher,
	checkers map[string]CredentialChecker,
	catalog CatalogSource,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		matchers: matchers,
		checkers: checkers,
		catalog:  catalog,
		logger:   log,
		paused:   make(map[string]bool),
		subs:     make(map[string]map[chan ProgressUpdate]struct{}),
	}
}

// ProvidersFor lists the providers a model depends on for pre-flight.
func ProvidersFor(model string) []string {
	if model == "hybrid" {
		return []string{"openai", "cohere"}
	}
	return []string{model}
}

// StartBatch validates the request, pre-flights provider credentials,
// persists a pending record, and launches the batch goroutine. Setup
// failures reject the call; once running, the batch always reaches
// "completed" with per-file errors recorded on the results.
func (s *Service) StartBatch(ctx context.Context, req Request) (string, error) {
	matcher, ok := s.matchers[req.Model]
	if !ok {
		return "", fmt.Errorf("%w: unknown model %q", domain.ErrValidation, req.Model)
	}
	if len(req.Files) == 0 {
		return "", fmt.Errorf("%w: batch has no files", domain.ErrValidation)
	}

	for _, provider := range ProvidersFor(req.Model) {
		checker, ok := s.checkers[provider]
		if !ok {
			return "", fmt.Errorf("%w: no credential checker for provider %q", domain.ErrValidation, provider)
		}
		if err := checker.HealthCheck(ctx); err != nil {
			return "", fmt.Errorf("pre-flight %s: %w", provider, err)
		}
	}

	names := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
	}

	b := &domain.BatchJob{
		ID:          uuid.NewString(),
		Status:      domain.StatusPending,
		Model:       req.Model,
		ClientName:  req.ClientName,
		ProjectName: req.ProjectName,
		FileNames:   names,
		StartTime:   time.Now().UTC(),
	}
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return "", fmt.Errorf("persist batch: %w", err)
	}

	go s.run(context.WithoutCancel(ctx), b, req.Files, matcher)
	return b.ID, nil
}

// GetBatch returns the persisted batch record.
func (s *Service) GetBatch(ctx context.Context, id string) (*domain.BatchJob, error) {
	return s.repo.GetBatch(ctx, id)
}

// Pause requests a pause at the next file boundary. The file currently
// in flight finishes first.
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.setPaused(ctx, id, true)
}

// Resume clears a pause request.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.setPaused(ctx, id, false)
}

func (s *Service) setPaused(ctx context.Context, id string, paused bool) error {
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.paused[id] = paused
	s.mu.Unlock()

	b.Paused = paused
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return fmt.Errorf("persist pause state: %w", err)
	}
	return nil
}

// SubscribeToProgress returns a channel of progress updates for a batch
// and an unsubscribe func. Slow consumers lose intermediate updates
// rather than blocking the batch. Unsubscribe closes the channel.
func (s *Service) SubscribeToProgress(id string) (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, subscriberBacklog)

	s.mu.Lock()
	if s.subs[id] == nil {
		s.subs[id] = make(map[chan ProgressUpdate]struct{})
	}
	s.subs[id][ch] = struct{}{}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if _, ok := s.subs[id][ch]; ok {
			delete(s.subs[id], ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

func (s *Service) publish(id string, percent int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[id] {
		select {
		case ch <- ProgressUpdate{BatchID: id, Percent: percent, Message: message}:
		default:
		}
	}
}

// run drives one batch to completion. Only setup failures (catalog load)
// fail the whole batch; per-file matcher errors land on the file result.
func (s *Service) run(ctx context.Context, b *domain.BatchJob, files []domain.FileInput, matcher domain.Matcher) {
	log := s.logger.With(zap.String("batch_id", b.ID), zap.String("model", b.Model))

	b.Status = domain.StatusProcessing
	s.update(ctx, b, progressStarted, fmt.Sprintf("batch started: %d files", len(files)))

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		b.Status = domain.StatusFailed
		b.Error = fmt.Sprintf("load catalog: %v", err)
		s.finish(ctx, b, "batch failed: catalog unavailable")
		log.Error("batch setup failed", zap.Error(err))
		return
	}
	s.update(ctx, b, fileWindowBase, fmt.Sprintf("catalog loaded: %d entries", len(cat)))

	for i, file := range files {
		s.waitWhilePaused(ctx, b.ID)

		windowStart := fileWindowBase + i*fileWindowSpan/len(files)
		windowEnd := fileWindowBase + (i+1)*fileWindowSpan/len(files)

		b.Results = append(b.Results, s.processFile(ctx, b, file, matcher, cat, windowStart, windowEnd))
		s.update(ctx, b, windowEnd, fmt.Sprintf("file %d/%d done: %s", i+1, len(files), file.Name))
	}

	b.Status = domain.StatusCompleted
	s.finish(ctx, b, "batch completed")
	log.Info("batch completed", zap.Int("files", len(files)))
}

func (s *Service) processFile(
	ctx context.Context,
	b *domain.BatchJob,
	file domain.FileInput,
	matcher domain.Matcher,
	cat domain.Catalog,
	windowStart, windowEnd int,
) domain.BatchFileResult {
	fr := domain.BatchFileResult{FileName: file.Name, ItemCount: len(file.Items)}
	start := time.Now()

	results, err := matcher.MatchItems(ctx, file.Items, cat,
		func(percent int, message string) {
			abs := windowStart + percent*(windowEnd-windowStart)/100
			s.update(ctx, b, abs, file.Name+": "+message)
		})
	fr.ElapsedMS = time.Since(start).Milliseconds()

	if err != nil {
		fr.Error = err.Error()
		s.logger.Warn("batch file failed",
			zap.String("batch_id", b.ID), zap.String("file", file.Name), zap.Error(err))
		return fr
	}

	for i := range results {
		results[i].InputDescription = file.Items[i]
	}
	fr.Results = results
	fr.AvgConfidence = domain.AvgConfidence(results)
	return fr
}

// waitWhilePaused blocks at a file boundary while the batch is paused.
func (s *Service) waitWhilePaused(ctx context.Context, id string) {
	for {
		s.mu.Lock()
		paused := s.paused[id]
		s.mu.Unlock()
		if !paused {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pausePollInterval):
		}
	}
}

func (s *Service) update(ctx context.Context, b *domain.BatchJob, percent int, message string) {
	b.Progress = percent
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		s.logger.Warn("persist batch state", zap.String("batch_id", b.ID), zap.Error(err))
	}
	s.publish(b.ID, percent, message)
}

func (s *Service) finish(ctx context.Context, b *domain.BatchJob, message string) {
	now := time.Now().UTC()
	b.EndTime = &now
	s.update(ctx, b, 100, message)

	s.mu.Lock()
	delete(s.paused, b.ID)
	s.mu.Unlock()
}
