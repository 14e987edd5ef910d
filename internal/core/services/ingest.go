package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driving"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

// IngestLockName is the distributed lock held while a corpus is loaded
const IngestLockName = "course-ingest"

// IngestConfig holds configuration for the ingest service
type IngestConfig struct {
	Loader  driven.CourseLoader
	Lock    driven.DistributedLock // Optional: serialises ingestion across replicas
	LockTTL time.Duration          // default: 10m
	Logger  *slog.Logger
}

type ingestService struct {
	loader  driven.CourseLoader
	lock    driven.DistributedLock
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(cfg IngestConfig) driving.IngestService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 10 * time.Minute
	}
	return &ingestService{
		loader:  cfg.Loader,
		lock:    cfg.Lock,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Ingest upserts the corpus, courses first so chunks never reference a
// course that is missing from the catalog
func (s *ingestService) Ingest(ctx context.Context, corpus *domain.Corpus) (*domain.IngestResult, error) {
	if corpus == nil {
		return nil, fmt.Errorf("%w: corpus is required", domain.ErrInvalidInput)
	}

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, IngestLockName, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire ingest lock: %w", err)
		}
		if !acquired {
			s.logger.Info("ingest lock held by another instance, skipping", "holder", s.lockHolder(ctx))
			return &domain.IngestResult{Skipped: true}, nil
		}
		defer func() {
			if err := s.lock.Release(ctx, IngestLockName); err != nil {
				s.logger.Warn("failed to release ingest lock", "error", err)
			}
		}()
	}

	start := time.Now()
	result := &domain.IngestResult{}

	for i := range corpus.Courses {
		if err := s.loader.AddCourse(ctx, &corpus.Courses[i]); err != nil {
			return result, fmt.Errorf("failed to ingest course %q: %w", corpus.Courses[i].Title, err)
		}
		result.Courses++
	}

	if err := s.loader.AddChunks(ctx, corpus.Chunks); err != nil {
		return result, fmt.Errorf("failed to ingest chunks: %w", err)
	}
	result.Chunks = len(corpus.Chunks)

	s.logger.Info("corpus ingested",
		"courses", result.Courses,
		"chunks", result.Chunks,
		"duration", time.Since(start),
	)
	return result, nil
}

// lockHolder names the replica holding the ingest lock when the backend can
// report it
func (s *ingestService) lockHolder(ctx context.Context) string {
	h, ok := s.lock.(interface {
		Holder(ctx context.Context, name string) (string, error)
	})
	if !ok {
		return "unknown"
	}
	holder, err := h.Holder(ctx, IngestLockName)
	if err != nil || holder == "" {
		return "unknown"
	}
	return holder
}
