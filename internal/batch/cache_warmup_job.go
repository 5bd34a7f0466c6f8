package batch

import (
	"context"
	"credit-loan-service/internal/domain/loan"
	"fmt"
	"log/slog"
	"time"
)

// CacheWarmupJob re-reads the full loan list through the cache-aside
// repository so the list entry is repopulated after invalidation or TTL
// expiry, instead of the first client request paying the store round trip.
// It must be given the cached repository; warming a bare store adapter is a
// no-op with extra steps.
type CacheWarmupJob struct {
	repo   loan.Repository
	logger *slog.Logger
}

func NewCacheWarmupJob(repo loan.Repository, logger *slog.Logger) *CacheWarmupJob {
	if repo == nil || logger == nil {
		panic("CacheWarmupJob dependencies cannot be nil")
	}
	return &CacheWarmupJob{
		repo:   repo,
		logger: logger.With("job", "CacheWarmup"),
	}
}

func (j *CacheWarmupJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting loan cache warmup job.")

	loans, err := j.repo.GetAll(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to warm loan cache.", slog.Any("error", err))
		return fmt.Errorf("cache warmup failed: %w", err)
	}

	j.logger.InfoContext(ctx, "Loan cache warmup job finished.",
		slog.Int("loans_loaded", len(loans)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}
