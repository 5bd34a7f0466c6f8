package cache

import (
	"context"
	"credit-loan-service/internal/config"
	"credit-loan-service/internal/domain/loan"
	"credit-loan-service/internal/infrastructure/monitoring"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"
)

const allKeySuffix = "all"

// LoanRepository decorates a loan.Repository with a read-through,
// write-invalidate cache. Single records live under `loan:{id}`, the full
// list under `loan:all`; both expire after the configured TTL.
//
// The cache is never the system of record. Writes go to the store first and
// invalidate (delete, never overwrite) the affected keys only after the store
// confirms; reads treat any cache failure as a miss and fall through, so a
// dead cache backend degrades the service to store-only instead of failing
// requests.
type LoanRepository struct {
	next   loan.Repository
	kv     Store
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewLoanRepository(next loan.Repository, kv Store, cfg config.CacheConfig, logger *slog.Logger) *LoanRepository {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "loan:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LoanRepository{
		next:   next,
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "CachedLoanRepository"),
	}
}

func (r *LoanRepository) idKey(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}

func (r *LoanRepository) allKey() string {
	return r.prefix + allKeySuffix
}

// lookup fetches and decodes a cached entry into dest. It reports a hit via
// its return value; misses, backend failures and undecodable payloads all
// come back false so the caller falls through to the store.
func (r *LoanRepository) lookup(ctx context.Context, key, kind string, dest any) bool {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			monitoring.RecordCacheLookup(kind, "miss")
		} else {
			monitoring.RecordCacheLookup(kind, "error")
			r.logger.WarnContext(ctx, "Cache read failed, falling through to store", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		monitoring.RecordCacheLookup(kind, "error")
		r.logger.WarnContext(ctx, "Discarding undecodable cache entry", "key", key, "error", err)
		r.invalidate(ctx, key)
		return false
	}
	monitoring.RecordCacheLookup(kind, "hit")
	return true
}

// populate stores an entry after a successful store read. A failed cache
// write is logged and ignored; it must never fail the surrounding read.
func (r *LoanRepository) populate(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := r.kv.Set(ctx, key, string(raw), r.ttl); err != nil {
		r.logger.WarnContext(ctx, "Cache write failed", "key", key, "error", err)
	}
}

// invalidate removes keys after a confirmed store mutation. Failures are
// logged and ignored: the entries still expire via TTL, which bounds how
// long a stale value can live.
func (r *LoanRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.kv.Del(ctx, keys...); err != nil {
		r.logger.WarnContext(ctx, "Cache invalidation failed", "keys", keys, "error", err)
	}
}

func (r *LoanRepository) GetAll(ctx context.Context) ([]loan.Loan, error) {
	var cached []loan.Loan
	if r.lookup(ctx, r.allKey(), "all", &cached) {
		return cached, nil
	}

	loans, err := r.next.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	r.populate(ctx, r.allKey(), loans)
	return loans, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	var cached loan.Loan
	if r.lookup(ctx, r.idKey(id), "id", &cached) {
		return &cached, nil
	}

	// A miss never means "does not exist"; only the store decides that.
	l, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.populate(ctx, r.idKey(id), l)
	return l, nil
}

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	created, err := r.next.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, r.allKey())
	return created, nil
}

func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	updated, err := r.next.Update(ctx, l)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, r.allKey(), r.idKey(updated.ID))
	return updated, nil
}

func (r *LoanRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, r.allKey(), r.idKey(id))
	return nil
}

// Search bypasses the cache entirely: result sets are keyed by arbitrary
// terms and are not worth caching.
func (r *LoanRepository) Search(ctx context.Context, term string) ([]loan.Loan, error) {
	return r.next.Search(ctx, term)
}

// Statistics bypasses the cache; aggregates must reflect the current store.
func (r *LoanRepository) Statistics(ctx context.Context) (*loan.Statistics, error) {
	return r.next.Statistics(ctx)
}

var _ loan.Repository = (*LoanRepository)(nil)
