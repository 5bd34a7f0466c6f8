package cache

import (
	"bytes"
	"context"
	"credit-loan-service/internal/config"
	"credit-loan-service/internal/domain/loan"
	"credit-loan-service/internal/pkg/apperrors"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) GetAll(ctx context.Context) ([]loan.Loan, error) {
	args := m.Called(ctx)
	if loans, ok := args.Get(0).([]loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) Create(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	args := m.Called(ctx, l)
	if created, ok := args.Get(0).(*loan.Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	args := m.Called(ctx, l)
	if updated, ok := args.Get(0).(*loan.Loan); ok {
		return updated, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) Search(ctx context.Context, term string) ([]loan.Loan, error) {
	args := m.Called(ctx, term)
	if loans, ok := args.Get(0).([]loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) Statistics(ctx context.Context) (*loan.Statistics, error) {
	args := m.Called(ctx)
	if stats, ok := args.Get(0).(*loan.Statistics); ok {
		return stats, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeStore is an in-memory Store that records deletions and can be forced to
// fail each operation.
type fakeStore struct {
	data    map[string]string
	deleted []string
	getErr  error
	setErr  error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	val, ok := s.data[key]
	if !ok {
		return "", ErrMiss
	}
	return val, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	if s.delErr != nil {
		return s.delErr
	}
	for _, key := range keys {
		delete(s.data, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func newCachedRepo(next loan.Repository, kv Store) *LoanRepository {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewLoanRepository(next, kv, config.CacheConfig{KeyPrefix: "loan:", TTL: time.Minute}, logger)
}

func sampleLoan(id int64) *loan.Loan {
	return &loan.Loan{
		ID:           id,
		CustomerName: "Jane Doe",
		Amount:       decimal.NewFromInt(10000),
		InterestRate: decimal.RequireFromString("0.06"),
		TermInMonths: 24,
		Status:       loan.StatusActive,
		Version:      1,
	}
}

func TestCachedGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("a miss reads the store and populates the cache", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(sampleLoan(1), nil).Once()

		l, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), l.ID)
		assert.Contains(t, kv.data, "loan:1")

		// Second read is served from cache; the mock would fail on a second call.
		again, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", again.CustomerName)
		mockRepo.AssertExpectations(t)
	})

	t.Run("a miss for an absent id surfaces the store's not found", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		repo := newCachedRepo(mockRepo, newFakeStore())

		mockRepo.On("GetByID", mock.Anything, int64(404)).Return((*loan.Loan)(nil), apperrors.ErrNotFound)

		_, err := repo.GetByID(ctx, 404)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("a cache backend failure falls through to the store", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.getErr = errors.New("connection refused")
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(sampleLoan(1), nil)

		l, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), l.ID)
	})

	t.Run("an undecodable entry is discarded and the store consulted", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.data["loan:1"] = "{not json"
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(sampleLoan(1), nil)

		l, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), l.ID)
		assert.Contains(t, kv.deleted, "loan:1")
	})

	t.Run("a failed cache write does not fail the read", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.setErr = errors.New("connection refused")
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(sampleLoan(1), nil)

		_, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
	})
}

func TestCachedGetAll(t *testing.T) {
	ctx := context.Background()

	t.Run("serves repeated reads from the cached list", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("GetAll", mock.Anything).Return([]loan.Loan{*sampleLoan(1), *sampleLoan(2)}, nil).Once()

		first, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, first, 2)
		assert.Contains(t, kv.data, "loan:all")

		second, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, second, 2)
		mockRepo.AssertExpectations(t)
	})

	t.Run("store failures are returned without caching", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("GetAll", mock.Anything).Return(([]loan.Loan)(nil), apperrors.ErrDatabase)

		_, err := repo.GetAll(ctx)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		assert.NotContains(t, kv.data, "loan:all")
	})
}

func TestCachedWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("create invalidates the list key", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.data["loan:all"] = "[]"
		repo := newCachedRepo(mockRepo, kv)

		input := sampleLoan(0)
		mockRepo.On("Create", mock.Anything, input).Return(sampleLoan(1), nil)

		created, err := repo.Create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, []string{"loan:all"}, kv.deleted)
	})

	t.Run("update invalidates the list and record keys after the store confirms", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.data["loan:all"] = "[]"
		kv.data["loan:1"] = "{}"
		repo := newCachedRepo(mockRepo, kv)

		input := sampleLoan(1)
		updated := sampleLoan(1)
		updated.Version = 2
		mockRepo.On("Update", mock.Anything, input).Return(updated, nil)

		out, err := repo.Update(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, int64(2), out.Version)
		assert.ElementsMatch(t, []string{"loan:all", "loan:1"}, kv.deleted)
	})

	t.Run("a failed update leaves the cache untouched", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.data["loan:1"] = "{}"
		repo := newCachedRepo(mockRepo, kv)

		input := sampleLoan(1)
		mockRepo.On("Update", mock.Anything, input).Return((*loan.Loan)(nil), apperrors.ErrConflict)

		_, err := repo.Update(ctx, input)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Empty(t, kv.deleted)
		assert.Contains(t, kv.data, "loan:1")
	})

	t.Run("delete invalidates the list and record keys", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

		require.NoError(t, repo.Delete(ctx, 1))
		assert.ElementsMatch(t, []string{"loan:all", "loan:1"}, kv.deleted)
	})

	t.Run("a delete of an absent id leaves the cache untouched", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("Delete", mock.Anything, int64(404)).Return(apperrors.ErrNotFound)

		err := repo.Delete(ctx, 404)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Empty(t, kv.deleted)
	})

	t.Run("a failed invalidation does not fail the write", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.delErr = errors.New("connection refused")
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

		assert.NoError(t, repo.Delete(ctx, 1))
	})
}

func TestCachedPassThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("search always hits the store", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		kv := newFakeStore()
		kv.getErr = errors.New("cache must not be consulted")
		repo := newCachedRepo(mockRepo, kv)

		mockRepo.On("Search", mock.Anything, "jane").Return([]loan.Loan{*sampleLoan(1)}, nil)

		loans, err := repo.Search(ctx, "jane")
		require.NoError(t, err)
		assert.Len(t, loans, 1)
	})

	t.Run("statistics always hit the store", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		repo := newCachedRepo(mockRepo, newFakeStore())

		mockRepo.On("Statistics", mock.Anything).Return(&loan.Statistics{TotalLoans: 3}, nil)

		stats, err := repo.Statistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalLoans)
	})
}
