package testhelpers

import (
	"context"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, userID string) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, userID, displayName string) (*entities.User, error) {
	args := m.Called(ctx, userID, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) ApplyPointsDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) AddCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) RemoveCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) FindBalanceDiscrepancies(ctx context.Context) ([]*entities.BalanceDiscrepancy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceDiscrepancy), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByIDForUpdate(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) MarkRevoked(ctx context.Context, userID, recordID, operator string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, recordID, operator, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) RestoreRevoked(ctx context.Context, userID, recordID string) (bool, error) {
	args := m.Called(ctx, userID, recordID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPrizeRepository is a mock implementation of PrizeRepository
type MockPrizeRepository struct {
	mock.Mock
}

func (m *MockPrizeRepository) FindActive(ctx context.Context) ([]*entities.Prize, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Prize), args.Error(1)
}

func (m *MockPrizeRepository) FindAll(ctx context.Context) ([]*entities.Prize, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Prize), args.Error(1)
}

func (m *MockPrizeRepository) GetByID(ctx context.Context, id int64) (*entities.Prize, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Prize), args.Error(1)
}

func (m *MockPrizeRepository) GetFiller(ctx context.Context) (*entities.Prize, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Prize), args.Error(1)
}

func (m *MockPrizeRepository) Create(ctx context.Context, prize *entities.Prize) error {
	args := m.Called(ctx, prize)
	return args.Error(0)
}

func (m *MockPrizeRepository) Update(ctx context.Context, prize *entities.Prize) error {
	args := m.Called(ctx, prize)
	return args.Error(0)
}

func (m *MockPrizeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrizeRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockPrizeRepository) DecrementStock(ctx context.Context, id int64, amount int64) (bool, int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockPrizeRepository) IncrementCounter(ctx context.Context, id int64, counter interfaces.PrizeCounter, amount int64) error {
	args := m.Called(ctx, id, counter, amount)
	return args.Error(0)
}

func (m *MockPrizeRepository) SetFillerState(ctx context.Context, weight float64, active bool) error {
	args := m.Called(ctx, weight, active)
	return args.Error(0)
}

func (m *MockPrizeRepository) LockPool(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPrizeOwnershipRepository is a mock implementation of PrizeOwnershipRepository
type MockPrizeOwnershipRepository struct {
	mock.Mock
}

func (m *MockPrizeOwnershipRepository) Create(ctx context.Context, ownership *entities.PrizeOwnership) error {
	args := m.Called(ctx, ownership)
	return args.Error(0)
}

func (m *MockPrizeOwnershipRepository) GetByIDForUpdate(ctx context.Context, userID string, id int64) (*entities.PrizeOwnership, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PrizeOwnership), args.Error(1)
}

func (m *MockPrizeOwnershipRepository) SetRedeemed(ctx context.Context, userID string, id int64, redeemed bool, operator string, at time.Time) error {
	args := m.Called(ctx, userID, id, redeemed, operator, at)
	return args.Error(0)
}

func (m *MockPrizeOwnershipRepository) GetByUser(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PrizeOwnership), args.Error(1)
}

// MockLevelRepository is a mock implementation of LevelRepository
type MockLevelRepository struct {
	mock.Mock
}

func (m *MockLevelRepository) GetByID(ctx context.Context, id int64) (*entities.Level, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Level), args.Error(1)
}

func (m *MockLevelRepository) GetAll(ctx context.Context) ([]*entities.Level, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Level), args.Error(1)
}

func (m *MockLevelRepository) Create(ctx context.Context, level *entities.Level) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

func (m *MockLevelRepository) Update(ctx context.Context, level *entities.Level) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

func (m *MockLevelRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalEventPublisher is a mock implementation of
// TransactionalEventPublisher for testing
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}

// FixedRandom is a RandomSource that replays the given values in order and
// then repeats the last one
type FixedRandom struct {
	Values []float64
	calls  int
}

func (f *FixedRandom) Float64() (float64, error) {
	if len(f.Values) == 0 {
		return 0, nil
	}
	i := f.calls
	if i >= len(f.Values) {
		i = len(f.Values) - 1
	}
	f.calls++
	return f.Values[i], nil
}

// Calls reports how many values were consumed
func (f *FixedRandom) Calls() int {
	return f.calls
}
