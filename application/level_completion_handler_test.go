package application

import (
	"context"
	"errors"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLevelHandlerWithFake() (*LevelCompletionHandler, *fakeUnitOfWork) {
	uow := newFakeUnitOfWork()
	runner := NewTransactionRunner(&fakeUnitOfWorkFactory{uow: uow}, 1)
	return NewLevelCompletionHandler(NewLedgerHandler(runner)), uow
}

func TestHandleLevelCompletion_AcknowledgesUnrecoverableReports(t *testing.T) {
	t.Parallel()

	activeLevel := &entities.Level{ID: 1, Name: "warmup", Points: 10, IsActive: true}

	tests := []struct {
		name  string
		setup func(uow *fakeUnitOfWork)
	}{
		{
			name: "unknown level",
			setup: func(uow *fakeUnitOfWork) {
				uow.levels.On("GetByID", mock.Anything, int64(1)).Return(nil, nil)
			},
		},
		{
			name: "inactive level",
			setup: func(uow *fakeUnitOfWork) {
				uow.levels.On("GetByID", mock.Anything, int64(1)).
					Return(&entities.Level{ID: 1, Name: "hidden", Points: 5, IsActive: false}, nil)
			},
		},
		{
			name: "unknown user",
			setup: func(uow *fakeUnitOfWork) {
				uow.levels.On("GetByID", mock.Anything, int64(1)).Return(activeLevel, nil)
				uow.users.On("GetByIDForUpdate", mock.Anything, "2024001").Return(nil, nil)
			},
		},
		{
			name: "level already completed",
			setup: func(uow *fakeUnitOfWork) {
				uow.levels.On("GetByID", mock.Anything, int64(1)).Return(activeLevel, nil)
				uow.users.On("GetByIDForUpdate", mock.Anything, "2024001").
					Return(&entities.User{ID: "2024001", Points: 3, CompletedLevels: []int64{1}}, nil)
				uow.users.On("AddCompletedLevel", mock.Anything, "2024001", int64(1)).Return(false, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler, uow := newLevelHandlerWithFake()
			tt.setup(uow)

			err := handler.HandleLevelCompletion(context.Background(), events.LevelCompletionReportedEvent{
				UserID:  "2024001",
				LevelID: 1,
			})

			assert.NoError(t, err)
			assert.Equal(t, 0, uow.commits)
			assert.Equal(t, 1, uow.rollbacks)
			uow.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleLevelCompletion_StoreFailureIsReturned(t *testing.T) {
	t.Parallel()

	handler, uow := newLevelHandlerWithFake()
	uow.levels.On("GetByID", mock.Anything, int64(1)).Return(nil, errors.New("connection refused"))

	err := handler.HandleLevelCompletion(context.Background(), events.LevelCompletionReportedEvent{
		UserID:  "2024001",
		LevelID: 1,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHandleLevelCompletion_AwardsPoints(t *testing.T) {
	t.Parallel()

	handler, uow := newLevelHandlerWithFake()
	uow.levels.On("GetByID", mock.Anything, int64(1)).
		Return(&entities.Level{ID: 1, Name: "warmup", Points: 10, IsActive: true}, nil)
	uow.users.On("GetByIDForUpdate", mock.Anything, "2024001").
		Return(&entities.User{ID: "2024001", Points: 3}, nil)
	uow.users.On("AddCompletedLevel", mock.Anything, "2024001", int64(1)).Return(true, nil)
	uow.users.On("ApplyPointsDelta", mock.Anything, "2024001", int64(10)).Return(int64(13), nil)
	uow.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
		return e.Kind == entities.TransactionKindLevelCompletion &&
			e.PointsChange == 10 &&
			e.Operator == defaultLevelOperator
	})).Return(nil)
	uow.publisher.On("Publish", mock.AnythingOfType("events.PointsChangedEvent")).Return(nil)

	err := handler.HandleLevelCompletion(context.Background(), events.LevelCompletionReportedEvent{
		UserID:  "2024001",
		LevelID: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, uow.commits)
	uow.ledger.AssertExpectations(t)
	uow.publisher.AssertExpectations(t)
}

func TestHandleLevelCompletion_WrongEventType(t *testing.T) {
	t.Parallel()

	handler, _ := newLevelHandlerWithFake()
	err := handler.HandleLevelCompletion(context.Background(), events.PrizePoolChangedEvent{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrLevelNotFound))
}
