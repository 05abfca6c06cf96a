package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/application"
	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/services"
	"github.com/FJNU-NISA/WelcomeSystem/domain/testhelpers"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure"
	"github.com/FJNU-NISA/WelcomeSystem/repository"
	"github.com/FJNU-NISA/WelcomeSystem/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects events the local bus delivered after commit
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testApp struct {
	bus      *infrastructure.LocalEventBus
	recorder *eventRecorder
	ledger   *application.LedgerHandler
	lottery  *application.LotteryHandler
	prizes   *application.PrizeAdminHandler
}

func newTestApp(t *testing.T, testDB *testutil.TestDatabase, random services.RandomSource) *testApp {
	t.Helper()

	bus := infrastructure.NewLocalEventBus()
	recorder := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.EventTypePointsChanged,
		events.EventTypeLedgerEntryRevoked,
		events.EventTypePrizeDrawn,
		events.EventTypePrizePoolChanged,
		events.EventTypePrizeRedemptionToggled,
	} {
		bus.RegisterLocalHandler(eventType, recorder.handle)
	}
	application.RegisterMetricsHandlers(bus)

	runner := application.NewTransactionRunner(infrastructure.NewTestUnitOfWorkFactory(testDB.DB, bus), 3)
	return &testApp{
		bus:      bus,
		recorder: recorder,
		ledger:   application.NewLedgerHandler(runner),
		lottery:  application.NewLotteryHandler(runner, 1, 3, random),
		prizes:   application.NewPrizeAdminHandler(runner),
	}
}

func TestDrawAndRevokeFlow(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	app := newTestApp(t, testDB, &testhelpers.FixedRandom{Values: []float64{0.1}})

	_, err := app.prizes.EnsureFillerPrize(ctx)
	require.NoError(t, err)
	mug, err := app.prizes.CreatePrize(ctx, testPrizeInput("Mug", 40, 2))
	require.NoError(t, err)

	summary, err := app.prizes.ProbabilitySummary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, summary.NormalWeightSum, 1e-9)
	assert.InDelta(t, 60.0, summary.FillerWeight, 1e-9)

	_, err = app.ledger.RegisterUser(ctx, "2024100", "Alice")
	require.NoError(t, err)
	credit, err := app.ledger.ManualAdjust(ctx, "2024100", 2, "check-in", "admin")
	require.NoError(t, err)

	result, err := app.lottery.Draw(ctx, "2024100")
	require.NoError(t, err)
	assert.Equal(t, mug.ID, result.PrizeID)
	assert.False(t, result.IsFiller)
	assert.Equal(t, int64(1), result.RemainingBalance)

	owned, err := app.lottery.OwnedPrizes(ctx, "2024100")
	require.NoError(t, err)
	require.Len(t, owned, 1)

	toggled, err := app.lottery.ToggleRedemption(ctx, "2024100", owned[0].ID, "staff")
	require.NoError(t, err)
	assert.True(t, toggled.Redeemed)

	revoke, err := app.ledger.Revoke(ctx, "2024100", credit.ID, "admin", "duplicate check-in")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), revoke.AppliedDelta)
	assert.Equal(t, int64(-1), revoke.NewBalance)

	_, err = app.ledger.Revoke(ctx, "2024100", credit.ID, "admin", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyRevoked)

	balance, err := app.ledger.Balance(ctx, "2024100")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), balance)

	history, err := app.ledger.History(ctx, "2024100", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, entities.TransactionKindRevoke, history[0].Kind)

	discrepancies, err := app.ledger.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, discrepancies)

	assert.Len(t, app.recorder.ofType(events.EventTypePointsChanged), 3)
	assert.Len(t, app.recorder.ofType(events.EventTypeLedgerEntryRevoked), 1)
	assert.Len(t, app.recorder.ofType(events.EventTypePrizeDrawn), 1)
	assert.Len(t, app.recorder.ofType(events.EventTypePrizeRedemptionToggled), 1)
}

func TestDraw_InsufficientFundsPublishesNothing(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	app := newTestApp(t, testDB, &testhelpers.FixedRandom{Values: []float64{0.5}})

	_, err := app.prizes.EnsureFillerPrize(ctx)
	require.NoError(t, err)
	testutil.SeedUser(t, testDB.DB, "2024101", 0)

	_, err = app.lottery.Draw(ctx, "2024101")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Empty(t, app.recorder.ofType(events.EventTypePrizeDrawn))
	assert.Empty(t, app.recorder.ofType(events.EventTypePointsChanged))
}

func TestPrizeAdmin_OverflowRejected(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	app := newTestApp(t, testDB, nil)

	_, err := app.prizes.EnsureFillerPrize(ctx)
	require.NoError(t, err)
	_, err = app.prizes.CreatePrize(ctx, testPrizeInput("Poster", 70, 5))
	require.NoError(t, err)

	_, err = app.prizes.CreatePrize(ctx, testPrizeInput("Hoodie", 40, 1))
	assert.ErrorIs(t, err, domain.ErrWeightOverflow)

	assert.ErrorIs(t, app.prizes.ValidateWeightChange(ctx, 31, nil), domain.ErrWeightOverflow)
	assert.NoError(t, app.prizes.ValidateWeightChange(ctx, 30, nil))

	prizes, err := app.prizes.ListPrizes(ctx)
	require.NoError(t, err)
	assert.Len(t, prizes, 2)

	summary, err := app.prizes.RecomputeFillerWeight(ctx, "test")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, summary.FillerWeight, 1e-9)

	sim, err := app.prizes.SimulatePool(ctx, 2000, nil)
	require.NoError(t, err)
	assert.Len(t, sim.Prizes, 2)
	assert.Equal(t, 2000, sim.Trials)
}

func TestLevelCompletionSubscription(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	app := newTestApp(t, testDB, nil)

	level := testutil.CreateTestLevel("Port scan", 5)
	require.NoError(t, repository.NewLevelRepository(testDB.DB).Create(ctx, level))
	testutil.SeedUser(t, testDB.DB, "2024102", 0)

	subscriber := &inlineSubscriber{handlers: map[events.EventType]func(context.Context, events.Event) error{}}
	require.NoError(t, application.RegisterApplicationSubscriptions(subscriber, app.ledger))

	report := events.LevelCompletionReportedEvent{UserID: "2024102", LevelID: level.ID, Operator: "checker"}
	require.NoError(t, subscriber.deliver(ctx, report))
	require.NoError(t, subscriber.deliver(ctx, report), "duplicate reports are acknowledged")

	balance, err := app.ledger.Balance(ctx, "2024102")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
	assert.Len(t, app.recorder.ofType(events.EventTypePointsChanged), 1)
}

func TestBackgroundJobs_Run(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	app := newTestApp(t, testDB, nil)

	_, err := app.prizes.EnsureFillerPrize(ctx)
	require.NoError(t, err)

	jobs := application.NewBackgroundJobs(app.ledger, app.prizes)
	require.NoError(t, jobs.AuditLedger(ctx))
	require.NoError(t, jobs.ReconcileFiller(ctx))

	scheduler, err := infrastructure.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scheduler.Shutdown() })

	require.NoError(t, jobs.Register(scheduler, 0, time.Minute))
	assert.Equal(t, 1, scheduler.JobCount())
}

func testPrizeInput(name string, weight float64, stock int64) interfaces.PrizeInput {
	return interfaces.PrizeInput{
		Name:     name,
		Stock:    stock,
		Weight:   weight,
		IsActive: true,
	}
}

type inlineSubscriber struct {
	handlers map[events.EventType]func(context.Context, events.Event) error
}

func (s *inlineSubscriber) Subscribe(eventType events.EventType, handler func(ctx context.Context, event events.Event) error) error {
	s.handlers[eventType] = handler
	return nil
}

func (s *inlineSubscriber) deliver(ctx context.Context, event events.Event) error {
	return s.handlers[event.Type()](ctx, event)
}
