package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/pkg/pubsub"
	"github.com/qs3c/khip_server/internal/repository"
	"github.com/qs3c/khip_server/internal/testutil"
)

type recordingPublisher struct {
	mu       sync.Mutex
	events   []*pubsub.PurchaseEvent
	failures int
}

func (p *recordingPublisher) Publish(ctx context.Context, event *pubsub.PurchaseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("redis: connection pool timeout")
	}
	p.events = append(p.events, event)
	return nil
}

var cronStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupCronService(t *testing.T) (*Service, *repository.PurchaseRepository, *recordingPublisher, *testutil.Clock, func()) {
	t.Helper()

	rdb, _, cleanup := testutil.SetupTestRedis(t)
	clock := testutil.NewClock(cronStart)
	repo, err := repository.NewPurchaseRepository(context.Background(), repository.NewMemoryBackend(nil), nil,
		repository.WithClock(clock.Now))
	require.NoError(t, err)
	publisher := &recordingPublisher{}

	svc := NewService(repo, publisher, rdb, 24, nil)
	svc.now = clock.Now

	return svc, repo, publisher, clock, cleanup
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, nil, nil, 0, nil)
	assert.Equal(t, 24*time.Hour, svc.window)
	assert.NotNil(t, svc.logger)
}

func TestRunNow_NotifiesOncePerPurchase(t *testing.T) {
	svc, repo, publisher, clock, cleanup := setupCronService(t)
	defer cleanup()
	ctx := context.Background()

	trial, err := repo.Add(ctx, testutil.NewPurchase("u1", model.PurchaseTypeTrial, "trial-access", model.PurchaseStatusCompleted))
	require.NoError(t, err)
	_, err = repo.Add(ctx, testutil.NewPurchase("u2", model.PurchaseTypeSnapshotPlan, "snapshot-plan", model.PurchaseStatusPending))
	require.NoError(t, err)
	_, err = repo.Add(ctx, testutil.NewPurchase("u3", model.PurchaseTypeSingleReport, "005930", model.PurchaseStatusPending))
	require.NoError(t, err)

	// 试用还剩 7 天，不通知
	sent, err := svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	clock.Advance(testutil.Days(6) + time.Hour)
	sent, err = svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, pubsub.EventEntitlementExpiring, event.Type)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, trial.ID, event.PurchaseID)
	assert.Equal(t, trial.TrialEndDate.UTC().Format(time.RFC3339), event.EndDate)

	// 同一条记录不重复通知
	clock.Advance(time.Hour)
	sent, err = svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// 订阅 30 天到期
	clock.Advance(testutil.Days(23))
	sent, err = svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "u2", publisher.events[1].UserID)
}

func TestRunNow_RetriesAfterPublishFailure(t *testing.T) {
	svc, repo, publisher, clock, cleanup := setupCronService(t)
	defer cleanup()
	ctx := context.Background()

	trial, err := repo.Add(ctx, testutil.NewPurchase("u1", model.PurchaseTypeTrial, "trial-access", model.PurchaseStatusCompleted))
	require.NoError(t, err)

	clock.Advance(testutil.Days(6) + time.Hour)
	publisher.failures = 1
	sent, err := svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	exists, err := svc.rdb.Exists(ctx, noticeKeyPrefix+trial.ID).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	clock.Advance(time.Hour)
	sent, err = svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, trial.ID, publisher.events[0].PurchaseID)
}

func TestRunNow_SkipsExpiredAndFailed(t *testing.T) {
	svc, repo, publisher, clock, cleanup := setupCronService(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Add(ctx, testutil.NewPurchase("u1", model.PurchaseTypeSnapshotPlan, "snapshot-plan", model.PurchaseStatusFailed))
	require.NoError(t, err)
	_, err = repo.Add(ctx, testutil.NewPurchase("u2", model.PurchaseTypeTrial, "trial-access", model.PurchaseStatusCompleted))
	require.NoError(t, err)

	clock.Advance(testutil.Days(8))
	sent, err := svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, publisher.events)
}

func TestStartStop(t *testing.T) {
	svc, _, _, _, cleanup := setupCronService(t)
	defer cleanup()

	svc.Start()
	svc.Stop()
}
