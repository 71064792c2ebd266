package report_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wheelitin-backend/internal/usecase/report"
)

func TestGuards(t *testing.T) {
	owner := newUser(valueobject.UserTypeUser)
	specialist := newUser(valueobject.UserTypeSpecialist)
	stranger := newUser(valueobject.UserTypeSpecialist)

	selected := specialist.ID
	r := &entity.Report{ID: uuid.New(), OwnerID: owner.ID, SelectedQuotation: &selected}

	assert.NoError(t, report.CanSubmit(owner))
	unverified := *owner
	unverified.IsVerified = false
	assert.ErrorIs(t, report.CanSubmit(&unverified), apperror.ErrEmailNotVerified)

	assert.NoError(t, report.CanSubmitQuotation(specialist))
	assert.True(t, apperror.IsForbidden(report.CanSubmitQuotation(owner)))

	assert.NoError(t, report.CanAcceptQuotation(owner.ID, r))
	assert.True(t, apperror.IsForbidden(report.CanAcceptQuotation(specialist.ID, r)))

	assert.NoError(t, report.CanComplete(owner.ID, r))
	assert.True(t, apperror.IsForbidden(report.CanComplete(specialist.ID, r)))

	assert.NoError(t, report.CanReview(owner.ID, r))
	assert.NoError(t, report.CanReview(specialist.ID, r))
	assert.True(t, apperror.IsForbidden(report.CanReview(stranger.ID, r)))

	assert.NoError(t, report.CanListUserReports(owner.ID, owner.ID))
	assert.True(t, apperror.IsForbidden(report.CanListUserReports(owner.ID, specialist.ID)))

	assert.NoError(t, report.CanListPending(specialist))
	assert.True(t, apperror.IsForbidden(report.CanListPending(owner)))

	assert.NoError(t, report.CanChat(owner.ID, r))
	assert.NoError(t, report.CanChat(specialist.ID, r))
	assert.True(t, apperror.IsForbidden(report.CanChat(stranger.ID, r)))
}

func TestLocker_SerializesSameKey(t *testing.T) {
	l := report.NewLocker()
	id := uuid.New()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(id)
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, 0, l.Size())
}

func TestLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := report.NewLocker()
	unlockA := l.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock(uuid.New())
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key blocked")
	}
	assert.Equal(t, 1, l.Size())
}

type countingCache struct {
	mu     sync.Mutex
	values map[string]interface{}
	loads  int
	keys   []string
}

func (c *countingCache) GetOrSet(_ context.Context, key string, _ time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	c.loads++
	v, err := fn()
	if err != nil {
		return nil, err
	}
	c.values[key] = v
	return v, nil
}

func (c *countingCache) InvalidateByPrefix(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = map[string]interface{}{}
}

func TestListPendingReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil)
	f.pendingReport(t)
	f.acceptedReport(t, futureDate())

	cache := &countingCache{values: map[string]interface{}{}}
	uc := report.NewListPendingReportsUseCase(f.reports, f.users, cache)

	_, err := uc.Execute(ctx, report.ListPendingInput{ActorID: f.owner.ID})
	assert.True(t, apperror.IsForbidden(err))

	list, err := uc.Execute(ctx, report.ListPendingInput{ActorID: f.specialist.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, valueobject.ReportStatusPending, list[0].Status)

	_, err = uc.Execute(ctx, report.ListPendingInput{ActorID: f.rival.ID, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)
	assert.Equal(t, []string{report.PendingCachePrefix + "50:0", report.PendingCachePrefix + "100:0"}, cache.keys)

	_, err = uc.Execute(ctx, report.ListPendingInput{ActorID: f.rival.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)

	uncached := report.NewListPendingReportsUseCase(f.reports, f.users, nil)
	list, err = uncached.Execute(ctx, report.ListPendingInput{ActorID: f.specialist.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListUserReportsAndChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil)
	accepted := f.acceptedReport(t, futureDate())

	uc := report.NewListUserReportsUseCase(f.reports)
	_, err := uc.Execute(ctx, report.ListUserReportsInput{ActorID: f.specialist.ID, UserID: f.owner.ID})
	assert.True(t, apperror.IsForbidden(err))

	list, err := uc.Execute(ctx, report.ListUserReportsInput{ActorID: f.owner.ID, UserID: f.owner.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := report.NewGetReportUseCase(f.reports).Execute(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, accepted.ID, got.ID)

	chat := report.NewChatAuthorizer(f.reports)
	assert.NoError(t, chat.AuthorizeChat(ctx, accepted.ID, f.owner.ID))
	assert.NoError(t, chat.AuthorizeChat(ctx, accepted.ID, f.specialist.ID))
	assert.True(t, apperror.IsForbidden(chat.AuthorizeChat(ctx, accepted.ID, f.rival.ID)))
	assert.True(t, apperror.IsNotFound(chat.AuthorizeChat(ctx, uuid.New(), f.owner.ID)))
}
