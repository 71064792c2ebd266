package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

const (
	PendingCachePrefix = "reports:pending:"
	pendingCacheTTL    = 30 * time.Second
	defaultListLimit   = 50
	maxListLimit       = 100
)

// ListCache - кэш с TTL для списков заявок.
type ListCache interface {
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error)
	InvalidateByPrefix(prefix string)
}

type GetReportUseCase struct {
	reportRepo repository.ReportRepository
}

func NewGetReportUseCase(reportRepo repository.ReportRepository) *GetReportUseCase {
	return &GetReportUseCase{reportRepo: reportRepo}
}

func (uc *GetReportUseCase) Execute(ctx context.Context, reportID uuid.UUID) (*entity.Report, error) {
	return uc.reportRepo.FindByID(ctx, reportID)
}

type ListPendingInput struct {
	ActorID uuid.UUID
	Limit   int
	Offset  int
}

type ListPendingReportsUseCase struct {
	reportRepo repository.ReportRepository
	userRepo   repository.UserRepository
	cache      ListCache
}

// NewListPendingReportsUseCase; cache может быть nil.
func NewListPendingReportsUseCase(
	reportRepo repository.ReportRepository,
	userRepo repository.UserRepository,
	cache ListCache,
) *ListPendingReportsUseCase {
	return &ListPendingReportsUseCase{reportRepo: reportRepo, userRepo: userRepo, cache: cache}
}

func (uc *ListPendingReportsUseCase) Execute(ctx context.Context, input ListPendingInput) ([]*entity.Report, error) {
	actor, err := uc.userRepo.FindByID(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if err := CanListPending(actor); err != nil {
		return nil, err
	}

	filter := repository.ReportFilter{
		Status: string(valueobject.ReportStatusPending),
		Limit:  normalizeLimit(input.Limit),
		Offset: max(input.Offset, 0),
	}
	load := func() (interface{}, error) {
		return uc.reportRepo.FindByFilter(ctx, filter)
	}

	if uc.cache == nil {
		reports, err := load()
		if err != nil {
			return nil, err
		}
		return reports.([]*entity.Report), nil
	}

	key := fmt.Sprintf("%s%d:%d", PendingCachePrefix, filter.Limit, filter.Offset)
	value, err := uc.cache.GetOrSet(ctx, key, pendingCacheTTL, load)
	if err != nil {
		return nil, err
	}
	return value.([]*entity.Report), nil
}

type ListUserReportsInput struct {
	ActorID uuid.UUID
	UserID  uuid.UUID
	Limit   int
	Offset  int
}

type ListUserReportsUseCase struct {
	reportRepo repository.ReportRepository
}

func NewListUserReportsUseCase(reportRepo repository.ReportRepository) *ListUserReportsUseCase {
	return &ListUserReportsUseCase{reportRepo: reportRepo}
}

func (uc *ListUserReportsUseCase) Execute(ctx context.Context, input ListUserReportsInput) ([]*entity.Report, error) {
	if err := CanListUserReports(input.ActorID, input.UserID); err != nil {
		return nil, err
	}

	owner := input.UserID
	return uc.reportRepo.FindByFilter(ctx, repository.ReportFilter{
		OwnerID: &owner,
		Limit:   normalizeLimit(input.Limit),
		Offset:  max(input.Offset, 0),
	})
}

// ChatAuthorizer проверяет доступ к комнате заявки для чата.
type ChatAuthorizer struct {
	reportRepo repository.ReportRepository
}

func NewChatAuthorizer(reportRepo repository.ReportRepository) *ChatAuthorizer {
	return &ChatAuthorizer{reportRepo: reportRepo}
}

func (a *ChatAuthorizer) AuthorizeChat(ctx context.Context, reportID, userID uuid.UUID) error {
	report, err := a.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return err
	}
	return CanChat(userID, report)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
