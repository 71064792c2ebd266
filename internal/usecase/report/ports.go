package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

// Geocoder переводит адрес заявки в координаты.
type Geocoder interface {
	Resolve(ctx context.Context, input, region string) (valueobject.Coordinates, error)
}

// MediaQueue принимает сырые ссылки на медиа для фоновой загрузки в хранилище.
type MediaQueue interface {
	Enqueue(reportID uuid.UUID, images, videos []string) bool
}

// TransitionScheduler взводит перевод заявки в работу на время визита.
type TransitionScheduler interface {
	Schedule(ctx context.Context, reportID uuid.UUID, at time.Time) error
	Cancel(ctx context.Context, reportID uuid.UUID) error
}

// Result - заявка после операции и некритичные предупреждения.
type Result struct {
	Report   *entity.Report
	Warnings []string
}

type clock func() time.Time
