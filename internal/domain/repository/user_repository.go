package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	ListSpecialists(ctx context.Context) ([]*entity.User, error)
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string) error
}
