package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wheelitin-backend/internal/repository/common"
)

type userRow struct {
	ID                uuid.UUID `db:"id"`
	Email             string    `db:"email"`
	FirstName         string    `db:"first_name"`
	LastName          string    `db:"last_name"`
	UserType          string    `db:"user_type"`
	IsVerified        bool      `db:"is_verified"`
	VerificationToken *string   `db:"verification_token"`
	CreatedAt         time.Time `db:"created_at"`
}

type userReviewRow struct {
	ReviewID   uuid.UUID `db:"review_id"`
	ReportID   uuid.UUID `db:"report_id"`
	ReviewerID uuid.UUID `db:"reviewer_id"`
	UserID     uuid.UUID `db:"user_id"`
	Rating     int       `db:"rating"`
	Comment    string    `db:"comment"`
	CreatedAt  time.Time `db:"created_at"`
}

// UserRepository читает пользователей. Регистрация и логин живут в отдельном сервисе.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

// FindByID возвращает пользователя вместе с отзывами на его профиле.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	row, err := common.GetOne[userRow](ctx, r.db, apperror.ErrUserNotFound, `
		SELECT id, email, first_name, last_name, user_type, is_verified, verification_token, created_at
		FROM users WHERE id = $1
	`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить пользователя")
	}

	var reviews []userReviewRow
	err = r.db.SelectContext(ctx, &reviews, `
		SELECT review_id, report_id, reviewer_id, user_id, rating, comment, created_at
		FROM user_reviews WHERE user_id = $1 ORDER BY seq
	`, id)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить отзывы пользователя")
	}

	user := toUser(*row)
	for _, rv := range reviews {
		user.Reviews = append(user.Reviews, entity.Review{
			ID:         rv.ReviewID,
			ReportID:   rv.ReportID,
			ReviewerID: rv.ReviewerID,
			TargetID:   rv.UserID,
			Rating:     rv.Rating,
			Comment:    rv.Comment,
			CreatedAt:  rv.CreatedAt,
		})
	}
	return user, nil
}

// ListSpecialists возвращает всех специалистов для рассылки о новых заявках.
func (r *UserRepository) ListSpecialists(ctx context.Context) ([]*entity.User, error) {
	var rows []userRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, email, first_name, last_name, user_type, is_verified, verification_token, created_at
		FROM users WHERE user_type = $1 ORDER BY created_at
	`, string(valueobject.UserTypeSpecialist))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить специалистов")
	}

	users := make([]*entity.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, toUser(row))
	}
	return users, nil
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET verification_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить токен подтверждения")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}

func toUser(row userRow) *entity.User {
	return &entity.User{
		ID:                row.ID,
		Email:             row.Email,
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		UserType:          valueobject.UserType(row.UserType),
		IsVerified:        row.IsVerified,
		VerificationToken: row.VerificationToken,
		Reviews:           []entity.Review{},
		CreatedAt:         row.CreatedAt,
	}
}
