package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wheelitin-backend/internal/repository/common"
)

const reportColumns = `
	id, owner_id, car_maker, car_model, car_year, car_make_other, issue_type, description,
	images, videos, mileage, contact_email, location_other, urgency, location, latitude, longitude,
	status, selected_specialist_id, appointment_date, appointment_time, appointment_at,
	media_warnings, created_at, updated_at`

type reportRow struct {
	ID                   uuid.UUID      `db:"id"`
	OwnerID              uuid.UUID      `db:"owner_id"`
	CarMaker             string         `db:"car_maker"`
	CarModel             string         `db:"car_model"`
	CarYear              int            `db:"car_year"`
	CarMakeOther         *string        `db:"car_make_other"`
	IssueType            string         `db:"issue_type"`
	Description          string         `db:"description"`
	Images               pq.StringArray `db:"images"`
	Videos               pq.StringArray `db:"videos"`
	Mileage              *int           `db:"mileage"`
	ContactEmail         *string        `db:"contact_email"`
	LocationOther        *string        `db:"location_other"`
	Urgency              string         `db:"urgency"`
	Location             string         `db:"location"`
	Latitude             *float64       `db:"latitude"`
	Longitude            *float64       `db:"longitude"`
	Status               string         `db:"status"`
	SelectedSpecialistID *uuid.UUID     `db:"selected_specialist_id"`
	AppointmentDate      *string        `db:"appointment_date"`
	AppointmentTime      *string        `db:"appointment_time"`
	AppointmentAt        *time.Time     `db:"appointment_at"`
	MediaWarnings        pq.StringArray `db:"media_warnings"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

type quotationRow struct {
	ID             uuid.UUID `db:"id"`
	ReportID       uuid.UUID `db:"report_id"`
	SpecialistID   uuid.UUID `db:"specialist_id"`
	Amount         float64   `db:"amount"`
	Currency       string    `db:"currency"`
	Duration       string    `db:"duration"`
	ReasonForFault string    `db:"reason_for_fault"`
	CreatedAt      time.Time `db:"created_at"`
}

type reviewRow struct {
	ID         uuid.UUID `db:"id"`
	ReportID   uuid.UUID `db:"report_id"`
	ReviewerID uuid.UUID `db:"reviewer_id"`
	TargetID   uuid.UUID `db:"target_id"`
	Rating     int       `db:"rating"`
	Comment    string    `db:"comment"`
	CreatedAt  time.Time `db:"created_at"`
}

// ReportRepository - Postgres-хранилище заявок на sqlx.
type ReportRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewReportRepository создаёт репозиторий; loc - часовой пояс, в котором записаны визиты.
func NewReportRepository(db *sqlx.DB, loc *time.Location) *ReportRepository {
	if loc == nil {
		loc = time.Local
	}
	return &ReportRepository{db: db, loc: loc}
}

var _ repository.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (id, owner_id, car_maker, car_model, car_year, car_make_other, issue_type,
			description, images, videos, mileage, contact_email, location_other, urgency, location,
			latitude, longitude, status, media_warnings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	var lat, lng *float64
	if report.Coordinates != nil {
		lat, lng = &report.Coordinates.Latitude, &report.Coordinates.Longitude
	}
	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.OwnerID,
		report.CarMaker,
		report.CarModel,
		report.CarYear,
		report.CarMakeOther,
		report.IssueType,
		report.Description,
		pq.Array(report.Images),
		pq.Array(report.Videos),
		report.Mileage,
		report.ContactEmail,
		report.LocationOther,
		string(report.Urgency),
		report.Location,
		lat,
		lng,
		string(report.Status),
		pq.Array(report.MediaWarnings),
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row, err := common.GetOne[reportRow](ctx, r.db, apperror.ErrReportNotFound,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}

	reports, err := r.hydrate(ctx, []reportRow{*row})
	if err != nil {
		return nil, err
	}
	return reports[0], nil
}

func (r *ReportRepository) FindByFilter(ctx context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список заявок")
	}
	return r.hydrate(ctx, rows)
}

func (r *ReportRepository) FindScheduled(ctx context.Context) ([]*entity.Report, error) {
	var rows []reportRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+reportColumns+` FROM reports
		WHERE status = $1 AND appointment_at IS NOT NULL
		ORDER BY appointment_at
	`, string(valueobject.ReportStatusAccepted))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить запланированные заявки")
	}
	return r.hydrate(ctx, rows)
}

// AppendQuotation добавляет предложение, пока заявка в статусе pending.
func (r *ReportRepository) AppendQuotation(ctx context.Context, q *entity.Quotation) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM reports WHERE id = $1 FOR UPDATE`, q.ReportID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrReportNotFound
		}
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось заблокировать заявку")
		}
		if valueobject.ReportStatus(status) != valueobject.ReportStatusPending {
			return apperror.Conflict("предложения принимаются только по заявкам в статусе pending")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_quotations (id, report_id, specialist_id, amount, currency, duration, reason_for_fault, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, q.ID, q.ReportID, q.SpecialistID, q.Price.Amount, q.Price.Currency, q.Duration, q.ReasonForFault, q.CreatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить предложение")
		}

		_, err = tx.ExecContext(ctx, `UPDATE reports SET updated_at = $2 WHERE id = $1`, q.ReportID, q.CreatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить заявку")
		}
		return nil
	})
}

// AcceptQuotation атомарно выбирает специалиста, только если заявка ещё pending.
func (r *ReportRepository) AcceptQuotation(ctx context.Context, reportID, specialistID uuid.UUID, appt entity.Appointment, appointmentAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $3, selected_specialist_id = $2, appointment_date = $4, appointment_time = $5,
		    appointment_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
		  AND EXISTS (SELECT 1 FROM report_quotations WHERE report_id = $1 AND specialist_id = $2)
	`, reportID, specialistID, string(valueobject.ReportStatusAccepted), appt.Date, appt.Time, appointmentAt,
		string(valueobject.ReportStatusPending))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось принять предложение")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if affected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, reportID)
	if err != nil {
		return err
	}
	if current.Status != valueobject.ReportStatusPending {
		return apperror.Conflict("заявка уже не в статусе pending")
	}
	return apperror.ErrQuotationNotFound
}

// UpdateStatus - compare-and-swap статуса заявки.
func (r *ReportRepository) UpdateStatus(ctx context.Context, reportID uuid.UUID, from, to valueobject.ReportStatus) error {
	if !from.CanTransitionTo(to) {
		return apperror.Newf(apperror.ErrCodeConflict, "переход %s -> %s недопустим", from, to)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`, reportID, string(from), string(to))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус заявки")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if affected > 0 {
		return nil
	}

	found, err := common.Exists(ctx, r.db, "reports", reportID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить заявку")
	}
	if !found {
		return apperror.ErrReportNotFound
	}
	return apperror.Newf(apperror.ErrCodeConflict, "заявка уже не в статусе %s", from)
}

// UpdateMedia переписывает только медиаполя и не трогает статус.
func (r *ReportRepository) UpdateMedia(ctx context.Context, reportID uuid.UUID, images, videos, warnings []string) error {
	if warnings == nil {
		warnings = []string{}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET images = $2, videos = $3, media_warnings = $4, updated_at = NOW() WHERE id = $1
	`, reportID, pq.Array(images), pq.Array(videos), pq.Array(warnings))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить медиа заявки")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if affected == 0 {
		return apperror.ErrReportNotFound
	}
	return nil
}

// AddReview пишет отзыв в заявку и зеркалит его в профиль получателя одной транзакцией.
func (r *ReportRepository) AddReview(ctx context.Context, review *entity.Review) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM reports WHERE id = $1 FOR SHARE`, review.ReportID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrReportNotFound
		}
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать заявку")
		}
		if valueobject.ReportStatus(status) != valueobject.ReportStatusCompleted {
			return apperror.Conflict("отзыв можно оставить только после завершения заявки")
		}

		targetExists, err := common.Exists(ctx, tx, "users", review.TargetID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить пользователя")
		}
		if !targetExists {
			return apperror.ErrUserNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_reviews (id, report_id, reviewer_id, target_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, review.ID, review.ReportID, review.ReviewerID, review.TargetID, review.Rating, review.Comment, review.CreatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить отзыв")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_reviews (review_id, user_id, report_id, reviewer_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, review.ID, review.TargetID, review.ReportID, review.ReviewerID, review.Rating, review.Comment, review.CreatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить отзыв в профиле")
		}
		return nil
	})
}

// hydrate догружает предложения и отзывы пачкой для набора заявок.
func (r *ReportRepository) hydrate(ctx context.Context, rows []reportRow) ([]*entity.Report, error) {
	reports := make([]*entity.Report, 0, len(rows))
	if len(rows) == 0 {
		return reports, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	byID := make(map[uuid.UUID]*entity.Report, len(rows))
	for _, row := range rows {
		rep := r.toEntity(row)
		reports = append(reports, rep)
		byID[rep.ID] = rep
		ids = append(ids, rep.ID)
	}

	var quotations []quotationRow
	err := r.db.SelectContext(ctx, &quotations, `
		SELECT id, report_id, specialist_id, amount, currency, duration, reason_for_fault, created_at
		FROM report_quotations WHERE report_id = ANY($1) ORDER BY seq
	`, pq.Array(ids))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	for _, q := range quotations {
		rep := byID[q.ReportID]
		rep.Quotations = append(rep.Quotations, entity.Quotation{
			ID:             q.ID,
			ReportID:       q.ReportID,
			SpecialistID:   q.SpecialistID,
			Price:          valueobject.Money{Amount: q.Amount, Currency: q.Currency},
			Duration:       q.Duration,
			ReasonForFault: q.ReasonForFault,
			CreatedAt:      q.CreatedAt,
		})
	}

	var reviews []reviewRow
	err = r.db.SelectContext(ctx, &reviews, `
		SELECT id, report_id, reviewer_id, target_id, rating, comment, created_at
		FROM report_reviews WHERE report_id = ANY($1) ORDER BY seq
	`, pq.Array(ids))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить отзывы")
	}
	for _, rv := range reviews {
		rep := byID[rv.ReportID]
		rep.Reviews = append(rep.Reviews, entity.Review(rv))
	}

	return reports, nil
}

func (r *ReportRepository) toEntity(row reportRow) *entity.Report {
	rep := &entity.Report{
		ID:                row.ID,
		OwnerID:           row.OwnerID,
		CarMaker:          row.CarMaker,
		CarModel:          row.CarModel,
		CarYear:           row.CarYear,
		CarMakeOther:      row.CarMakeOther,
		IssueType:         row.IssueType,
		Description:       row.Description,
		Images:            nonNil(row.Images),
		Videos:            nonNil(row.Videos),
		Mileage:           row.Mileage,
		ContactEmail:      row.ContactEmail,
		LocationOther:     row.LocationOther,
		Urgency:           valueobject.Urgency(row.Urgency),
		Location:          row.Location,
		Status:            valueobject.ReportStatus(row.Status),
		Quotations:        []entity.Quotation{},
		SelectedQuotation: row.SelectedSpecialistID,
		AppointmentAt:     row.AppointmentAt,
		Reviews:           []entity.Review{},
		MediaWarnings:     nonNil(row.MediaWarnings),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.Latitude != nil && row.Longitude != nil {
		rep.Coordinates = &valueobject.Coordinates{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	if row.AppointmentDate != nil && row.AppointmentTime != nil {
		rep.Appointment = &entity.Appointment{
			Date:     *row.AppointmentDate,
			Time:     *row.AppointmentTime,
			Location: r.loc,
		}
	}
	return rep
}

func nonNil(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}
