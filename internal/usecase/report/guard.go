package report

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

// Правила доступа. Каждое правило - чистая функция: nil или ошибка FORBIDDEN.

func CanSubmit(actor *entity.User) error {
	if !actor.IsVerified {
		return apperror.ErrEmailNotVerified
	}
	return nil
}

func CanSubmitQuotation(actor *entity.User) error {
	if !actor.IsSpecialist() {
		return apperror.New(apperror.ErrCodeForbidden, "отправлять предложения могут только специалисты")
	}
	return nil
}

func CanAcceptQuotation(actorID uuid.UUID, r *entity.Report) error {
	if !r.IsOwnedBy(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "принять предложение может только владелец заявки")
	}
	return nil
}

func CanComplete(actorID uuid.UUID, r *entity.Report) error {
	if !r.IsOwnedBy(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "завершить заявку может только её владелец")
	}
	return nil
}

func CanReview(actorID uuid.UUID, r *entity.Report) error {
	if !r.IsParticipant(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "отзыв может оставить только владелец или выбранный специалист")
	}
	return nil
}

func CanListUserReports(actorID, userID uuid.UUID) error {
	if actorID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "можно просматривать только свои заявки")
	}
	return nil
}

func CanListPending(actor *entity.User) error {
	if !actor.IsSpecialist() {
		return apperror.New(apperror.ErrCodeForbidden, "открытые заявки доступны только специалистам")
	}
	return nil
}

// CanChat - писать в комнату заявки могут владелец и выбранный специалист.
func CanChat(actorID uuid.UUID, r *entity.Report) error {
	if !r.IsParticipant(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "вы не участник этой заявки")
	}
	return nil
}
