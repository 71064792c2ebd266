package valueobject

import "github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusAccepted   ReportStatus = "accepted"
	ReportStatusInProgress ReportStatus = "in-progress"
	ReportStatusCompleted  ReportStatus = "completed"
)

// reportStatusOrder задаёт единственный допустимый порядок статусов заявки.
var reportStatusOrder = []ReportStatus{
	ReportStatusPending,
	ReportStatusAccepted,
	ReportStatusInProgress,
	ReportStatusCompleted,
}

// Rank возвращает порядковый номер статуса или -1 для неизвестного.
func (s ReportStatus) Rank() int {
	for i, st := range reportStatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusCompleted
}

// CanTransitionTo разрешает только шаг вперёд на одну позицию.
func (s ReportStatus) CanTransitionTo(newStatus ReportStatus) bool {
	from, to := s.Rank(), newStatus.Rank()
	if from < 0 || to < 0 {
		return false
	}
	return to == from+1
}

type Urgency string

const (
	UrgencyUrgent          Urgency = "urgent"
	UrgencyVeryUrgent      Urgency = "very urgent"
	UrgencyNotReallyUrgent Urgency = "not really urgent"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyUrgent, UrgencyVeryUrgent, UrgencyNotReallyUrgent:
		return true
	}
	return false
}

func NewUrgency(urgency string) (Urgency, error) {
	u := Urgency(urgency)
	if !u.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "срочность должна быть 'urgent', 'very urgent' или 'not really urgent'")
	}
	return u, nil
}

type UserType string

const (
	UserTypeUser       UserType = "user"
	UserTypeSpecialist UserType = "specialist"
	UserTypeAdmin      UserType = "admin"
)

// GeocodeRegion возвращает регион для геокодера: обычные пользователи из UK.
func (t UserType) GeocodeRegion() string {
	if t == UserTypeUser {
		return "UK"
	}
	return "US"
}
