package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	NameReportSubmitted       = "report.submitted"
	NameQuotationSubmitted    = "report.quotation.submitted"
	NameQuotationAccepted     = "report.quotation.accepted"
	NameReportStatusChanged   = "report.status.changed"
	NameReviewSubmitted       = "report.review.submitted"
	NameVerificationRequested = "user.verification.requested"
)

// ReportSubmitted публикуется после сохранения новой заявки.
type ReportSubmitted struct {
	BaseEvent
	ReportID uuid.UUID `json:"reportId"`
	OwnerID  uuid.UUID `json:"ownerId"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
}

func (e ReportSubmitted) EventName() string { return NameReportSubmitted }

// QuotationSubmitted публикуется, когда специалист прислал предложение.
type QuotationSubmitted struct {
	BaseEvent
	ReportID       uuid.UUID `json:"reportId"`
	ReportTitle    string    `json:"reportTitle"`
	OwnerID        uuid.UUID `json:"ownerId"`
	SpecialistID   uuid.UUID `json:"specialistId"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Duration       string    `json:"duration"`
	ReasonForFault string    `json:"reasonForFault"`
}

func (e QuotationSubmitted) EventName() string { return NameQuotationSubmitted }

// QuotationAccepted публикуется после выбора специалиста.
// ScheduleAt пуст, если визит назначен не в будущем.
type QuotationAccepted struct {
	BaseEvent
	ReportID        uuid.UUID  `json:"reportId"`
	ReportTitle     string     `json:"reportTitle"`
	OwnerID         uuid.UUID  `json:"ownerId"`
	SpecialistID    uuid.UUID  `json:"specialistId"`
	AppointmentDate string     `json:"appointmentDate"`
	AppointmentTime string     `json:"appointmentTime"`
	ScheduleAt      *time.Time `json:"scheduleAt,omitempty"`
}

func (e QuotationAccepted) EventName() string { return NameQuotationAccepted }

type ReportStatusChanged struct {
	BaseEvent
	ReportID uuid.UUID `json:"reportId"`
	OwnerID  uuid.UUID `json:"ownerId"`
	Status   string    `json:"status"`
}

func (e ReportStatusChanged) EventName() string { return NameReportStatusChanged }

type ReviewSubmitted struct {
	BaseEvent
	ReportID   uuid.UUID `json:"reportId"`
	ReviewerID uuid.UUID `json:"reviewerId"`
	TargetID   uuid.UUID `json:"targetId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
}

func (e ReviewSubmitted) EventName() string { return NameReviewSubmitted }

// VerificationRequested - пользователь без подтверждённой почты попытался создать заявку.
type VerificationRequested struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Token  string    `json:"token"`
}

func (e VerificationRequested) EventName() string { return NameVerificationRequested }
