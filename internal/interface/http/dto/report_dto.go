package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

// Запросы проверяются в домене после правил доступа, поэтому здесь только форма JSON.
type CreateReportRequest struct {
	CarMaker      string   `json:"carMaker"`
	CarModel      string   `json:"carModel"`
	CarYear       int      `json:"carYear"`
	CarMakeOther  *string  `json:"carMakeOther"`
	IssueType     string   `json:"issueType"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
	Videos        []string `json:"videos"`
	Mileage       *int     `json:"mileage"`
	ContactEmail  *string  `json:"contactEmail"`
	LocationOther *string  `json:"locationOther"`
	Urgency       string   `json:"urgency"`
	Location      string   `json:"location"`
}

func (r CreateReportRequest) ToInput() entity.ReportInput {
	return entity.ReportInput{
		CarMaker:      r.CarMaker,
		CarModel:      r.CarModel,
		CarYear:       r.CarYear,
		CarMakeOther:  r.CarMakeOther,
		IssueType:     r.IssueType,
		Description:   r.Description,
		Images:        r.Images,
		Videos:        r.Videos,
		Mileage:       r.Mileage,
		ContactEmail:  r.ContactEmail,
		LocationOther: r.LocationOther,
		Urgency:       r.Urgency,
		Location:      r.Location,
	}
}

type SubmitQuotationRequest struct {
	Amount         float64 `json:"amount"`
	Duration       string  `json:"duration"`
	ReasonForFault string  `json:"reasonForFault"`
}

type AcceptQuotationRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type SubmitReviewRequest struct {
	TargetUserID string `json:"targetUserId"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}

type QuotationResponse struct {
	ID             uuid.UUID `json:"id"`
	SpecialistID   uuid.UUID `json:"specialistId"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Duration       string    `json:"duration"`
	ReasonForFault string    `json:"reasonForFault"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ReviewResponse struct {
	ID         uuid.UUID `json:"id"`
	ReviewerID uuid.UUID `json:"reviewerId"`
	TargetID   uuid.UUID `json:"targetUserId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

type AppointmentResponse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type ReportResponse struct {
	ID                uuid.UUID                `json:"id"`
	UserID            uuid.UUID                `json:"userId"`
	CarMaker          string                   `json:"carMaker"`
	CarModel          string                   `json:"carModel"`
	CarYear           int                      `json:"carYear"`
	CarMakeOther      *string                  `json:"carMakeOther,omitempty"`
	IssueType         string                   `json:"issueType"`
	Description       string                   `json:"description"`
	Images            []string                 `json:"images"`
	Videos            []string                 `json:"videos"`
	Mileage           *int                     `json:"mileage,omitempty"`
	ContactEmail      *string                  `json:"contactEmail,omitempty"`
	LocationOther     *string                  `json:"locationOther,omitempty"`
	Urgency           string                   `json:"urgency"`
	Location          string                   `json:"location"`
	Coordinates       *valueobject.Coordinates `json:"coordinates"`
	DistanceMiles     *float64                 `json:"distanceMiles,omitempty"`
	Status            string                   `json:"status"`
	Quotations        []QuotationResponse      `json:"quotations"`
	SelectedQuotation *uuid.UUID               `json:"selectedQuotation"`
	Appointment       *AppointmentResponse     `json:"appointment"`
	Reviews           []ReviewResponse         `json:"reviews"`
	MediaWarnings     []string                 `json:"mediaWarnings,omitempty"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

func ToReportResponse(r *entity.Report) ReportResponse {
	resp := ReportResponse{
		ID:                r.ID,
		UserID:            r.OwnerID,
		CarMaker:          r.CarMaker,
		CarModel:          r.CarModel,
		CarYear:           r.CarYear,
		CarMakeOther:      r.CarMakeOther,
		IssueType:         r.IssueType,
		Description:       r.Description,
		Images:            nonNilStrings(r.Images),
		Videos:            nonNilStrings(r.Videos),
		Mileage:           r.Mileage,
		ContactEmail:      r.ContactEmail,
		LocationOther:     r.LocationOther,
		Urgency:           string(r.Urgency),
		Location:          r.Location,
		Coordinates:       r.Coordinates,
		Status:            string(r.Status),
		SelectedQuotation: r.SelectedQuotation,
		Quotations:        make([]QuotationResponse, 0, len(r.Quotations)),
		Reviews:           make([]ReviewResponse, 0, len(r.Reviews)),
		MediaWarnings:     r.MediaWarnings,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}

	if r.Appointment != nil {
		resp.Appointment = &AppointmentResponse{Date: r.Appointment.Date, Time: r.Appointment.Time}
	}

	for _, q := range r.Quotations {
		resp.Quotations = append(resp.Quotations, QuotationResponse{
			ID:             q.ID,
			SpecialistID:   q.SpecialistID,
			Amount:         q.Price.Amount,
			Currency:       q.Price.Currency,
			Duration:       q.Duration,
			ReasonForFault: q.ReasonForFault,
			CreatedAt:      q.CreatedAt,
		})
	}

	for _, rv := range r.Reviews {
		resp.Reviews = append(resp.Reviews, ReviewResponse{
			ID:         rv.ID,
			ReviewerID: rv.ReviewerID,
			TargetID:   rv.TargetID,
			Rating:     rv.Rating,
			Comment:    rv.Comment,
			CreatedAt:  rv.CreatedAt,
		})
	}

	return resp
}

func ToReportResponses(reports []*entity.Report) []ReportResponse {
	result := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		result = append(result, ToReportResponse(r))
	}
	return result
}

// ToReportResponsesFrom дополняет ответы расстоянием от origin до места заявки.
func ToReportResponsesFrom(reports []*entity.Report, origin valueobject.Coordinates) []ReportResponse {
	result := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		resp := ToReportResponse(r)
		if miles, ok := r.DistanceMilesFrom(origin); ok {
			resp.DistanceMiles = &miles
		}
		result = append(result, resp)
	}
	return result
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
