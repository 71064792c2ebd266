package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/http/handlers/common"
	"github.com/ignatzorin/wheelitin-backend/internal/interface/http/dto"
	"github.com/ignatzorin/wheelitin-backend/internal/interface/http/response"
	"github.com/ignatzorin/wheelitin-backend/internal/usecase/report"
)

var errInvalidOrigin = errors.New("invalid origin coordinates")

type ReportSubmitter interface {
	Execute(ctx context.Context, input report.SubmitReportInput) (*report.Result, error)
}

type QuotationSubmitter interface {
	Execute(ctx context.Context, input report.SubmitQuotationInput) (*report.Result, error)
}

type QuotationAccepter interface {
	Execute(ctx context.Context, input report.AcceptQuotationInput) (*report.Result, error)
}

type ReportCompleter interface {
	Execute(ctx context.Context, input report.CompleteReportInput) (*report.Result, error)
}

type ReviewSubmitter interface {
	Execute(ctx context.Context, input report.SubmitReviewInput) (*report.Result, error)
}

type ReportGetter interface {
	Execute(ctx context.Context, reportID uuid.UUID) (*entity.Report, error)
}

type PendingLister interface {
	Execute(ctx context.Context, input report.ListPendingInput) ([]*entity.Report, error)
}

type UserReportsLister interface {
	Execute(ctx context.Context, input report.ListUserReportsInput) ([]*entity.Report, error)
}

// ReportUseCases - операции, которые обслуживает ReportHandler.
type ReportUseCases struct {
	Submit          ReportSubmitter
	SubmitQuotation QuotationSubmitter
	Accept          QuotationAccepter
	Complete        ReportCompleter
	Review          ReviewSubmitter
	Get             ReportGetter
	ListPending     PendingLister
	ListUserReports UserReportsLister
}

type ReportHandler struct {
	uc ReportUseCases
}

func NewReportHandler(uc ReportUseCases) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// CreateReport обрабатывает POST /api/reports.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateReportRequest
	if err := common.BindJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	res, err := h.uc.Submit.Execute(c.Request.Context(), report.SubmitReportInput{
		ActorID: userID,
		Report:  req.ToInput(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToReportResponse(res.Report), res.Warnings)
}

// SubmitQuotation обрабатывает POST /api/reports/:id/quotations.
func (h *ReportHandler) SubmitQuotation(c *gin.Context) {
	userID, reportID, ok := h.actorAndReport(c)
	if !ok {
		return
	}

	var req dto.SubmitQuotationRequest
	if err := common.BindJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	res, err := h.uc.SubmitQuotation.Execute(c.Request.Context(), report.SubmitQuotationInput{
		ActorID:        userID,
		ReportID:       reportID,
		Amount:         req.Amount,
		Duration:       req.Duration,
		ReasonForFault: req.ReasonForFault,
	})
	h.respond(c, res, err)
}

// AcceptQuotation обрабатывает POST /api/reports/:id/accept/:specialistId.
func (h *ReportHandler) AcceptQuotation(c *gin.Context) {
	userID, reportID, ok := h.actorAndReport(c)
	if !ok {
		return
	}

	specialistID, err := common.ParseUUIDParam(c, "specialistId")
	if err != nil {
		response.BadRequest(c, "некорректный ID специалиста")
		return
	}

	var req dto.AcceptQuotationRequest
	if err := common.BindJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	res, err := h.uc.Accept.Execute(c.Request.Context(), report.AcceptQuotationInput{
		ActorID:      userID,
		ReportID:     reportID,
		SpecialistID: specialistID,
		Date:         req.Date,
		Time:         req.Time,
	})
	h.respond(c, res, err)
}

// CompleteReport обрабатывает POST /api/reports/:id/complete.
func (h *ReportHandler) CompleteReport(c *gin.Context) {
	userID, reportID, ok := h.actorAndReport(c)
	if !ok {
		return
	}

	res, err := h.uc.Complete.Execute(c.Request.Context(), report.CompleteReportInput{
		ActorID:  userID,
		ReportID: reportID,
	})
	h.respond(c, res, err)
}

// SubmitReview обрабатывает POST /api/reports/:id/reviews.
func (h *ReportHandler) SubmitReview(c *gin.Context) {
	userID, reportID, ok := h.actorAndReport(c)
	if !ok {
		return
	}

	var req dto.SubmitReviewRequest
	if err := common.BindJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	// некорректный ID получателя отклонит домен после проверки статуса и прав
	targetID, _ := uuid.Parse(req.TargetUserID)

	res, err := h.uc.Review.Execute(c.Request.Context(), report.SubmitReviewInput{
		ActorID:  userID,
		ReportID: reportID,
		TargetID: targetID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	h.respond(c, res, err)
}

// GetReport обрабатывает GET /api/reports/:id.
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	r, err := h.uc.Get.Execute(c.Request.Context(), reportID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReportResponse(r))
}

// ListPending обрабатывает GET /api/reports/pending[?lat=..&lng=..].
// С координатами в ответ добавляется distanceMiles до каждой заявки.
func (h *ReportHandler) ListPending(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	origin, hasOrigin, err := parseOrigin(c)
	if err != nil {
		response.BadRequest(c, "некорректные координаты: lat и lng задаются вместе, в градусах")
		return
	}

	limit, offset := common.GetPagination(c)
	reports, err := h.uc.ListPending.Execute(c.Request.Context(), report.ListPendingInput{
		ActorID: userID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if hasOrigin {
		response.Success(c, dto.ToReportResponsesFrom(reports, origin))
		return
	}
	response.Success(c, dto.ToReportResponses(reports))
}

// ListUserReports обрабатывает GET /api/reports/user/:userId.
func (h *ReportHandler) ListUserReports(c *gin.Context) {
	actorID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	userID, err := common.ParseUUIDParam(c, "userId")
	if err != nil {
		response.BadRequest(c, "некорректный ID пользователя")
		return
	}

	limit, offset := common.GetPagination(c)
	reports, err := h.uc.ListUserReports.Execute(c.Request.Context(), report.ListUserReportsInput{
		ActorID: actorID,
		UserID:  userID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReportResponses(reports))
}

func (h *ReportHandler) actorAndReport(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, uuid.Nil, false
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID заявки")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, reportID, true
}

func (h *ReportHandler) respond(c *gin.Context, res *report.Result, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithWarnings(c, dto.ToReportResponse(res.Report), res.Warnings)
}

func parseOrigin(c *gin.Context) (valueobject.Coordinates, bool, error) {
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw == "" && lngRaw == "" {
		return valueobject.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return valueobject.Coordinates{}, false, errInvalidOrigin
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || lng < -180 || lng > 180 {
		return valueobject.Coordinates{}, false, errInvalidOrigin
	}
	return valueobject.Coordinates{Latitude: lat, Longitude: lng}, true, nil
}
