package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/events"
	"github.com/ignatzorin/wheelitin-backend/internal/goroutine"
	"github.com/ignatzorin/wheelitin-backend/internal/infrastructure/mail"
)

// Имена событий, которые получают клиенты по веб-сокету.
const (
	WireNewReport          = "newReport"
	WireNewQuotation       = "newQuotation"
	WireQuotationAccepted  = "quotationAccepted"
	WireReportStatusUpdate = "reportStatusUpdate"
	WireNewReview          = "newReview"
)

// Emitter - сторона рассылки в реальном времени (ws.Hub).
type Emitter interface {
	EmitToUser(userID uuid.UUID, event string, data interface{})
	BroadcastAll(event string, data interface{})
}

// Notifier отправляет письма. Ошибки отражаются в результате, не в error.
type Notifier interface {
	Notify(ctx context.Context, to string, kind mail.Kind, data mail.Data) mail.Result
}

type EffectsConfig struct {
	Emitter   Emitter
	Notifier  Notifier
	Users     repository.UserRepository
	Scheduler TransitionScheduler
	Cache     ListCache
	BaseURL   string
	Log       logrus.FieldLogger
}

// Effects - подписчики шины: сокеты, письма, таймеры и кэш.
// Любой из них может быть nil, тогда соответствующий эффект пропускается.
type Effects struct {
	emitter   Emitter
	notifier  Notifier
	users     repository.UserRepository
	scheduler TransitionScheduler
	cache     ListCache
	baseURL   string
	log       logrus.FieldLogger

	// spawn запускает отправку писем вне диспетчера шины.
	spawn func(fn func())
}

func NewEffects(cfg EffectsConfig) *Effects {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	recovery := goroutine.NewRecoveryHandler(log)
	return &Effects{
		emitter:   cfg.Emitter,
		notifier:  cfg.Notifier,
		users:     cfg.Users,
		scheduler: cfg.Scheduler,
		cache:     cfg.Cache,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		log:       log,
		spawn:     recovery.SafeGo,
	}
}

// Register подписывает эффекты на шину.
func (e *Effects) Register(bus events.Bus) {
	bus.Subscribe(events.NameReportSubmitted, events.HandlerFunc(e.onReportSubmitted))
	bus.Subscribe(events.NameQuotationSubmitted, events.HandlerFunc(e.onQuotationSubmitted))
	bus.Subscribe(events.NameQuotationAccepted, events.HandlerFunc(e.onQuotationAccepted))
	bus.Subscribe(events.NameReportStatusChanged, events.HandlerFunc(e.onStatusChanged))
	bus.Subscribe(events.NameReviewSubmitted, events.HandlerFunc(e.onReviewSubmitted))
	bus.Subscribe(events.NameVerificationRequested, events.HandlerFunc(e.onVerificationRequested))
}

func (e *Effects) onReportSubmitted(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.ReportSubmitted)
	if !ok {
		return nil
	}
	e.invalidatePending()

	if e.emitter != nil {
		e.emitter.BroadcastAll(WireNewReport, map[string]interface{}{
			"reportId": ev.ReportID,
			"title":    ev.Title,
		})
	}

	if e.notifier == nil || e.users == nil {
		return nil
	}
	e.spawn(func() {
		ctx := context.WithoutCancel(ctx)
		specialists, err := e.users.ListSpecialists(ctx)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"report_id": ev.ReportID,
				"error":     err,
			}).Warn("failed to load specialists for new report notification")
			return
		}
		for _, s := range specialists {
			e.send(ctx, s.Email, mail.KindNewReport, mail.Data{
				Name:        recipientName(s),
				ReportTitle: ev.Title,
				Location:    ev.Location,
				Link:        e.reportLink(ev.ReportID),
			})
		}
	})
	return nil
}

func (e *Effects) onQuotationSubmitted(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.QuotationSubmitted)
	if !ok {
		return nil
	}
	e.invalidatePending()

	if e.emitter != nil {
		e.emitter.EmitToUser(ev.OwnerID, WireNewQuotation, map[string]interface{}{
			"reportId":       ev.ReportID,
			"specialistId":   ev.SpecialistID,
			"amount":         ev.Amount,
			"duration":       ev.Duration,
			"reasonForFault": ev.ReasonForFault,
		})
	}

	e.notifyUser(ctx, ev.OwnerID, mail.KindNewQuotation, mail.Data{
		ReportTitle:    ev.ReportTitle,
		Amount:         valueobject.Money{Amount: ev.Amount, Currency: ev.Currency}.String(),
		Duration:       ev.Duration,
		ReasonForFault: ev.ReasonForFault,
		Link:           e.reportLink(ev.ReportID),
	})
	return nil
}

func (e *Effects) onQuotationAccepted(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.QuotationAccepted)
	if !ok {
		return nil
	}
	e.invalidatePending()

	if e.emitter != nil {
		e.emitter.EmitToUser(ev.SpecialistID, WireQuotationAccepted, map[string]interface{}{
			"reportId": ev.ReportID,
			"userId":   ev.OwnerID,
			"appointment": map[string]string{
				"date": ev.AppointmentDate,
				"time": ev.AppointmentTime,
			},
		})
	}

	e.notifyUser(ctx, ev.SpecialistID, mail.KindQuotationAccepted, mail.Data{
		ReportTitle:     ev.ReportTitle,
		AppointmentDate: ev.AppointmentDate,
		AppointmentTime: ev.AppointmentTime,
		Link:            e.reportLink(ev.ReportID),
	})

	if ev.ScheduleAt == nil || e.scheduler == nil {
		return nil
	}
	if err := e.scheduler.Schedule(ctx, ev.ReportID, *ev.ScheduleAt); err != nil {
		return fmt.Errorf("arm start of work for report %s: %w", ev.ReportID, err)
	}
	return nil
}

func (e *Effects) onStatusChanged(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.ReportStatusChanged)
	if !ok {
		return nil
	}
	e.invalidatePending()

	if e.emitter != nil {
		e.emitter.BroadcastAll(WireReportStatusUpdate, map[string]interface{}{
			"reportId": ev.ReportID,
			"status":   ev.Status,
		})
	}

	// после завершения таймер больше не нужен
	if e.scheduler != nil && valueobject.ReportStatus(ev.Status).IsTerminal() {
		if err := e.scheduler.Cancel(ctx, ev.ReportID); err != nil {
			return fmt.Errorf("cancel start of work for report %s: %w", ev.ReportID, err)
		}
	}
	return nil
}

func (e *Effects) onReviewSubmitted(_ context.Context, event events.Event) error {
	ev, ok := event.(events.ReviewSubmitted)
	if !ok {
		return nil
	}
	if e.emitter != nil {
		e.emitter.EmitToUser(ev.TargetID, WireNewReview, map[string]interface{}{
			"reportId":   ev.ReportID,
			"rating":     ev.Rating,
			"comment":    ev.Comment,
			"reviewerId": ev.ReviewerID,
		})
	}
	return nil
}

func (e *Effects) onVerificationRequested(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.VerificationRequested)
	if !ok || e.notifier == nil {
		return nil
	}
	e.spawn(func() {
		e.send(context.WithoutCancel(ctx), ev.Email, mail.KindVerification, mail.Data{
			Link: e.baseURL + "/verify-email?token=" + ev.Token,
		})
	})
	return nil
}

// notifyUser загружает адресата и отправляет письмо в фоне.
func (e *Effects) notifyUser(ctx context.Context, userID uuid.UUID, kind mail.Kind, data mail.Data) {
	if e.notifier == nil || e.users == nil {
		return
	}
	e.spawn(func() {
		ctx := context.WithoutCancel(ctx)
		user, err := e.users.FindByID(ctx, userID)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"user_id": userID,
				"kind":    kind,
				"error":   err,
			}).Warn("failed to load notification recipient")
			return
		}
		data.Name = recipientName(user)
		e.send(ctx, user.Email, kind, data)
	})
}

func (e *Effects) send(ctx context.Context, to string, kind mail.Kind, data mail.Data) {
	res := e.notifier.Notify(ctx, to, kind, data)
	if !res.Success {
		e.log.WithFields(logrus.Fields{
			"to":    to,
			"kind":  kind,
			"error": res.Message,
		}).Warn("notification not delivered")
	}
}

func (e *Effects) invalidatePending() {
	if e.cache != nil {
		e.cache.InvalidateByPrefix(PendingCachePrefix)
	}
}

func (e *Effects) reportLink(reportID uuid.UUID) string {
	return e.baseURL + "/reports/" + reportID.String()
}

func recipientName(u *entity.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}
